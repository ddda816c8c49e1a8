package imaging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/metrics"
	"github.com/Laisky/laisky-forum/library/storage"
)

// Store keeps images and their previews
type Store interface {
	Put(ctx context.Context, r io.Reader, size int64, opt storage.PutOptions) (fileID string, err error)
	PutPreview(ctx context.Context, fileID, size string, r io.Reader, length int64, contentType string) error
	Remove(ctx context.Context, fileID string, withPreviews bool) error
}

// Result of CreateImage
type Result struct {
	FileID      string               `json:"file_id"`
	ContentType string               `json:"content_type"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	Previews    map[string]ImageInfo `json:"previews"`
}

// CreateImage stores srcPath as the `orig` image of typeCfg, then builds
// and stores every other preview, one after another.
//
// Nothing is left in the store when any step fails.
func (p *Processor) CreateImage(ctx context.Context,
	store Store, srcPath string, typeCfg uploads.TypeConfig) (_ *Result, err error) {
	logger := gmw.GetLogger(ctx).Named("create_image")
	startAt := time.Now()

	tmpDir, err := os.MkdirTemp("", "forum-image-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp dir")
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			logger.Warn("remove temp dir", zap.String("dir", tmpDir), zap.Error(rmErr))
		}
	}()

	result := &Result{Previews: map[string]ImageInfo{}}
	defer func() {
		if err == nil {
			metrics.ImagingDuration.Observe(time.Since(startAt).Seconds())
			return
		}

		metrics.ImagingFail.Inc()
		if result.FileID == "" {
			return
		}

		// clean up dirty data, even when ctx is already canceled
		cleanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if rmErr := store.Remove(cleanCtx, result.FileID, true); rmErr != nil {
			logger.Error("remove broken image",
				zap.String("file_id", result.FileID), zap.Error(rmErr))
		}
	}()

	src, err := p.Identify(ctx, srcPath)
	if err != nil {
		return nil, err
	}

	// orig
	origOpts := typeCfg.Resize[uploads.PreviewOrig]
	paths := map[string]string{}
	infos := map[string]ImageInfo{}

	stat, err := os.Stat(srcPath)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %q", srcPath)
	}

	w, h := PlanSize(src, origOpts)
	origType := origOpts.Type
	if stat.Size() < origOpts.SkipSize &&
		!NeedsResize(src, w, h) &&
		(origType == "" || origType == src.Format) {
		paths[uploads.PreviewOrig] = srcPath
		infos[uploads.PreviewOrig] = src
	} else {
		dst := tmpDir + "/" + uploads.PreviewOrig
		info, err := p.Resize(ctx, srcPath, dst, src, origOpts)
		if err != nil {
			return nil, errors.Wrap(err, "build orig")
		}

		paths[uploads.PreviewOrig] = dst
		infos[uploads.PreviewOrig] = info
	}

	orig := infos[uploads.PreviewOrig]
	if result.FileID, err = putFile(ctx, paths[uploads.PreviewOrig], func(r io.Reader, size int64) (string, error) {
		return store.Put(ctx, r, size, storage.PutOptions{ContentType: orig.ContentType()})
	}); err != nil {
		return nil, errors.Wrap(err, "store orig")
	}
	metrics.PreviewsCreated.WithLabelValues(uploads.PreviewOrig).Inc()

	result.ContentType = orig.ContentType()
	result.Width, result.Height = orig.Width, orig.Height
	result.Previews[uploads.PreviewOrig] = orig

	// previews
	for _, name := range uploads.PreviewOrder(typeCfg.Resize) {
		if name == uploads.PreviewOrig {
			continue
		}

		opts := typeCfg.Resize[name]
		srcName := opts.Source()
		srcPath, ok := paths[srcName]
		if !ok {
			return nil, errors.Errorf("preview %q is made from unknown preview %q", name, srcName)
		}

		dst := tmpDir + "/" + name
		info, err := p.Resize(ctx, srcPath, dst, infos[srcName], opts)
		if err != nil {
			return nil, errors.Wrapf(err, "build preview %q", name)
		}

		if _, err = putFile(ctx, dst, func(r io.Reader, size int64) (string, error) {
			return "", store.PutPreview(ctx, result.FileID, name, r, size, info.ContentType())
		}); err != nil {
			return nil, errors.Wrapf(err, "store preview %q", name)
		}

		metrics.PreviewsCreated.WithLabelValues(name).Inc()
		paths[name] = dst
		infos[name] = info
		result.Previews[name] = info
	}

	logger.Debug("image created",
		zap.String("file_id", result.FileID),
		zap.Int("previews", len(result.Previews)))
	return result, nil
}

func putFile(ctx context.Context, path string, put func(r io.Reader, size int64) (string, error)) (string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %q", path)
	}
	defer fp.Close() // nolint: errcheck

	stat, err := fp.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "stat %q", path)
	}

	if err = ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	return put(fp, stat.Size())
}
