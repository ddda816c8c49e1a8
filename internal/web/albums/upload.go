package albums

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/metrics"
	"github.com/Laisky/laisky-forum/library/storage"
	"github.com/Laisky/laisky-forum/library/web"
)

const cleanupTimeout = 30 * time.Second

// reject counts a refused upload and converts err to a client error
func reject(err error) error {
	reason := "content"
	switch {
	case errors.Is(err, uploads.ErrInvalidExt):
		reason = "extension"
	case errors.Is(err, uploads.ErrTooLarge):
		reason = "size"
	}

	msg := err.Error()
	var ferr *uploads.FileError
	if errors.As(err, &ferr) {
		msg = ferr.Error()
	}

	metrics.UploadRejected.WithLabelValues(reason).Inc()
	return web.BadRequest(msg, fieldFile)
}

// UploadMedia stores the file read from r as a new media of owner.
//
// The file goes to albumID, or to the owner's default album when albumID is zero.
// Images are stored with all the previews of their type.
func (s *Service) UploadMedia(ctx context.Context, owner, albumID primitive.ObjectID,
	filename string, size int64, r io.Reader) (*MediaInfo, error) {
	ext, err := s.Uploads.CheckFile(filename, size)
	if err != nil {
		return nil, reject(err)
	}
	_, typeCfg, _ := s.Uploads.TypeFor(filename)

	detected, replay, err := uploads.SniffReader(r)
	if err != nil {
		return nil, err
	}
	if err = uploads.MatchContent(filename, detected); err != nil {
		return nil, reject(err)
	}

	var album *Album
	if albumID.IsZero() {
		album, err = s.defaultAlbum(ctx, owner)
	} else {
		album, err = s.ownedAlbum(ctx, owner, albumID)
	}
	if err != nil {
		return nil, err
	}

	limited := &limitedReader{r: replay, max: s.Uploads.MaxSizeFor(ext), filename: filename}
	media := &Media{
		UserID:    owner,
		AlbumID:   album.ID,
		CreatedAt: s.Clock(),
		FileName:  filename,
		FileSize:  size,
		Exists:    true,
	}

	if typeCfg.IsImage() {
		err = s.storeImage(ctx, media, limited, typeCfg)
	} else {
		media.Type = MediaBinary
		media.ContentType = uploads.MimeByExt(ext)
		media.FileID, err = s.Files.Put(ctx, limited, size, storage.PutOptions{
			ContentType: media.ContentType,
		})
	}
	if err != nil {
		if errors.Is(err, uploads.ErrTooLarge) {
			return nil, reject(err)
		}

		return nil, errors.Wrapf(err, "store file %q", filename)
	}

	if err = s.Store.InsertMedia(ctx, media); err != nil {
		s.cleanup(ctx, media.FileID)
		return nil, err
	}
	if err = s.Store.AddToAlbum(ctx, album.ID, 1, media.CreatedAt); err != nil {
		s.dropMedia(ctx, media)
		return nil, err
	}
	if media.Type == MediaImage {
		if err = s.Store.SetCoverIfEmpty(ctx, album.ID, media.FileID); err != nil {
			return nil, err
		}
	}

	metrics.MediaUploaded.WithLabelValues(string(media.Type)).Inc()
	gmw.GetLogger(ctx).Info("media uploaded",
		zap.String("media", media.ID.Hex()),
		zap.String("file_id", media.FileID),
		zap.String("type", string(media.Type)),
		zap.Int64("size", size))

	infos, err := NewMediaInfos([]*Media{media})
	if err != nil {
		return nil, err
	}

	return infos[0], nil
}

// storeImage spools r to disk and hands it to the image pipeline
func (s *Service) storeImage(ctx context.Context, media *Media, r io.Reader, typeCfg uploads.TypeConfig) error {
	tmp, err := os.CreateTemp("", "forum-upload-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	result, err := s.Images.CreateImage(ctx, s.Files, tmp.Name(), typeCfg)
	if err != nil {
		return err
	}

	media.Type = MediaImage
	media.FileID = result.FileID
	media.ContentType = result.ContentType
	return nil
}

// cleanup removes stored files of a media that could not be saved
// dropMedia removes a media inserted by a failed upload along with its files
func (s *Service) dropMedia(ctx context.Context, media *Media) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.Store.DeleteMedia(dctx, media.ID); err != nil {
		gmw.GetLogger(ctx).Error("delete orphan media", zap.String("media", media.ID.Hex()), zap.Error(err))
	}
	s.cleanup(ctx, media.FileID)
}

func (s *Service) cleanup(ctx context.Context, fileID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.Files.Remove(ctx, fileID, true); err != nil {
		gmw.GetLogger(ctx).Error("remove orphan file", zap.String("file_id", fileID), zap.Error(err))
	}
}

// limitedReader fails once more than max bytes are read
type limitedReader struct {
	r        io.Reader
	max      int64
	read     int64
	filename string
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return n, uploads.TooLargeError(l.filename, l.max)
	}

	return n, err
}
