// Package imaging builds stored images and their previews with
// GraphicsMagick or ImageMagick.
package imaging

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"

	"github.com/Laisky/laisky-forum/internal/library/uploads"
)

// ErrNoImageTool neither GraphicsMagick nor ImageMagick was found
var ErrNoImageTool = errors.New("You need GraphicsMagick or ImageMagick to run. " +
	"Make sure that one of packages is installed and can be found via search path.")

// runCMD runs an external command and returns its stdout
var runCMD = func(ctx context.Context, app string, args ...string) ([]byte, error) {
	return gutils.RunCMD(ctx, app, args...)
}

// ImageInfo describes an image on disk
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// ContentType returns the mime type of the image format
func (i ImageInfo) ContentType() string {
	return uploads.MimeByExt(i.Format)
}

// Processor runs convert and identify of the detected toolkit
type Processor struct {
	imageMagick bool
}

// Detect looks for GraphicsMagick, then ImageMagick.
// GraphicsMagick is preferred.
func Detect(ctx context.Context) (*Processor, error) {
	// command errors are ignored, the output check is stricter
	if out, _ := runCMD(ctx, "gm", "version"); bytes.Contains(out, []byte("GraphicsMagick")) {
		return &Processor{}, nil
	}

	if out, _ := runCMD(ctx, "convert", "-version"); bytes.Contains(out, []byte("ImageMagick")) {
		return &Processor{imageMagick: true}, nil
	}

	return nil, ErrNoImageTool
}

// Name returns the detected toolkit
func (p *Processor) Name() string {
	if p.imageMagick {
		return "ImageMagick"
	}

	return "GraphicsMagick"
}

func (p *Processor) run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	if p.imageMagick {
		return runCMD(ctx, tool, args...)
	}

	return runCMD(ctx, "gm", append([]string{tool}, args...)...)
}

// identifyFormat prints size, format and the EXIF orientation, which is
// empty when the image has none
const identifyFormat = "%w %h %m %[EXIF:Orientation]\n"

// Identify reads the size and format of the first frame of path.
// The size is reported as displayed, after EXIF orientation.
func (p *Processor) Identify(ctx context.Context, path string) (ImageInfo, error) {
	out, err := p.run(ctx, "identify", "-format", identifyFormat, path+"[0]")
	if err != nil {
		return ImageInfo{}, errors.Wrapf(err, "identify %q", path)
	}

	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	fields := strings.Fields(line)
	if len(fields) != 3 && len(fields) != 4 {
		return ImageInfo{}, errors.Errorf("unexpected identify output %q", line)
	}

	info := ImageInfo{Format: normalizeFormat(fields[2])}
	if info.Width, err = strconv.Atoi(fields[0]); err != nil {
		return ImageInfo{}, errors.Wrapf(err, "parse width %q", fields[0])
	}
	if info.Height, err = strconv.Atoi(fields[1]); err != nil {
		return ImageInfo{}, errors.Wrapf(err, "parse height %q", fields[1])
	}

	// orientations 5-8 rotate by 90 degrees, -auto-orient swaps the sides
	if len(fields) == 4 {
		if o, err := strconv.Atoi(fields[3]); err == nil && o >= 5 && o <= 8 {
			info.Width, info.Height = info.Height, info.Width
		}
	}

	return info, nil
}

func normalizeFormat(f string) string {
	f = strings.ToLower(f)
	switch f {
	case "jpg":
		return uploads.FormatJPEG
	default:
		return f
	}
}

// PlanSize returns the target size of a preview of src
func PlanSize(src ImageInfo, opts uploads.ResizeOptions) (w, h int) {
	switch {
	case opts.Width > 0 && opts.Height > 0:
		return opts.Width, opts.Height
	case opts.Height > 0:
		h = opts.Height
		w = src.Width
		if src.Height > 0 {
			w = src.Width * opts.Height / src.Height
		}
		if opts.MaxWidth > 0 && opts.MaxWidth < w {
			w = opts.MaxWidth
		}
		return w, h
	case opts.Width > 0:
		w = opts.Width
		h = src.Height
		if src.Width > 0 {
			h = src.Height * opts.Width / src.Width
		}
		if opts.MaxHeight > 0 && opts.MaxHeight < h {
			h = opts.MaxHeight
		}
		return w, h
	default:
		return src.Width, src.Height
	}
}

// NeedsResize reports whether src is larger than w×h.
// Smaller images are never upscaled.
func NeedsResize(src ImageInfo, w, h int) bool {
	return src.Width > w || src.Height > h
}

// Resize converts src into dst following opts and returns the result info
func (p *Processor) Resize(ctx context.Context,
	srcPath, dstPath string, src ImageInfo, opts uploads.ResizeOptions) (ImageInfo, error) {
	w, h := PlanSize(src, opts)
	resize := NeedsResize(src, w, h)
	if resize {
		w, h = min(w, src.Width), min(h, src.Height)
	} else {
		w, h = src.Width, src.Height
	}

	format := src.Format
	if opts.Type != "" {
		format = opts.Type
	}
	animated := format == uploads.FormatGIF && opts.GifAnimation

	input := srcPath
	if !animated {
		input += "[0]"
	}
	args := []string{input}
	if animated && resize {
		args = append(args, "-coalesce")
	}
	args = append(args, "-auto-orient")
	if resize {
		size := strconv.Itoa(w) + "x" + strconv.Itoa(h)
		args = append(args,
			"-resize", size+"^",
			"-gravity", "Center",
			"-crop", size+"+0+0",
			"+repage",
		)
	}
	if opts.Unsharp {
		args = append(args, "-unsharp", "0x1")
	}
	if format == uploads.FormatJPEG && opts.JpegQuality > 0 {
		args = append(args, "-quality", strconv.Itoa(opts.JpegQuality))
	}
	args = append(args, format+":"+dstPath)

	if _, err := p.run(ctx, "convert", args...); err != nil {
		return ImageInfo{}, errors.Wrapf(err, "convert %q", srcPath)
	}

	return ImageInfo{Width: w, Height: h, Format: format}, nil
}
