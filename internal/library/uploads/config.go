// Package uploads parses the uploads configuration and checks uploaded files against it.
//
// The raw configuration lists allowed extensions and global limits,
// and may override them per file type:
//
//	extensions: [jpg, jpeg, png, gif, zip]
//	max_size: 2000000
//	jpeg_quality: 75
//	resize:
//	  orig: {width: 1280, skip_size: 1000000}
//	  md:   {width: 640}
//	  sm:   {max_width: 170, height: 150}
//	types:
//	  png:
//	    resize:
//	      orig: {type: png}
//
// Parse expands it so that every listed extension carries its own
// complete settings in Config.Types.
package uploads

import (
	"path"
	"strings"
)

// Preview names known to the resize pipeline
const (
	PreviewOrig = "orig"
	PreviewMd   = "md"
	PreviewSm   = "sm"
)

// Output formats of a preview
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
)

// ResizeOptions describes one preview size
type ResizeOptions struct {
	// SkipSize files smaller than this are stored without resizing
	SkipSize int64 `json:"skip_size,omitempty"`
	// Type output format, keeps the source format when empty
	Type string `json:"type,omitempty"`
	// From the preview this one is made from, `orig` when empty
	From         string `json:"from,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	MaxWidth     int    `json:"max_width,omitempty"`
	MaxHeight    int    `json:"max_height,omitempty"`
	JpegQuality  int    `json:"jpeg_quality,omitempty"`
	GifAnimation bool   `json:"gif_animation,omitempty"`
	Unsharp      bool   `json:"unsharp,omitempty"`
}

// Source returns the preview this one is built from
func (o ResizeOptions) Source() string {
	if o.From == "" {
		return PreviewOrig
	}

	return o.From
}

// TypeConfig is the expanded configuration of one extension
type TypeConfig struct {
	MaxSize      int64                    `json:"max_size,omitempty"`
	JpegQuality  int                      `json:"jpeg_quality,omitempty"`
	GifAnimation bool                     `json:"gif_animation,omitempty"`
	Resize       map[string]ResizeOptions `json:"resize,omitempty"`
}

// IsImage reports whether files of this type get previews
func (t TypeConfig) IsImage() bool {
	return t.Resize != nil
}

// Config is the parsed uploads configuration
type Config struct {
	Extensions   []string                 `json:"extensions"`
	MaxSize      int64                    `json:"max_size,omitempty"`
	JpegQuality  int                      `json:"jpeg_quality,omitempty"`
	GifAnimation bool                     `json:"gif_animation,omitempty"`
	Resize       map[string]ResizeOptions `json:"resize,omitempty"`
	// Types is keyed by extension as listed in Extensions
	Types map[string]TypeConfig `json:"types"`
}

// FileExt returns the lowercased extension of name without the dot
func FileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// TypeFor returns the settings for the extension of filename
func (c *Config) TypeFor(filename string) (ext string, cfg TypeConfig, ok bool) {
	ext = FileExt(filename)
	if ext == "" {
		return "", TypeConfig{}, false
	}

	for _, allowed := range c.Extensions {
		if strings.EqualFold(allowed, ext) {
			return ext, c.Types[allowed], true
		}
	}

	return ext, TypeConfig{}, false
}

// MaxSizeFor returns the size limit for ext, the global limit when the type has none
func (c *Config) MaxSizeFor(ext string) int64 {
	if t, ok := c.Types[strings.ToLower(ext)]; ok && t.MaxSize > 0 {
		return t.MaxSize
	}

	return c.MaxSize
}
