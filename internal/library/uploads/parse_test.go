package uploads

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

func testRawConfig() map[string]any {
	return map[string]any{
		"extensions":   []any{"jpg", "jpeg", "png", "gif", "zip"},
		"max_size":     2000000,
		"jpeg_quality": 75,
		"resize": map[string]any{
			"orig": map[string]any{"width": 1280, "skip_size": 1000000},
			"md":   map[string]any{"width": 640},
			"sm":   map[string]any{"max_width": 170, "height": 150, "type": "jpeg"},
		},
		"types": map[string]any{
			"png": map[string]any{
				"max_size": 4000000,
				"resize": map[string]any{
					"orig": map[string]any{"type": "png"},
				},
			},
			"gif": map[string]any{
				"gif_animation": true,
				"resize": map[string]any{
					"orig": map[string]any{"gif_animation": true},
				},
			},
			"jpeg": map[string]any{
				"resize": map[string]any{
					"md": map[string]any{"jpeg_quality": 90},
				},
			},
		},
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(testRawConfig())
	require.NoError(t, err)

	require.Equal(t, []string{"jpg", "jpeg", "png", "gif", "zip"}, cfg.Extensions)
	require.EqualValues(t, 2000000, cfg.MaxSize)

	t.Run("jpg resolves to jpeg type options", func(t *testing.T) {
		jpg := cfg.Types["jpg"]
		require.True(t, jpg.IsImage())
		require.Equal(t, 75, jpg.Resize["orig"].JpegQuality)
		require.Equal(t, 90, jpg.Resize["md"].JpegQuality)
		require.Equal(t, 1280, jpg.Resize["orig"].Width)
		require.EqualValues(t, 1000000, jpg.Resize["orig"].SkipSize)
	})

	t.Run("png keeps format and type limit", func(t *testing.T) {
		png := cfg.Types["png"]
		require.Equal(t, FormatPNG, png.Resize["orig"].Type)
		require.Equal(t, 0, png.Resize["orig"].JpegQuality)
		require.Equal(t, 1280, png.Resize["orig"].Width)
		require.EqualValues(t, 4000000, png.MaxSize)
		// sm is converted to jpeg
		require.Equal(t, 75, png.Resize["sm"].JpegQuality)
	})

	t.Run("gif animation", func(t *testing.T) {
		gif := cfg.Types["gif"]
		require.True(t, gif.GifAnimation)
		require.True(t, gif.Resize["orig"].GifAnimation)
		require.False(t, gif.Resize["md"].GifAnimation)
		require.False(t, gif.Resize["sm"].GifAnimation)
	})

	t.Run("non image", func(t *testing.T) {
		zip := cfg.Types["zip"]
		require.False(t, zip.IsImage())
		require.EqualValues(t, 2000000, cfg.MaxSizeFor("zip"))
		require.EqualValues(t, 4000000, cfg.MaxSizeFor("PNG"))
	})
}

func TestParseMemoized(t *testing.T) {
	a, err := Parse(testRawConfig())
	require.NoError(t, err)
	b, err := Parse(testRawConfig())
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestParseLegacyKey(t *testing.T) {
	cfg, err := Parse(map[string]any{
		"extentions": []any{"txt"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"txt"}, cfg.Extensions)
	require.Contains(t, cfg.Types, "txt")
}

func TestParseUniqueIsCaseSensitive(t *testing.T) {
	cfg, err := Parse(map[string]any{
		"extensions": []any{"jpg", "Jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"jpg", "Jpg"}, cfg.Extensions)
}

func TestParseYAMLMaps(t *testing.T) {
	cfg, err := Parse(map[any]any{
		"extensions": []string{"png"},
		"resize": map[any]any{
			"sm": map[any]any{"width": 100},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Types["png"].Resize["sm"].Width)
}

func TestParseInvalid(t *testing.T) {
	cases := []struct {
		name   string
		raw    map[string]any
		expect string
	}{
		{"missing extensions", map[string]any{}, "'data.extensions' is required"},
		{"empty extensions", map[string]any{"extensions": []any{}}, "'data.extensions' has less items than allowed"},
		{"duplicated extensions", map[string]any{"extensions": []any{"png", "png"}}, "'data.extensions' must be unique 'png,png'"},
		{"unknown key", map[string]any{"extensions": []any{"png"}, "foo": 1}, "'data' has additional properties 'foo'"},
		{"bad size", map[string]any{"extensions": []any{"png"}, "max_size": "big"}, "'data.max_size' is the wrong type 'big'"},
		{
			"bad preview type",
			map[string]any{
				"extensions": []any{"png"},
				"resize":     map[string]any{"sm": map[string]any{"type": "tiff"}},
			},
			"'data.resize.sm.type' must be an enum value 'tiff'",
		},
		{
			"preview from itself",
			map[string]any{
				"extensions": []any{"png"},
				"resize":     map[string]any{"md": map[string]any{"from": "md"}},
			},
			"'data.resize.md.from' must be an enum value 'md'",
		},
		{"upper case extension", map[string]any{"extensions": []any{"PNG"}}, "'data.extensions.0' pattern mismatch 'PNG'"},
		{
			"bad type resize",
			map[string]any{
				"extensions": []any{"png"},
				"types": map[string]any{
					"png": map[string]any{"resize": map[string]any{"md": map[string]any{"width": -1}}},
				},
			},
			"'data.types.png.resize.md.width' is the wrong type '-1'",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(c.raw)
			require.Error(t, err)
			require.Contains(t, err.Error(), c.expect)
		})
	}
}

func TestParseExtraKeys(t *testing.T) {
	cfg, err := Parse(map[string]any{
		"extensions": []any{"png", "7z"},
		"resize": map[string]any{
			"xl": map[string]any{"width": 2000, "comment": "large"},
		},
		"types": map[string]any{
			"png": map[string]any{"note": "kept out of the typed config"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2000, cfg.Types["png"].Resize["xl"].Width)
	require.False(t, cfg.Types["7z"].IsImage())
}

func TestPreviewOrder(t *testing.T) {
	order := PreviewOrder(map[string]ResizeOptions{
		"sm":   {From: "md"},
		"md":   {},
		"orig": {},
	})
	require.Equal(t, []string{"orig", "md", "sm"}, order)

	order = PreviewOrder(map[string]ResizeOptions{
		"sm": {},
		"md": {From: "sm"},
	})
	require.Equal(t, []string{"md", "sm"}, order)
}

func TestCheckFile(t *testing.T) {
	cfg, err := Parse(testRawConfig())
	require.NoError(t, err)

	ext, err := cfg.CheckFile("Photo.JPG", 100)
	require.NoError(t, err)
	require.Equal(t, "jpg", ext)

	_, err = cfg.CheckFile("script.php", 100)
	require.ErrorIs(t, err, ErrInvalidExt)
	require.Equal(t, "Invalid file extension: script.php", err.Error())

	_, err = cfg.CheckFile("noext", 100)
	require.ErrorIs(t, err, ErrInvalidExt)

	_, err = cfg.CheckFile("big.zip", 3000000)
	require.ErrorIs(t, err, ErrTooLarge)
	var fe *FileError
	require.True(t, errors.As(err, &fe))
	require.EqualValues(t, 1953, fe.MaxSizeKB)
	require.Equal(t, "File big.zip is too large, max size is 1953 KB", fe.Error())

	_, err = cfg.CheckFile("big.png", 3000000)
	require.NoError(t, err)
}

func TestSniff(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 5000))
	detected, replay, err := SniffReader(bytes.NewReader(png))
	require.NoError(t, err)
	require.Equal(t, "image/png", detected)

	body, err := io.ReadAll(replay)
	require.NoError(t, err)
	require.Equal(t, png, body)

	require.NoError(t, MatchContent("a.png", detected))
	require.NoError(t, MatchContent("a.zip", "text/plain"))
	require.ErrorIs(t, MatchContent("a.jpg", "text/plain"), ErrContentMismatch)

	detected, ext := Sniff([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	require.Equal(t, "image/jpeg", detected)
	require.Equal(t, "jpeg", ext)

	detected, _ = Sniff([]byte("hi"))
	require.Equal(t, "text/plain", detected)
}

func TestMime(t *testing.T) {
	require.Equal(t, "image/jpeg", MimeByExt("JPG"))
	require.Equal(t, "jpeg", CanonicalExt(MimeByExt("jpg"), "jpg"))
	require.Equal(t, "foo", CanonicalExt(MimeByExt("foo"), "foo"))
}
