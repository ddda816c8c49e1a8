package uploads

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/gabriel-vasile/mimetype"
)

// SniffSize is how many leading bytes are read to detect the content type
const SniffSize = 3072

var (
	// ErrInvalidExt the file extension is not listed in the config
	ErrInvalidExt = errors.New("invalid file extension")
	// ErrTooLarge the file is larger than allowed for its type
	ErrTooLarge = errors.New("file is too large")
	// ErrContentMismatch the file content does not match its extension
	ErrContentMismatch = errors.New("file content does not match its extension")
)

// FileError reports a rejected file
type FileError struct {
	err      error
	Filename string
	// MaxSizeKB is set for ErrTooLarge
	MaxSizeKB int64
}

func (e *FileError) Error() string {
	switch e.err {
	case ErrInvalidExt:
		return InvalidExtMessage(e.Filename)
	case ErrTooLarge:
		return fmt.Sprintf("File %s is too large, max size is %d KB", e.Filename, e.MaxSizeKB)
	default:
		return e.err.Error() + ": " + e.Filename
	}
}

func (e *FileError) Unwrap() error {
	return e.err
}

// InvalidExtMessage is shown when filename has a forbidden extension
func InvalidExtMessage(filename string) string {
	return "Invalid file extension: " + filename
}

// TooLargeError reports that filename exceeds the limit max, in bytes
func TooLargeError(filename string, max int64) *FileError {
	return &FileError{err: ErrTooLarge, Filename: filename, MaxSizeKB: roundKB(max)}
}

// TooLargeMessage is shown when filename exceeds the limit max, in bytes
func TooLargeMessage(filename string, max int64) string {
	return TooLargeError(filename, max).Error()
}

func roundKB(n int64) int64 {
	return int64(math.Round(float64(n) / 1024))
}

// CheckFile verifies that filename has an allowed extension and that
// size fits the limit of its type
func (c *Config) CheckFile(filename string, size int64) (ext string, err error) {
	ext, _, ok := c.TypeFor(filename)
	if !ok {
		return ext, &FileError{err: ErrInvalidExt, Filename: filename}
	}

	if max := c.MaxSizeFor(ext); max > 0 && size > max {
		return ext, TooLargeError(filename, max)
	}

	return ext, nil
}

// Sniff detects the content type of head, returning the mime type
// without parameters and its canonical extension
func Sniff(head []byte) (mimeType string, ext string) {
	m := mimetype.Detect(head)
	mimeType = m.String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return mimeType, CanonicalExt(mimeType, strings.TrimPrefix(m.Extension(), "."))
}

// SniffReader reads up to SniffSize leading bytes of r and sniffs them.
//
// The returned reader replays the consumed bytes followed by the rest of r.
func SniffReader(r io.Reader) (mimeType string, replay io.Reader, err error) {
	head := make([]byte, SniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil &&
		!errors.Is(err, io.EOF) &&
		!errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, errors.Wrap(err, "read file head")
	}
	head = head[:n]

	mimeType, _ = Sniff(head)
	return mimeType, io.MultiReader(bytes.NewReader(head), r), nil
}

// MatchContent checks that the sniffed mime type fits the extension.
// Image extensions require image content; other types are not checked.
func MatchContent(filename, detected string) error {
	expected := MimeByExt(FileExt(filename))
	if !IsImageMime(expected) {
		return nil
	}

	if !IsImageMime(detected) {
		return &FileError{err: ErrContentMismatch, Filename: filename}
	}

	return nil
}
