package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
)

// clientError is a 400 answer, its body is shown to the user as is
type clientError struct {
	body string
}

func (e *clientError) Error() string {
	return "client error: " + e.body
}

// progressReader reports the share of the body read by the transport
type progressReader struct {
	r       io.Reader
	total   int64
	read    atomic.Int64
	lastPct atomic.Int64
	report  func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		loaded := p.read.Add(int64(n))
		pct := int64(math.Round(float64(loaded) * 100 / float64(p.total)))
		if p.lastPct.Swap(pct) != pct {
			p.report(int(pct))
		}
	}

	return n, err
}

// multipartFile returns the form envelope around a single `file` part.
// The file content goes between head and tail.
func multipartFile(name string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if _, err = form.CreateFormFile("file", name); err != nil {
		return nil, nil, "", errors.Wrap(err, "create form file")
	}
	headLen := buf.Len()
	if err = form.Close(); err != nil {
		return nil, nil, "", errors.Wrap(err, "close form")
	}

	all := buf.Bytes()
	return all[:headLen], all[headLen:], form.FormDataContentType(), nil
}

// upload streams path as the multipart `file` field
func (u *Uploader) upload(ctx context.Context, fileID, name, path string, size int64) (*Media, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	defer gutils.CloseWithLog(fp, u.opt.Logger)

	head, tail, contentType, err := multipartFile(name)
	if err != nil {
		return nil, err
	}

	u.opt.Progress(Event{FileID: fileID, Name: name, Status: StatusUploading})
	reader := &progressReader{
		// the file may not grow past the announced length
		r:     io.MultiReader(bytes.NewReader(head), io.LimitReader(fp, size), bytes.NewReader(tail)),
		total: int64(len(head)) + size + int64(len(tail)),
		report: func(pct int) {
			u.opt.Progress(Event{FileID: fileID, Name: name, Status: StatusUploading, Percent: pct})
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.opt.BaseURL+u.opt.UploadPath, reader)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.ContentLength = reader.total
	req.Header.Set("Content-Type", contentType)
	u.authorize(req)

	resp, err := u.opt.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer gutils.CloseWithLog(resp.Body, u.opt.Logger)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read response")
		}
		return nil, &clientError{body: string(respBody)}
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Media *Media `json:"media"`
		} `json:"data"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if result.Data.Media == nil {
		return nil, errors.New("empty media in response")
	}

	return result.Data.Media, nil
}
