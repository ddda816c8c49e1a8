// Package uploader uploads local files to the forum media endpoint.
//
// Files are checked against the server uploads config, large images are
// shrunk before sending, and at most Options.Limit files are in flight.
package uploader

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/library/log"
)

const (
	defaultConfigPath = "/api/users/uploader_config"
	defaultUploadPath = "/api/users/media/upload"
	defaultLimit      = 4
)

// Upload statuses reported through Options.Progress
const (
	StatusCompressing = "compressing"
	StatusUploading   = "uploading"
	StatusDone        = "done"
	StatusFailed      = "failed"
)

var (
	// ErrAborted the batch was aborted before every file was uploaded
	ErrAborted = errors.New("aborted")
	// ErrDeclined the user declined to abort
	ErrDeclined = errors.New("abort declined")
)

// resizable lists the extensions shrunk before upload
var resizable = []string{"bmp", "jpg", "jpeg", "png"}

// File is a local file to upload
type File struct {
	// Name is sent to the server, defaults to the base name of Path
	Name string
	Path string
}

// Media is an uploaded media as returned by the server
type Media struct {
	ID          string    `json:"_id"`
	FileID      string    `json:"file_id"`
	AlbumID     string    `json:"album_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	Type        string    `json:"type"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is one progress update of a file
type Event struct {
	// FileID identifies the file within the batch
	FileID  string
	Name    string
	Status  string
	Percent int
}

// Resizer writes a shrunk copy of an image
type Resizer interface {
	Resize(ctx context.Context, srcPath, dstPath string, opts uploads.ResizeOptions) error
}

// Options of Uploader
type Options struct {
	BaseURL string
	// Token is sent as `Authorization: Bearer <token>`
	Token      string
	ConfigPath string
	UploadPath string
	HTTPClient *http.Client
	// Limit is the number of files in flight
	Limit int
	// Resizer is optional, images are sent as is without it
	Resizer Resizer
	// Notify shows an error message to the user
	Notify func(msg string)
	// Confirm asks the user a yes/no question, a nil error means yes
	Confirm  func(ctx context.Context, question string) error
	Progress func(ev Event)
	Logger   logSDK.Logger
}

func (o *Options) fillDefault() error {
	if o.BaseURL == "" {
		return errors.New("base url is empty")
	}
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")

	if o.ConfigPath == "" {
		o.ConfigPath = defaultConfigPath
	}
	if o.UploadPath == "" {
		o.UploadPath = defaultUploadPath
	}
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if o.Notify == nil {
		o.Notify = func(string) {}
	}
	if o.Progress == nil {
		o.Progress = func(Event) {}
	}
	if o.Logger == nil {
		o.Logger = log.Logger.Named("uploader")
	}

	return nil
}

// Uploader uploads batches of files
type Uploader struct {
	opt Options

	mu         sync.Mutex
	aborted    bool
	confirming bool
	cancel     context.CancelFunc
}

// New creates an uploader
func New(opt Options) (*Uploader, error) {
	if err := opt.fillDefault(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	return &Uploader{opt: opt}, nil
}

// Add uploads files and returns the uploaded medias, newest first.
//
// A file failing any check is reported through Notify and skipped.
// ErrAborted is returned together with the medias uploaded before Abort.
// An Abort issued between batches aborts the next one before it starts.
func (u *Uploader) Add(ctx context.Context, files []File) ([]Media, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u.mu.Lock()
	if u.aborted {
		u.aborted = false
		u.confirming = false
		u.mu.Unlock()
		return nil, ErrAborted
	}
	u.confirming = false
	u.cancel = cancel
	u.mu.Unlock()

	uploaded, err := u.add(ctx, files)
	if u.endBatch() {
		return uploaded, ErrAborted
	}

	return uploaded, err
}

// endBatch forgets the batch and reports whether it was aborted
func (u *Uploader) endBatch() (aborted bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	aborted = u.aborted
	u.aborted = false
	u.confirming = false
	u.cancel = nil
	return aborted
}

func (u *Uploader) add(ctx context.Context, files []File) ([]Media, error) {
	cfg, err := u.loadConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load uploader config")
	}

	var (
		uploadedMu sync.Mutex
		uploaded   []Media
		pool       errgroup.Group
	)
	pool.SetLimit(u.opt.Limit)

	extRe := allowedExtRe(cfg.Extensions)
	for _, f := range files {
		f := f
		if f.Name == "" {
			f.Name = baseName(f.Path)
		}

		if u.isAborted() {
			break
		}

		pool.Go(func() error {
			if u.isAborted() {
				return nil
			}

			media, ok := u.process(ctx, cfg, extRe, f)
			if ok {
				uploadedMu.Lock()
				uploaded = append(uploaded, *media)
				uploadedMu.Unlock()
			}

			return nil
		})
	}
	_ = pool.Wait()

	sort.SliceStable(uploaded, func(i, j int) bool {
		return uploaded[i].CreatedAt.After(uploaded[j].CreatedAt)
	})

	return uploaded, nil
}

// Abort cancels every request in flight. Queued files are never started.
// Without a running batch the next Add is aborted.
func (u *Uploader) Abort() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.aborted = true
	if u.cancel != nil {
		u.cancel()
	}
}

// Close asks the user to confirm, then aborts the batch.
//
// Only one confirmation is shown at a time; concurrent calls return nil.
// A declined confirmation returns ErrDeclined and the batch goes on.
func (u *Uploader) Close(ctx context.Context) error {
	u.mu.Lock()
	if u.confirming {
		u.mu.Unlock()
		return nil
	}
	u.confirming = true
	u.mu.Unlock()

	if u.opt.Confirm != nil {
		if err := u.opt.Confirm(ctx, "Abort uploading?"); err != nil {
			u.mu.Lock()
			u.confirming = false
			u.mu.Unlock()
			return errors.Wrap(ErrDeclined, err.Error())
		}
	}

	u.Abort()
	return nil
}

func (u *Uploader) isAborted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.aborted
}

func (u *Uploader) loadConfig(ctx context.Context) (*uploads.Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.opt.BaseURL+u.opt.ConfigPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	u.authorize(req)

	resp, err := u.opt.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer gutils.CloseWithLog(resp.Body, u.opt.Logger)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Data *uploads.Config `json:"data"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if body.Data == nil || len(body.Data.Extensions) == 0 {
		return nil, errors.New("empty uploader config")
	}

	return body.Data, nil
}

func (u *Uploader) authorize(req *http.Request) {
	if u.opt.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.opt.Token)
	}
}

func allowedExtRe(exts []string) *regexp.Regexp {
	quoted := make([]string, len(exts))
	for i, ext := range exts {
		quoted[i] = regexp.QuoteMeta(ext)
	}

	return regexp.MustCompile(`(?i)\.(` + strings.Join(quoted, "|") + `)$`)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}

	return path
}

// process runs check, resize, size check and upload for one file
func (u *Uploader) process(ctx context.Context,
	cfg *uploads.Config, extRe *regexp.Regexp, f File) (*Media, bool) {
	logger := u.opt.Logger.With(zap.String("file", f.Name))
	fileID := gutils.UUID7()

	if !extRe.MatchString(f.Name) {
		u.opt.Notify(uploads.InvalidExtMessage(f.Name))
		return nil, false
	}

	stat, err := os.Stat(f.Path)
	if err != nil {
		logger.Warn("stat file", zap.Error(err))
		u.opt.Notify("Failed to upload file " + f.Name)
		return nil, false
	}

	path, size := f.Path, stat.Size()
	ext := uploads.FileExt(f.Name)
	typeCfg := cfg.Types[ext]

	if resized, ok := u.resize(ctx, fileID, f, ext, size, typeCfg); ok {
		defer os.Remove(resized) // nolint: errcheck

		if stat, err = os.Stat(resized); err != nil {
			logger.Warn("stat resized file", zap.Error(err))
			u.opt.Notify("Failed to upload file " + f.Name)
			return nil, false
		}
		path, size = resized, stat.Size()
	}

	// resize may finish after Abort
	if u.isAborted() {
		return nil, false
	}

	if max := cfg.MaxSizeFor(ext); max > 0 && size > max {
		u.opt.Notify(uploads.TooLargeMessage(f.Name, max))
		return nil, false
	}

	media, err := u.upload(ctx, fileID, f.Name, path, size)
	if err != nil {
		u.opt.Progress(Event{FileID: fileID, Name: f.Name, Status: StatusFailed})
		if u.isAborted() || errors.Is(err, context.Canceled) {
			return nil, false
		}

		var cerr *clientError
		if errors.As(err, &cerr) {
			u.opt.Notify(cerr.body)
		} else {
			logger.Warn("upload file", zap.Error(err))
			u.opt.Notify("Failed to upload file " + f.Name)
		}
		return nil, false
	}

	u.opt.Progress(Event{FileID: fileID, Name: f.Name, Status: StatusDone, Percent: 100})
	return media, true
}

// resize returns the path of a shrunk copy when the file needs one
func (u *Uploader) resize(ctx context.Context,
	fileID string, f File, ext string, size int64, typeCfg uploads.TypeConfig) (string, bool) {
	if u.opt.Resizer == nil {
		return "", false
	}

	opts, ok := typeCfg.Resize[uploads.PreviewOrig]
	if !ok || size < opts.SkipSize {
		return "", false
	}

	var canResize bool
	for _, e := range resizable {
		if e == ext {
			canResize = true
			break
		}
	}
	if !canResize {
		return "", false
	}

	u.opt.Progress(Event{FileID: fileID, Name: f.Name, Status: StatusCompressing})

	tmp, err := os.CreateTemp("", "forum-upload-*."+ext)
	if err != nil {
		u.opt.Logger.Warn("create temp file", zap.Error(err))
		return "", false
	}
	dst := tmp.Name()
	_ = tmp.Close()

	// keep the source format, quality only applies to jpeg
	opts.Type = ""
	if ext != "jpg" && ext != "jpeg" {
		opts.JpegQuality = 0
	}

	if err = u.opt.Resizer.Resize(ctx, f.Path, dst, opts); err != nil {
		u.opt.Logger.Warn("resize image, send the original", zap.String("file", f.Name), zap.Error(err))
		_ = os.Remove(dst)
		return "", false
	}

	return dst, true
}
