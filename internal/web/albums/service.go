// Package albums implements user albums and uploaded medias.
package albums

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/internal/library/imaging"
	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/log"
	"github.com/Laisky/laisky-forum/library/storage"
	"github.com/Laisky/laisky-forum/library/web"
)

// Clock returns the current UTC time
type Clock func() time.Time

// FileStore keeps file contents
type FileStore interface {
	imaging.Store
	Get(ctx context.Context, fileID, size string) (io.ReadCloser, storage.ObjectInfo, error)
}

// ImageCreator stores an image with all its previews
type ImageCreator interface {
	CreateImage(ctx context.Context, store imaging.Store,
		srcPath string, typeCfg uploads.TypeConfig) (*imaging.Result, error)
}

// TaskQueue schedules background file removal
type TaskQueue interface {
	EnqueueFileRemoval(ctx context.Context, fileID string, withPreviews bool) (taskID string, err error)
}

// UserDirectory looks up album owners
type UserDirectory interface {
	FetchUserByHid(ctx context.Context, hid int64) (*users.User, error)
}

// Settings of the albums service
type Settings struct {
	// DefaultName is shown for albums without title
	DefaultName        string
	MedialinkProviders []MedialinkProvider
}

// Deps are the collaborators of Service
type Deps struct {
	Store   Store
	Users   UserDirectory
	Files   FileStore
	Images  ImageCreator
	Tasks   TaskQueue
	Uploads *uploads.Config
	Logger  logSDK.Logger
	Clock   Clock
}

// Service implements album and media operations
type Service struct {
	Deps
	settings Settings
}

// NewService creates Service
func NewService(deps Deps, settings Settings) (*Service, error) {
	if deps.Store == nil || deps.Users == nil || deps.Files == nil ||
		deps.Images == nil || deps.Tasks == nil || deps.Uploads == nil {
		return nil, errors.New("store, users, files, images, tasks and uploads config are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Logger.Named("albums")
	}
	if deps.Clock == nil {
		deps.Clock = gutils.Clock.GetUTCNow
	}
	if strings.TrimSpace(settings.DefaultName) == "" {
		settings.DefaultName = defaultAlbumName
	}

	return &Service{Deps: deps, settings: settings}, nil
}

// UploaderConfig returns the upload rules clients must follow
func (s *Service) UploaderConfig() *uploads.Config {
	return s.Uploads
}

// ownedAlbum returns an existing album of owner
func (s *Service) ownedAlbum(ctx context.Context, owner, albumID primitive.ObjectID) (*Album, error) {
	album, err := s.Store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if album.User != owner {
		return nil, errors.Wrapf(web.ErrNotFound, "album %s", albumID.Hex())
	}

	return album, nil
}

func (s *Service) fillTitle(album *Album) {
	if album.Title == "" {
		album.Title = s.settings.DefaultName
	}
}

// AlbumPage builds the page of one album of the user with hid,
// or of all the user's medias when albumID is zero
func (s *Service) AlbumPage(ctx context.Context,
	hid int64, albumID primitive.ObjectID, viewerIsMember bool) (*AlbumPage, error) {
	owner, err := s.Users.FetchUserByHid(ctx, hid)
	if err != nil {
		return nil, err
	}

	pu, err := users.NewPublicUser(owner)
	if err != nil {
		return nil, err
	}
	page := &AlbumPage{
		User:               pu,
		MedialinkProviders: []ProviderInfo{},
	}

	filter := MediaFilter{UserID: owner.ID}
	if !albumID.IsZero() {
		if page.Album, err = s.ownedAlbum(ctx, owner.ID, albumID); err != nil {
			return nil, err
		}
		s.fillTitle(page.Album)
		filter = MediaFilter{AlbumID: albumID}
	}

	for _, p := range s.settings.MedialinkProviders {
		if !p.Enabled {
			continue
		}

		page.MedialinkProviders = append(page.MedialinkProviders, ProviderInfo{
			Home: "http://" + p.ID,
			Name: p.ID,
		})
	}

	medias, err := s.Store.ListMedias(ctx, filter)
	if err != nil {
		return nil, err
	}
	if page.Medias, err = NewMediaInfos(medias); err != nil {
		return nil, err
	}

	// guests only see nicks
	username := owner.Nick
	if viewerIsMember {
		username = owner.Name
	}

	albumsURL := "/users/" + strconv.FormatInt(owner.Hid, 10) + "/album"
	page.Breadcrumbs = []Breadcrumb{
		{Text: username, URL: "/member/" + strconv.FormatInt(owner.Hid, 10)},
		{Text: "Albums", URL: albumsURL},
	}
	if page.Album != nil {
		page.Head.Title = fmt.Sprintf("%s - %s", page.Album.Title, username)
		page.Breadcrumbs = append(page.Breadcrumbs, Breadcrumb{
			Text: page.Album.Title,
			URL:  albumsURL + "/" + page.Album.ID.Hex(),
		})
	} else {
		page.Head.Title = username + " - Albums"
	}

	return page, nil
}

// ListAlbums returns the albums of the user with hid, the default album first
func (s *Service) ListAlbums(ctx context.Context, hid int64) ([]*Album, error) {
	owner, err := s.Users.FetchUserByHid(ctx, hid)
	if err != nil {
		return nil, err
	}

	albums, err := s.Store.ListAlbums(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	for _, album := range albums {
		s.fillTitle(album)
	}

	return albums, nil
}

// AlbumInput is the album form
type AlbumInput struct {
	Title string `json:"title" form:"title" validate:"required,max=200"`
}

var albumMessages = web.Messages{fieldTitle: msgInvalidTitle}

// CreateAlbum creates an album of owner
func (s *Service) CreateAlbum(ctx context.Context, owner primitive.ObjectID, title string) (*Album, error) {
	in := AlbumInput{Title: strings.TrimSpace(title)}
	if err := web.Validate(&in, albumMessages); err != nil {
		return nil, err
	}
	title = in.Title

	album := &Album{
		User:   owner,
		Title:  title,
		LastTs: s.Clock(),
		Exists: true,
	}
	if err := s.Store.CreateAlbum(ctx, album); err != nil {
		return nil, err
	}

	return album, nil
}

// DestroyAlbum removes an album of owner with all its medias
func (s *Service) DestroyAlbum(ctx context.Context, owner, albumID primitive.ObjectID) error {
	album, err := s.ownedAlbum(ctx, owner, albumID)
	if err != nil {
		return err
	}
	if album.Default {
		return web.BadRequest(msgDefaultAlbum)
	}

	medias, err := s.Store.HideAlbumMedias(ctx, album.ID)
	if err != nil {
		return err
	}
	if err = s.Store.HideAlbum(ctx, album.ID); err != nil {
		return err
	}

	for _, media := range medias {
		s.scheduleRemoval(ctx, media.FileID)
	}

	return nil
}

// scheduleRemoval enqueues removal of a file and its previews.
// The media is already hidden, so failures are only logged.
func (s *Service) scheduleRemoval(ctx context.Context, fileID string) {
	taskID, err := s.Tasks.EnqueueFileRemoval(ctx, fileID, true)
	if err != nil {
		s.Logger.Error("enqueue file removal", zap.String("file_id", fileID), zap.Error(err))
		return
	}

	s.Logger.Debug("file removal scheduled", zap.String("file_id", fileID), zap.String("task_id", taskID))
}

// defaultAlbum returns the default album of owner, creating it on demand
func (s *Service) defaultAlbum(ctx context.Context, owner primitive.ObjectID) (*Album, error) {
	album, err := s.Store.FindDefaultAlbum(ctx, owner)
	if err == nil {
		return album, nil
	}
	if !errors.Is(err, web.ErrNotFound) {
		return nil, err
	}

	album = &Album{
		User:    owner,
		Default: true,
		LastTs:  s.Clock(),
		Exists:  true,
	}
	if err = s.Store.CreateAlbum(ctx, album); err != nil {
		return nil, err
	}

	return album, nil
}

// DestroyMedia hides a media of owner and schedules removal of its files
func (s *Service) DestroyMedia(ctx context.Context, owner, mediaID primitive.ObjectID) error {
	media, err := s.Store.GetMedia(ctx, mediaID)
	if err != nil {
		return err
	}
	if media.UserID != owner {
		return errors.Wrapf(web.ErrNotFound, "media %s", mediaID.Hex())
	}

	if err = s.Store.HideMedia(ctx, media.ID); err != nil {
		return err
	}
	if err = s.Store.AddToAlbum(ctx, media.AlbumID, -1, s.Clock()); err != nil &&
		!errors.Is(err, web.ErrNotFound) {
		return err
	}
	if media.Type == MediaImage {
		if err = s.moveCover(ctx, media); err != nil {
			return err
		}
	}

	s.scheduleRemoval(ctx, media.FileID)
	return nil
}

// moveCover points the album cover of removed to its newest remaining image,
// or clears it when none is left
func (s *Service) moveCover(ctx context.Context, removed *Media) error {
	album, err := s.Store.GetAlbum(ctx, removed.AlbumID)
	if err != nil {
		if errors.Is(err, web.ErrNotFound) {
			return nil
		}
		return err
	}
	if album.CoverID != removed.FileID {
		return nil
	}

	medias, err := s.Store.ListMedias(ctx, MediaFilter{AlbumID: album.ID})
	if err != nil {
		return err
	}

	var next string
	for _, m := range medias {
		if m.Type == MediaImage && m.ID != removed.ID {
			next = m.FileID
			break
		}
	}

	return s.Store.ReplaceCover(ctx, album.ID, removed.FileID, next)
}

// OpenFile opens a stored file, or its `size` preview
func (s *Service) OpenFile(ctx context.Context, fileID, size string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.Files.Get(ctx, fileID, size)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, errors.Wrap(web.ErrNotFound, err.Error())
		}

		return nil, storage.ObjectInfo{}, err
	}

	return rc, info, nil
}
