package albums

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/internal/library/imaging"
	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/storage"
	"github.com/Laisky/laisky-forum/library/web"
)

func notFound(what string) error {
	return errors.Wrapf(web.ErrNotFound, "%s not found", what)
}

type memStore struct {
	mu     sync.Mutex
	albums []*Album
	medias []*Media

	addToAlbumErr error
}

func (s *memStore) album(id primitive.ObjectID) *Album {
	for _, a := range s.albums {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *memStore) GetAlbum(_ context.Context, id primitive.ObjectID) (*Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.album(id); a != nil && a.Exists {
		cp := *a
		return &cp, nil
	}
	return nil, notFound("album")
}

func (s *memStore) FindDefaultAlbum(_ context.Context, user primitive.ObjectID) (*Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albums {
		if a.User == user && a.Default && a.Exists {
			cp := *a
			return &cp, nil
		}
	}
	return nil, notFound("default album")
}

func (s *memStore) CreateAlbum(_ context.Context, album *Album) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if album.ID.IsZero() {
		album.ID = primitive.NewObjectID()
	}
	cp := *album
	s.albums = append(s.albums, &cp)
	return nil
}

func (s *memStore) ListAlbums(_ context.Context, user primitive.ObjectID) ([]*Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Album
	for _, a := range s.albums {
		if a.User == user && a.Exists {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Default != out[j].Default {
			return out[i].Default
		}
		return out[i].LastTs.After(out[j].LastTs)
	})
	return out, nil
}

func (s *memStore) HideAlbum(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.album(id); a != nil {
		a.Exists = false
	}
	return nil
}

func (s *memStore) AddToAlbum(_ context.Context, id primitive.ObjectID, delta int64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addToAlbumErr != nil {
		return s.addToAlbumErr
	}
	a := s.album(id)
	if a == nil {
		return notFound("album")
	}
	a.Count += delta
	a.LastTs = ts
	return nil
}

func (s *memStore) SetCoverIfEmpty(_ context.Context, id primitive.ObjectID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.album(id); a != nil && a.CoverID == "" {
		a.CoverID = fileID
	}
	return nil
}

func (s *memStore) ReplaceCover(_ context.Context, id primitive.ObjectID, oldFileID, newFileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.album(id); a != nil && a.CoverID == oldFileID {
		a.CoverID = newFileID
	}
	return nil
}

func (s *memStore) InsertMedia(_ context.Context, media *Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if media.ID.IsZero() {
		media.ID = primitive.NewObjectID()
	}
	cp := *media
	s.medias = append(s.medias, &cp)
	return nil
}

func (s *memStore) GetMedia(_ context.Context, id primitive.ObjectID) (*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.medias {
		if m.ID == id && m.Exists {
			cp := *m
			return &cp, nil
		}
	}
	return nil, notFound("media")
}

func (s *memStore) ListMedias(_ context.Context, filter MediaFilter) ([]*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Media
	for i := len(s.medias) - 1; i >= 0; i-- {
		m := s.medias[i]
		if !m.Exists ||
			(!filter.UserID.IsZero() && m.UserID != filter.UserID) ||
			(!filter.AlbumID.IsZero() && m.AlbumID != filter.AlbumID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) HideMedia(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.medias {
		if m.ID == id {
			m.Exists = false
		}
	}
	return nil
}

func (s *memStore) DeleteMedia(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.medias {
		if m.ID == id {
			s.medias = append(s.medias[:i], s.medias[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) HideAlbumMedias(_ context.Context, album primitive.ObjectID) ([]*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Media
	for _, m := range s.medias {
		if m.AlbumID == album && m.Exists {
			m.Exists = false
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memUsers struct {
	users []*users.User
}

func (d *memUsers) FetchUserByHid(_ context.Context, hid int64) (*users.User, error) {
	for _, u := range d.users {
		if u.Hid == hid {
			return u, nil
		}
	}
	return nil, notFound("user")
}

// memFiles is an in-memory FileStore
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	seq     int
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *memFiles) Put(_ context.Context, r io.Reader, _ int64, opt storage.PutOptions) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := opt.Filename
	if id == "" {
		f.seq++
		id = fmt.Sprintf("file-%d", f.seq)
	}
	f.objects[id] = body
	f.types[id] = opt.ContentType
	return id, nil
}

func (f *memFiles) PutPreview(ctx context.Context, fileID, size string, r io.Reader, length int64, contentType string) error {
	_, err := f.Put(ctx, r, length, storage.PutOptions{
		ContentType: contentType,
		Filename:    storage.PreviewName(fileID, size),
	})
	return err
}

func (f *memFiles) Remove(_ context.Context, fileID string, withPreviews bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.objects {
		if id == fileID || (withPreviews && strings.HasPrefix(id, fileID+"_")) {
			delete(f.objects, id)
		}
	}
	return nil
}

func (f *memFiles) Get(_ context.Context, fileID, size string) (io.ReadCloser, storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := fileID
	if size != "" {
		name = storage.PreviewName(fileID, size)
	}
	body, ok := f.objects[name]
	if !ok {
		return nil, storage.ObjectInfo{}, errors.WithStack(storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(body)), storage.ObjectInfo{
		Key:         name,
		Size:        int64(len(body)),
		ContentType: f.types[name],
	}, nil
}

// fakeImages stores the source as orig and one `sm` preview
type fakeImages struct {
	calls int
}

func (i *fakeImages) CreateImage(ctx context.Context, store imaging.Store,
	srcPath string, _ uploads.TypeConfig) (*imaging.Result, error) {
	i.calls++
	body, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}

	fileID, err := store.Put(ctx, bytes.NewReader(body), int64(len(body)),
		storage.PutOptions{ContentType: "image/jpeg"})
	if err != nil {
		return nil, err
	}
	if err = store.PutPreview(ctx, fileID, "sm", bytes.NewReader(body), int64(len(body)), "image/jpeg"); err != nil {
		return nil, err
	}

	return &imaging.Result{FileID: fileID, ContentType: "image/jpeg"}, nil
}

type memTasks struct {
	mu    sync.Mutex
	files []string
}

func (q *memTasks) EnqueueFileRemoval(_ context.Context, fileID string, withPreviews bool) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !withPreviews {
		return "", errors.New("previews must be removed too")
	}
	q.files = append(q.files, fileID)
	return "task-" + fileID, nil
}
