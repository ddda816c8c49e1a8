package albums

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaFilter selects existing medias, zero fields are ignored
type MediaFilter struct {
	UserID  primitive.ObjectID
	AlbumID primitive.ObjectID
}

// Store persists albums and medias.
// Single record lookups return an error wrapping web.ErrNotFound.
type Store interface {
	GetAlbum(ctx context.Context, id primitive.ObjectID) (*Album, error)
	FindDefaultAlbum(ctx context.Context, user primitive.ObjectID) (*Album, error)
	CreateAlbum(ctx context.Context, album *Album) error
	// ListAlbums returns existing albums of user
	ListAlbums(ctx context.Context, user primitive.ObjectID) ([]*Album, error)
	HideAlbum(ctx context.Context, id primitive.ObjectID) error
	// AddToAlbum adds delta to the media count and bumps last_ts
	AddToAlbum(ctx context.Context, id primitive.ObjectID, delta int64, ts time.Time) error
	// SetCoverIfEmpty sets the album cover unless one is already set
	SetCoverIfEmpty(ctx context.Context, id primitive.ObjectID, fileID string) error
	// ReplaceCover swaps the cover from oldFileID to newFileID, empty clears it.
	// Albums with another cover are left unchanged.
	ReplaceCover(ctx context.Context, id primitive.ObjectID, oldFileID, newFileID string) error

	InsertMedia(ctx context.Context, media *Media) error
	// GetMedia returns a media that is not deleted
	GetMedia(ctx context.Context, id primitive.ObjectID) (*Media, error)
	// ListMedias returns existing medias, newest first
	ListMedias(ctx context.Context, filter MediaFilter) ([]*Media, error)
	HideMedia(ctx context.Context, id primitive.ObjectID) error
	// DeleteMedia drops a media record that never became visible
	DeleteMedia(ctx context.Context, id primitive.ObjectID) error
	// HideAlbumMedias hides every media of album and returns them
	HideAlbumMedias(ctx context.Context, album primitive.ObjectID) ([]*Media, error)
}
