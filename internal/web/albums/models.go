package albums

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaType is the kind of an uploaded file
type MediaType string

const (
	// MediaImage has previews
	MediaImage MediaType = "image"
	// MediaBinary is stored as is
	MediaBinary MediaType = "binary"
)

// Album groups medias of one user
type Album struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User  primitive.ObjectID `bson:"user" json:"user"`
	Title string             `bson:"title" json:"title"`
	// Default albums receive uploads without an album and can not be removed
	Default bool      `bson:"default" json:"default"`
	Count   int64     `bson:"count" json:"count"`
	CoverID string    `bson:"cover_id,omitempty" json:"cover_id,omitempty"`
	LastTs  time.Time `bson:"last_ts" json:"last_ts"`
	Exists  bool      `bson:"exists" json:"exists"`
}

// Media is an uploaded file
type Media struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FileID      string             `bson:"file_id" json:"file_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	AlbumID     primitive.ObjectID `bson:"album_id" json:"album_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	Description string             `bson:"description" json:"description"`
	Type        MediaType          `bson:"type" json:"type"`
	FileName    string             `bson:"file_name" json:"file_name"`
	FileSize    int64              `bson:"file_size" json:"file_size"`
	ContentType string             `bson:"content_type" json:"content_type"`
	Exists      bool               `bson:"exists" json:"exists"`
}

// MedialinkProvider is an embeddable media site
type MedialinkProvider struct {
	ID      string `mapstructure:"id" json:"id"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}
