package albums

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/internal/web/users"
)

// MediaInfo is the public part of Media
type MediaInfo struct {
	ID          primitive.ObjectID `json:"_id"`
	FileID      string             `json:"file_id"`
	AlbumID     primitive.ObjectID `json:"album_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Description string             `json:"description"`
	Type        MediaType          `json:"type"`
	FileName    string             `json:"file_name"`
	FileSize    int64              `json:"file_size"`
	ContentType string             `json:"content_type"`
}

// NewMediaInfos converts medias for the response
func NewMediaInfos(medias []*Media) ([]*MediaInfo, error) {
	infos := make([]*MediaInfo, 0, len(medias))
	if err := copier.Copy(&infos, &medias); err != nil {
		return nil, errors.Wrap(err, "copy medias")
	}

	return infos, nil
}

// ProviderInfo is an enabled medialink provider
type ProviderInfo struct {
	Home string `json:"home"`
	Name string `json:"name"`
}

// Breadcrumb is one step of the page navigation
type Breadcrumb struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Head is the page meta
type Head struct {
	Title string `json:"title"`
}

// AlbumPage is the album page, or the "all medias" page when Album is nil
type AlbumPage struct {
	User               *users.PublicUser `json:"user"`
	Album              *Album            `json:"album,omitempty"`
	Medias             []*MediaInfo      `json:"medias"`
	MedialinkProviders []ProviderInfo    `json:"medialink_providers"`
	Head               Head              `json:"head"`
	Breadcrumbs        []Breadcrumb      `json:"breadcrumbs"`
}
