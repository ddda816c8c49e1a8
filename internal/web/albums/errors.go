package albums

const (
	// MaxTitleLength is the album title limit in runes, see AlbumInput
	MaxTitleLength = 200

	defaultAlbumName = "Default album"
)

const (
	msgInvalidTitle = "album title must be 1-200 chars"
	msgDefaultAlbum = "default album can not be removed"

	fieldTitle = "title"
	fieldFile  = "file"
)
