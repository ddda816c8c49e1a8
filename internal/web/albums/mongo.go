package albums

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-forum/library/db/mongo"
	"github.com/Laisky/laisky-forum/library/web"
)

// Collection names
const (
	ColAlbums = "albums"
	ColMedias = "medias"
)

// MongoStore is the Store backed by mongodb
type MongoStore struct {
	db mongo.DB
}

// NewMongoStore creates a MongoStore
func NewMongoStore(db mongo.DB) *MongoStore {
	return &MongoStore{db: db}
}

// Indexes returns the indexes of the album collections
func Indexes() map[string][]mongoLib.IndexModel {
	return map[string][]mongoLib.IndexModel{
		ColAlbums: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "exists", Value: 1}}},
		},
		ColMedias: {
			{Keys: bson.D{{Key: "file_id", Value: 1}}},
			{Keys: bson.D{{Key: "album_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: -1}}},
		},
	}
}

func (s *MongoStore) albums() *mongoLib.Collection {
	return s.db.GetCol(ColAlbums)
}

func (s *MongoStore) medias() *mongoLib.Collection {
	return s.db.GetCol(ColMedias)
}

func (s *MongoStore) GetAlbum(ctx context.Context, id primitive.ObjectID) (*Album, error) {
	return mongo.FindOne[Album](ctx, s.albums(), bson.M{"_id": id, "exists": true}, "album")
}

func (s *MongoStore) FindDefaultAlbum(ctx context.Context, user primitive.ObjectID) (*Album, error) {
	return mongo.FindOne[Album](ctx, s.albums(), bson.M{
		"user":    user,
		"default": true,
		"exists":  true,
	}, "default album")
}

func (s *MongoStore) CreateAlbum(ctx context.Context, album *Album) error {
	if album.ID.IsZero() {
		album.ID = primitive.NewObjectID()
	}

	if _, err := s.albums().InsertOne(ctx, album); err != nil {
		return errors.Wrapf(err, "insert album of %s", album.User.Hex())
	}

	return nil
}

func (s *MongoStore) ListAlbums(ctx context.Context, user primitive.ObjectID) ([]*Album, error) {
	return mongo.FindAll[Album](ctx, s.albums(), bson.M{
		"user":   user,
		"exists": true,
	}, "albums", options.Find().SetSort(bson.D{
		{Key: "default", Value: -1},
		{Key: "last_ts", Value: -1},
	}))
}

func (s *MongoStore) HideAlbum(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.albums().UpdateByID(ctx, id, bson.M{"$set": bson.M{"exists": false}}); err != nil {
		return errors.Wrapf(err, "hide album %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) AddToAlbum(ctx context.Context, id primitive.ObjectID, delta int64, ts time.Time) error {
	res, err := s.albums().UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"count": delta},
		"$set": bson.M{"last_ts": ts},
	})
	if err != nil {
		return errors.Wrapf(err, "update album %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(web.ErrNotFound, "album")
	}

	return nil
}

func (s *MongoStore) SetCoverIfEmpty(ctx context.Context, id primitive.ObjectID, fileID string) error {
	if _, err := s.albums().UpdateOne(ctx, bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"cover_id": bson.M{"$exists": false}},
			bson.M{"cover_id": ""},
		},
	}, bson.M{"$set": bson.M{"cover_id": fileID}}); err != nil {
		return errors.Wrapf(err, "set cover of album %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) ReplaceCover(ctx context.Context, id primitive.ObjectID, oldFileID, newFileID string) error {
	update := bson.M{"$set": bson.M{"cover_id": newFileID}}
	if newFileID == "" {
		update = bson.M{"$unset": bson.M{"cover_id": ""}}
	}

	if _, err := s.albums().UpdateOne(ctx, bson.M{"_id": id, "cover_id": oldFileID}, update); err != nil {
		return errors.Wrapf(err, "replace cover of album %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) InsertMedia(ctx context.Context, media *Media) error {
	if media.ID.IsZero() {
		media.ID = primitive.NewObjectID()
	}

	if _, err := s.medias().InsertOne(ctx, media); err != nil {
		return errors.Wrapf(err, "insert media %q", media.FileID)
	}

	return nil
}

func (s *MongoStore) GetMedia(ctx context.Context, id primitive.ObjectID) (*Media, error) {
	return mongo.FindOne[Media](ctx, s.medias(), bson.M{"_id": id, "exists": true}, "media")
}

func (s *MongoStore) ListMedias(ctx context.Context, filter MediaFilter) ([]*Media, error) {
	query := bson.M{"exists": true}
	if !filter.UserID.IsZero() {
		query["user_id"] = filter.UserID
	}
	if !filter.AlbumID.IsZero() {
		query["album_id"] = filter.AlbumID
	}

	return mongo.FindAll[Media](ctx, s.medias(), query, "medias",
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
}

func (s *MongoStore) HideMedia(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.medias().UpdateByID(ctx, id, bson.M{"$set": bson.M{"exists": false}}); err != nil {
		return errors.Wrapf(err, "hide media %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) DeleteMedia(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.medias().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrapf(err, "delete media %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) HideAlbumMedias(ctx context.Context, album primitive.ObjectID) ([]*Media, error) {
	medias, err := mongo.FindAll[Media](ctx, s.medias(),
		bson.M{"album_id": album, "exists": true}, "album medias")
	if err != nil {
		return nil, err
	}
	if len(medias) == 0 {
		return medias, nil
	}

	if _, err = s.medias().UpdateMany(ctx,
		bson.M{"album_id": album, "exists": true},
		bson.M{"$set": bson.M{"exists": false}}); err != nil {
		return nil, errors.Wrapf(err, "hide medias of album %s", album.Hex())
	}

	return medias, nil
}
