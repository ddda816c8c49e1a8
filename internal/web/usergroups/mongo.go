package usergroups

import (
	"context"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/db/mongo"
	"github.com/Laisky/laisky-forum/library/web"
)

// ColUsergroups is the usergroups collection
const ColUsergroups = "usergroups"

// MongoStore is the Store backed by mongodb
type MongoStore struct {
	db mongo.DB
}

// NewMongoStore creates a MongoStore
func NewMongoStore(db mongo.DB) *MongoStore {
	return &MongoStore{db: db}
}

// Indexes returns the indexes of the usergroups collection
func Indexes() map[string][]mongoLib.IndexModel {
	return map[string][]mongoLib.IndexModel{
		ColUsergroups: {
			{Keys: bson.D{{Key: "short_name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "parent_group", Value: 1}}},
		},
		users.ColUsers: {
			{Keys: bson.D{{Key: "usergroups", Value: 1}}},
		},
	}
}

func (s *MongoStore) col() *mongoLib.Collection {
	return s.db.GetCol(ColUsergroups)
}

func (s *MongoStore) GetGroup(ctx context.Context, id primitive.ObjectID) (*UserGroup, error) {
	return mongo.FindOne[UserGroup](ctx, s.col(), bson.M{"_id": id}, "usergroup")
}

func (s *MongoStore) FindByShortName(ctx context.Context, shortName string) (*UserGroup, error) {
	return mongo.FindOne[UserGroup](ctx, s.col(), bson.M{"short_name": shortName}, "usergroup")
}

func (s *MongoStore) FindByShortNames(ctx context.Context, shortNames []string) ([]*UserGroup, error) {
	return mongo.FindAll[UserGroup](ctx, s.col(),
		bson.M{"short_name": bson.M{"$in": shortNames}}, "usergroups")
}

func (s *MongoStore) ListGroups(ctx context.Context) ([]*UserGroup, error) {
	return mongo.FindAll[UserGroup](ctx, s.col(), bson.M{}, "usergroups",
		options.Find().SetSort(bson.D{{Key: "short_name", Value: 1}}))
}

func (s *MongoStore) CreateGroup(ctx context.Context, group *UserGroup) error {
	if group.ID.IsZero() {
		group.ID = primitive.NewObjectID()
	}

	if _, err := s.col().InsertOne(ctx, group); err != nil {
		if mongo.IsDuplicateKey(err) {
			return web.BadRequest(msgShortNameTaken, fieldShortName)
		}

		return errors.Wrapf(err, "insert usergroup %q", group.ShortName)
	}

	return nil
}

func (s *MongoStore) SaveGroup(ctx context.Context, group *UserGroup) error {
	res, err := s.col().ReplaceOne(ctx, bson.M{"_id": group.ID}, group)
	if err != nil {
		if mongo.IsDuplicateKey(err) {
			return web.BadRequest(msgShortNameTaken, fieldShortName)
		}

		return errors.Wrapf(err, "save usergroup %s", group.ID.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(web.ErrNotFound, "usergroup")
	}

	return nil
}

func (s *MongoStore) DeleteGroup(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.col().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrapf(err, "delete usergroup %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) CountChildren(ctx context.Context, id primitive.ObjectID) (int64, error) {
	n, err := s.col().CountDocuments(ctx, bson.M{"parent_group": id})
	if err != nil {
		return 0, errors.Wrapf(err, "count children of %s", id.Hex())
	}

	return n, nil
}

func (s *MongoStore) CountMembers(ctx context.Context, id primitive.ObjectID) (int64, error) {
	n, err := s.db.GetCol(users.ColUsers).CountDocuments(ctx, bson.M{"usergroups": id})
	if err != nil {
		return 0, errors.Wrapf(err, "count members of %s", id.Hex())
	}

	return n, nil
}
