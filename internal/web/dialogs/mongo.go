package dialogs

import (
	"context"

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
	ColDialogs  = "dialogs"
	ColMessages = "dlg_messages"
)

// MongoStore is the Store backed by mongodb
type MongoStore struct {
	db mongo.DB
}

// NewMongoStore creates a MongoStore
func NewMongoStore(db mongo.DB) *MongoStore {
	return &MongoStore{db: db}
}

// Indexes returns the indexes of the dialog collections
func Indexes() map[string][]mongoLib.IndexModel {
	return map[string][]mongoLib.IndexModel{
		ColDialogs: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "to", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "exists", Value: 1}, {Key: "cache.last_ts", Value: -1}}},
		},
		ColMessages: {
			{Keys: bson.D{{Key: "parent", Value: 1}, {Key: "exists", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
}

func (s *MongoStore) dialogs() *mongoLib.Collection {
	return s.db.GetCol(ColDialogs)
}

func (s *MongoStore) messages() *mongoLib.Collection {
	return s.db.GetCol(ColMessages)
}

func (s *MongoStore) FindDialogBetween(ctx context.Context, owner, opponent primitive.ObjectID) (*Dialog, error) {
	return mongo.FindOne[Dialog](ctx, s.dialogs(), bson.M{"user": owner, "to": opponent}, "dialog")
}

func (s *MongoStore) CreateDialog(ctx context.Context, dlg *Dialog) error {
	if dlg.ID.IsZero() {
		dlg.ID = primitive.NewObjectID()
	}

	if _, err := s.dialogs().InsertOne(ctx, dlg); err != nil {
		return errors.Wrapf(err, "insert dialog of %s", dlg.User.Hex())
	}

	return nil
}

func (s *MongoStore) GetDialog(ctx context.Context, id primitive.ObjectID) (*Dialog, error) {
	return mongo.FindOne[Dialog](ctx, s.dialogs(), bson.M{"_id": id}, "dialog")
}

func (s *MongoStore) FindDialogs(ctx context.Context, ids []primitive.ObjectID, owner primitive.ObjectID) ([]*Dialog, error) {
	return mongo.FindAll[Dialog](ctx, s.dialogs(), bson.M{
		"_id":  bson.M{"$in": ids},
		"user": owner,
	}, "dialogs")
}

func (s *MongoStore) ListDialogs(ctx context.Context, owner primitive.ObjectID, skip, limit int) ([]*Dialog, error) {
	return mongo.FindAll[Dialog](ctx, s.dialogs(), bson.M{
		"user":   owner,
		"exists": true,
	}, "dialogs", options.Find().
		SetSort(bson.D{{Key: "cache.last_ts", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit)))
}

func (s *MongoStore) TouchDialog(ctx context.Context, id primitive.ObjectID, cache DialogCache, unreadInc int) error {
	res, err := s.dialogs().UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"exists": true, "cache": cache},
		"$inc": bson.M{"unread": unreadInc},
	})
	if err != nil {
		return errors.Wrapf(err, "update dialog %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(web.ErrNotFound, "dialog")
	}

	return nil
}

func (s *MongoStore) ResetUnread(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.dialogs().UpdateByID(ctx, id, bson.M{"$set": bson.M{"unread": 0}}); err != nil {
		return errors.Wrapf(err, "reset unread of %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) SetDialogExists(ctx context.Context, id primitive.ObjectID, exists bool) error {
	if _, err := s.dialogs().UpdateByID(ctx, id, bson.M{"$set": bson.M{"exists": exists}}); err != nil {
		return errors.Wrapf(err, "update dialog %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *DlgMessage) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}

	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return errors.Wrapf(err, "insert message into %s", msg.Parent.Hex())
	}

	return nil
}

func (s *MongoStore) GetExistingMessage(ctx context.Context, id primitive.ObjectID) (*DlgMessage, error) {
	return mongo.FindOne[DlgMessage](ctx, s.messages(), bson.M{"_id": id, "exists": true}, "message")
}

func (s *MongoStore) FindMessages(ctx context.Context, ids []primitive.ObjectID) ([]*DlgMessage, error) {
	return mongo.FindAll[DlgMessage](ctx, s.messages(), bson.M{"_id": bson.M{"$in": ids}}, "messages")
}

func (s *MongoStore) ListMessages(ctx context.Context, dialog primitive.ObjectID, skip, limit int) ([]*DlgMessage, error) {
	return mongo.FindAll[DlgMessage](ctx, s.messages(), bson.M{
		"parent": dialog,
		"exists": true,
	}, "messages", options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit)))
}

func (s *MongoStore) CountMessages(ctx context.Context, dialog primitive.ObjectID) (int64, error) {
	n, err := s.messages().CountDocuments(ctx, bson.M{"parent": dialog, "exists": true})
	if err != nil {
		return 0, errors.Wrapf(err, "count messages of %s", dialog.Hex())
	}

	return n, nil
}

func (s *MongoStore) HideMessage(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.messages().UpdateByID(ctx, id, bson.M{"$set": bson.M{"exists": false}}); err != nil {
		return errors.Wrapf(err, "hide message %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) HideDialogMessages(ctx context.Context, dialog primitive.ObjectID) error {
	if _, err := s.messages().UpdateMany(ctx,
		bson.M{"parent": dialog, "exists": true},
		bson.M{"$set": bson.M{"exists": false}}); err != nil {
		return errors.Wrapf(err, "hide messages of %s", dialog.Hex())
	}

	return nil
}
