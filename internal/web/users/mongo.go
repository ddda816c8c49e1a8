package users

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
	ColUsers       = "users"
	ColAuthLinks   = "auth_links"
	ColResetTokens = "token_reset_passwords"

	seqUsers = "users"
)

// MongoStore is the Store backed by mongodb
type MongoStore struct {
	db mongo.DB
}

// NewMongoStore creates a MongoStore
func NewMongoStore(db mongo.DB) *MongoStore {
	return &MongoStore{db: db}
}

// Indexes returns the indexes of every users collection, keyed by collection
func Indexes() map[string][]mongoLib.IndexModel {
	return map[string][]mongoLib.IndexModel{
		ColUsers: {
			{Keys: bson.D{{Key: "hid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "nick", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ColAuthLinks: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "type", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		ColResetTokens: {
			{Keys: bson.D{{Key: "secret_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "authlink_id", Value: 1}}},
		},
	}
}

func (s *MongoStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return mongo.FindOne[User](ctx, s.db.GetCol(ColUsers), bson.M{"_id": id}, "user")
}

func (s *MongoStore) FindUserByHid(ctx context.Context, hid int64) (*User, error) {
	return mongo.FindOne[User](ctx, s.db.GetCol(ColUsers), bson.M{"hid": hid}, "user")
}

func (s *MongoStore) FindUserByNick(ctx context.Context, nick string) (*User, error) {
	return mongo.FindOne[User](ctx, s.db.GetCol(ColUsers), bson.M{"nick": nick}, "user")
}

func (s *MongoStore) CreateUser(ctx context.Context, u *User) error {
	hid, err := s.db.NextSeq(ctx, seqUsers)
	if err != nil {
		return errors.Wrap(err, "next user hid")
	}
	u.Hid = hid
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}

	if _, err = s.db.GetCol(ColUsers).InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKey(err) {
			return web.BadRequest(msgNickTaken, fieldNick).
				WithErrors(map[string]string{fieldNick: msgNickTaken})
		}

		return errors.Wrapf(err, "insert user %q", u.Nick)
	}

	return nil
}

func (s *MongoStore) FindPlainAuthLinkByEmail(ctx context.Context, email string) (*AuthLink, error) {
	return mongo.FindOne[AuthLink](ctx, s.db.GetCol(ColAuthLinks), bson.M{
		"email": email,
		"type":  AuthLinkPlain,
		"exist": true,
	}, "auth link")
}

func (s *MongoStore) FindPlainAuthLinkByUser(ctx context.Context, userID primitive.ObjectID) (*AuthLink, error) {
	return mongo.FindOne[AuthLink](ctx, s.db.GetCol(ColAuthLinks), bson.M{
		"user_id": userID,
		"type":    AuthLinkPlain,
		"exist":   true,
	}, "auth link")
}

func (s *MongoStore) FindAuthLinkByID(ctx context.Context, id primitive.ObjectID) (*AuthLink, error) {
	return mongo.FindOne[AuthLink](ctx, s.db.GetCol(ColAuthLinks), bson.M{"_id": id}, "auth link")
}

func (s *MongoStore) CreateAuthLink(ctx context.Context, link *AuthLink) error {
	if link.ID.IsZero() {
		link.ID = primitive.NewObjectID()
	}

	if _, err := s.db.GetCol(ColAuthLinks).InsertOne(ctx, link); err != nil {
		return errors.Wrapf(err, "insert auth link for %s", link.UserID.Hex())
	}

	return nil
}

func (s *MongoStore) SaveAuthLink(ctx context.Context, link *AuthLink) error {
	res, err := s.db.GetCol(ColAuthLinks).ReplaceOne(ctx, bson.M{"_id": link.ID}, link)
	if err != nil {
		return errors.Wrapf(err, "save auth link %s", link.ID.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(web.ErrNotFound, "auth link")
	}

	return nil
}

func (s *MongoStore) TouchAuthLink(ctx context.Context, id primitive.ObjectID, ip string, ts time.Time) error {
	if _, err := s.db.GetCol(ColAuthLinks).UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"ip": ip, "last_ts": ts},
	}); err != nil {
		return errors.Wrapf(err, "touch auth link %s", id.Hex())
	}

	return nil
}

func (s *MongoStore) CreateResetToken(ctx context.Context, token *TokenResetPassword) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}

	if _, err := s.db.GetCol(ColResetTokens).InsertOne(ctx, token); err != nil {
		return errors.Wrap(err, "insert reset token")
	}

	return nil
}

func (s *MongoStore) FindResetToken(ctx context.Context, secretKey string) (*TokenResetPassword, error) {
	return mongo.FindOne[TokenResetPassword](ctx, s.db.GetCol(ColResetTokens),
		bson.M{"secret_key": secretKey}, "reset token")
}

func (s *MongoStore) RemoveResetTokens(ctx context.Context, authLinkID primitive.ObjectID) error {
	if _, err := s.db.GetCol(ColResetTokens).DeleteMany(ctx, bson.M{"authlink_id": authLinkID}); err != nil {
		return errors.Wrapf(err, "remove reset tokens of %s", authLinkID.Hex())
	}

	return nil
}
