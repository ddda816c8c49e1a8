package users

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store persists users, auth links and reset tokens.
//
// Lookups return an error wrapping web.ErrNotFound when nothing matches.
type Store interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindUserByHid(ctx context.Context, hid int64) (*User, error)
	FindUserByNick(ctx context.Context, nick string) (*User, error)
	// CreateUser assigns the next hid and inserts u
	CreateUser(ctx context.Context, u *User) error

	FindPlainAuthLinkByEmail(ctx context.Context, email string) (*AuthLink, error)
	FindPlainAuthLinkByUser(ctx context.Context, userID primitive.ObjectID) (*AuthLink, error)
	FindAuthLinkByID(ctx context.Context, id primitive.ObjectID) (*AuthLink, error)
	CreateAuthLink(ctx context.Context, link *AuthLink) error
	SaveAuthLink(ctx context.Context, link *AuthLink) error
	TouchAuthLink(ctx context.Context, id primitive.ObjectID, ip string, ts time.Time) error

	CreateResetToken(ctx context.Context, token *TokenResetPassword) error
	FindResetToken(ctx context.Context, secretKey string) (*TokenResetPassword, error)
	RemoveResetTokens(ctx context.Context, authLinkID primitive.ObjectID) error
}
