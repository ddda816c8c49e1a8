package users

import (
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// AuthLinkType is the login provider of an AuthLink
type AuthLinkType string

// AuthLinkPlain is the email or nick + password provider
const AuthLinkPlain AuthLinkType = "plain"

// User is a forum member
type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	// Hid is the short numeric id used in urls
	Hid        int64                `bson:"hid" json:"hid"`
	Nick       string               `bson:"nick" json:"nick"`
	Name       string               `bson:"name" json:"name"`
	Email      string               `bson:"email" json:"email"`
	Usergroups []primitive.ObjectID `bson:"usergroups" json:"usergroups"`
	JoinedTs   time.Time            `bson:"joined_ts" json:"joined_ts"`
	// Exists is false for deleted users
	Exists bool `bson:"exists" json:"exists"`
}

// AuthLink binds a login provider to a user
type AuthLink struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type   AuthLinkType       `bson:"type" json:"type"`
	Email  string             `bson:"email" json:"email"`
	// Pass is the bcrypt hash of the password
	Pass   string    `bson:"pass" json:"-"`
	Exist  bool      `bson:"exist" json:"exist"`
	IP     string    `bson:"ip" json:"ip"`
	LastTs time.Time `bson:"last_ts" json:"last_ts"`
}

// bcryptCost is a var so tests can speed up hashing
var bcryptCost = bcrypt.DefaultCost

// SetPass replaces the password hash
func (l *AuthLink) SetPass(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	l.Pass = string(hash)
	return nil
}

// CheckPass reports whether raw matches the stored password
func (l *AuthLink) CheckPass(raw string) bool {
	if l.Pass == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(l.Pass), []byte(raw)) == nil
}

// TokenResetPassword is a one-time password reset secret mailed to the user
type TokenResetPassword struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SecretKey  string             `bson:"secret_key" json:"-"`
	AuthLinkID primitive.ObjectID `bson:"authlink_id" json:"authlink_id"`
	IP         string             `bson:"ip" json:"ip"`
	CreateTs   time.Time          `bson:"create_ts" json:"create_ts"`
}

// IsExpired reports whether the token is older than ttl at now
func (t *TokenResetPassword) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.After(t.CreateTs.Add(ttl))
}
