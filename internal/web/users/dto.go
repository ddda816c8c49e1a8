package users

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicUser is the part of User visible to everyone
type PublicUser struct {
	ID       primitive.ObjectID `json:"_id"`
	Hid      int64              `json:"hid"`
	Nick     string             `json:"nick"`
	Name     string             `json:"name"`
	JoinedTs time.Time          `json:"joined_ts"`
}

// NewPublicUser strips private fields of u
func NewPublicUser(u *User) (*PublicUser, error) {
	pu := new(PublicUser)
	if err := copier.Copy(pu, u); err != nil {
		return nil, errors.Wrapf(err, "copy user %s", u.ID.Hex())
	}

	return pu, nil
}

// RegisterRequest is the registration form
type RegisterRequest struct {
	Email string `json:"email" form:"email" validate:"mailbox"`
	Nick  string `json:"nick" form:"nick" validate:"nick"`
	Pass  string `json:"pass" form:"pass" validate:"password"`
}

// LoginRequest is the plain login form
type LoginRequest struct {
	EmailOrNick  string `json:"email_or_nick" form:"email_or_nick" validate:"required"`
	Pass         string `json:"pass" form:"pass" validate:"required"`
	CaptchaToken string `json:"captcha_token" form:"captcha_token"`
	Redirect     string `json:"redirect" form:"redirect"`
}

// ChangePasswordRequest applies a new password with a reset secret
type ChangePasswordRequest struct {
	SecretKey   string `json:"secret_key" form:"secret_key"`
	NewPassword string `json:"new_password" form:"new_password" validate:"password"`
}

// LoginResult is returned by every operation that logs the user in
type LoginResult struct {
	Token       string      `json:"token"`
	User        *PublicUser `json:"user"`
	RedirectURL string      `json:"redirect_url,omitempty"`
}
