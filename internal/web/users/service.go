// Package users implements forum accounts: registration, plain login
// and password reset.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/auth"
	"github.com/Laisky/laisky-forum/library/jwt"
	"github.com/Laisky/laisky-forum/library/log"
	"github.com/Laisky/laisky-forum/library/mailer"
	"github.com/Laisky/laisky-forum/library/throttle"
	"github.com/Laisky/laisky-forum/library/web"
)

// Clock returns the current UTC time. Tests can replace it for determinism.
type Clock func() time.Time

// Settings of the users service
type Settings struct {
	ResetPasswordTTL time.Duration
	// PublicURL prefixes links sent by mail
	PublicURL string
	// RegisteredGroup is the usergroup short name given to new users
	RegisteredGroup string
}

// CaptchaVerifier checks captcha solutions, see captcha.Verifier
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}

// Deps are the collaborators of Service
type Deps struct {
	Store   Store
	Signer  *jwt.Signer
	Limiter *throttle.LoginLimiter
	// Captcha is optional, nil disables captcha
	Captcha CaptchaVerifier
	Mailer  mailer.Mailer
	// Groups is optional, nil skips the registered usergroup
	Groups auth.GroupResolver
	Logger logSDK.Logger
	Clock  Clock
}

// Service implements the account operations
type Service struct {
	Deps
	settings Settings
}

// NewService creates Service
func NewService(deps Deps, settings Settings) (*Service, error) {
	if deps.Store == nil || deps.Signer == nil || deps.Limiter == nil {
		return nil, errors.New("store, signer and limiter are required")
	}
	if deps.Mailer == nil {
		deps.Mailer = mailer.LogMailer{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Logger.Named("users")
	}
	if deps.Clock == nil {
		deps.Clock = gutils.Clock.GetUTCNow
	}
	if settings.ResetPasswordTTL <= 0 {
		settings.ResetPasswordTTL = 6 * time.Hour
	}
	settings.PublicURL = strings.TrimSuffix(settings.PublicURL, "/")

	return &Service{Deps: deps, settings: settings}, nil
}

// LoadUserInfo implements auth.UserLoader
func (s *Service) LoadUserInfo(ctx context.Context, userID primitive.ObjectID) (*auth.UserInfo, error) {
	u, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Exists {
		return nil, errors.Wrapf(web.ErrNotFound, "user %s is deleted", userID.Hex())
	}

	return &auth.UserInfo{
		UserID:     u.ID,
		Nick:       u.Nick,
		Name:       u.Name,
		Usergroups: u.Usergroups,
	}, nil
}

// FetchUserByHid returns an existing user by its hid
func (s *Service) FetchUserByHid(ctx context.Context, hid int64) (*User, error) {
	u, err := s.Store.FindUserByHid(ctx, hid)
	if err != nil {
		return nil, err
	}
	if !u.Exists {
		return nil, errors.Wrapf(web.ErrNotFound, "user %d is deleted", hid)
	}

	return u, nil
}

// FetchUsers returns the users of ids that exist, missing ids are skipped
func (s *Service) FetchUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*User, error) {
	result := make(map[primitive.ObjectID]*User, len(ids))
	for _, id := range ids {
		if _, ok := result[id]; ok {
			continue
		}

		u, err := s.Store.FindUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, web.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result[id] = u
	}

	return result, nil
}

// FetchUserByNick returns an existing user by nick
func (s *Service) FetchUserByNick(ctx context.Context, nick string) (*User, error) {
	u, err := s.Store.FindUserByNick(ctx, nick)
	if err != nil {
		return nil, err
	}
	if !u.Exists {
		return nil, errors.Wrapf(web.ErrNotFound, "user %q is deleted", nick)
	}

	return u, nil
}

// login issues a token for u
func (s *Service) login(u *User, redirect string) (*LoginResult, error) {
	token, err := s.Signer.Sign(u.ID.Hex(), u.Nick)
	if err != nil {
		return nil, errors.Wrapf(err, "sign token for %s", u.ID.Hex())
	}

	pu, err := NewPublicUser(u)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:       token,
		User:        pu,
		RedirectURL: sanitizeRedirect(redirect),
	}, nil
}
