// Package auth resolves the current user of a request from its bearer token.
package auth

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/jwt"
	"github.com/Laisky/laisky-forum/library/web"
)

const (
	ctxKeyUserInfo = "forum_user_info"
	// TokenCookie is the cookie carrying the auth token for browser clients
	TokenCookie = "token"
)

// UserInfo describes who is sending the request.
// Guests have IsMember == false and a zero UserID.
type UserInfo struct {
	IsMember   bool
	UserID     primitive.ObjectID
	Nick       string
	Name       string
	Usergroups []primitive.ObjectID
	IP         string
}

// UserLoader loads the current state of an authenticated user.
// It returns web.ErrNotFound when the user no longer exists.
type UserLoader interface {
	LoadUserInfo(ctx context.Context, userID primitive.ObjectID) (*UserInfo, error)
}

// GroupResolver maps usergroup short names to ids
type GroupResolver interface {
	GroupIDsByShortNames(ctx context.Context, shortNames []string) ([]primitive.ObjectID, error)
}

// Auth builds UserInfo for every request
type Auth struct {
	signer *jwt.Signer
	loader UserLoader
}

// New creates Auth
func New(signer *jwt.Signer, loader UserLoader) (*Auth, error) {
	if signer == nil || loader == nil {
		return nil, errors.New("signer and loader are required")
	}

	return &Auth{signer: signer, loader: loader}, nil
}

func tokenFromRequest(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

// Middleware resolves the user and stores it in the gin context.
// Invalid or stale tokens downgrade the request to guest.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		info := &UserInfo{IP: ctx.ClientIP()}
		if token := tokenFromRequest(ctx); token != "" {
			if member, err := a.resolve(ctx, token); err != nil {
				gmw.GetLogger(ctx).Debug("downgrade to guest", zap.Error(err))
			} else {
				member.IP = info.IP
				info = member
			}
		}

		ctx.Set(ctxKeyUserInfo, info)
		ctx.Next()
	}
}

func (a *Auth) resolve(ctx context.Context, token string) (*UserInfo, error) {
	claims, err := a.signer.Parse(token)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}

	uid, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid subject %q", claims.Subject)
	}

	info, err := a.loader.LoadUserInfo(ctx, uid)
	if err != nil {
		return nil, errors.Wrapf(err, "load user %s", uid.Hex())
	}

	info.IsMember = true
	return info, nil
}

// SetUserInfo stores info in ctx
func SetUserInfo(ctx *gin.Context, info *UserInfo) {
	ctx.Set(ctxKeyUserInfo, info)
}

// GetUserInfo returns the resolved user, a guest when nothing was resolved
func GetUserInfo(ctx *gin.Context) *UserInfo {
	if v, ok := ctx.Get(ctxKeyUserInfo); ok {
		if info, ok := v.(*UserInfo); ok && info != nil {
			return info
		}
	}

	return &UserInfo{IP: ctx.ClientIP()}
}

// RequireMember hides the endpoint from guests
func RequireMember(ctx *gin.Context) {
	if !GetUserInfo(ctx).IsMember {
		web.Abort(ctx, web.NotFound())
		return
	}

	ctx.Next()
}

// RequireGuest rejects logged in users
func RequireGuest(ctx *gin.Context) {
	if GetUserInfo(ctx).IsMember {
		web.Abort(ctx, web.BadRequest("already logged in"))
		return
	}

	ctx.Next()
}

// RequireUsergroups only lets in members of one of the named usergroups
func RequireUsergroups(resolver GroupResolver, shortNames []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		info := GetUserInfo(ctx)
		if !info.IsMember {
			web.Abort(ctx, web.NotFound())
			return
		}

		allowed, err := resolver.GroupIDsByShortNames(ctx, shortNames)
		if err != nil {
			web.Abort(ctx, errors.Wrap(err, "resolve usergroups"))
			return
		}

		if !InAnyGroup(info.Usergroups, allowed) {
			web.Abort(ctx, web.Forbidden())
			return
		}

		ctx.Next()
	}
}

// InAnyGroup reports whether groups and allowed intersect
func InAnyGroup(groups, allowed []primitive.ObjectID) bool {
	for _, g := range groups {
		for _, a := range allowed {
			if g == a {
				return true
			}
		}
	}

	return false
}
