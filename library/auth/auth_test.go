package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/jwt"
	"github.com/Laisky/laisky-forum/library/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLoader map[primitive.ObjectID]*UserInfo

func (f fakeLoader) LoadUserInfo(_ context.Context, id primitive.ObjectID) (*UserInfo, error) {
	if u, ok := f[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errors.WithStack(web.ErrNotFound)
}

type fakeResolver map[string]primitive.ObjectID

func (f fakeResolver) GroupIDsByShortNames(_ context.Context, names []string) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	for _, n := range names {
		if id, ok := f[n]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func newTestRouter(t *testing.T, loader fakeLoader, resolver fakeResolver) (*gin.Engine, *jwt.Signer) {
	t.Helper()
	signer, err := jwt.New([]byte("secret"), time.Hour)
	require.NoError(t, err)
	a, err := New(signer, loader)
	require.NoError(t, err)

	r := gin.New()
	r.Use(a.Middleware())
	r.GET("/whoami", func(ctx *gin.Context) {
		info := GetUserInfo(ctx)
		ctx.JSON(http.StatusOK, gin.H{"member": info.IsMember, "nick": info.Nick})
	})
	r.GET("/member", RequireMember, func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.GET("/guest", RequireGuest, func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.GET("/admin", RequireUsergroups(resolver, []string{"administrators"}),
		func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	return r, signer
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	adminGroup := primitive.NewObjectID()
	memberGroup := primitive.NewObjectID()
	adminID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	loader := fakeLoader{
		adminID: {UserID: adminID, Nick: "root", Usergroups: []primitive.ObjectID{adminGroup}},
		userID:  {UserID: userID, Nick: "alice", Usergroups: []primitive.ObjectID{memberGroup}},
	}
	r, signer := newTestRouter(t, loader, fakeResolver{"administrators": adminGroup})

	adminToken, err := signer.Sign(adminID.Hex(), "root")
	require.NoError(t, err)
	userToken, err := signer.Sign(userID.Hex(), "alice")
	require.NoError(t, err)
	goneToken, err := signer.Sign(primitive.NewObjectID().Hex(), "gone")
	require.NoError(t, err)

	require.JSONEq(t, `{"member":false,"nick":""}`, do(r, "/whoami", "").Body.String())
	require.JSONEq(t, `{"member":true,"nick":"alice"}`, do(r, "/whoami", userToken).Body.String())
	require.JSONEq(t, `{"member":false,"nick":""}`, do(r, "/whoami", goneToken).Body.String())
	require.JSONEq(t, `{"member":false,"nick":""}`, do(r, "/whoami", "garbage").Body.String())

	require.Equal(t, http.StatusNotFound, do(r, "/member", "").Code)
	require.Equal(t, http.StatusOK, do(r, "/member", userToken).Code)

	require.Equal(t, http.StatusOK, do(r, "/guest", "").Code)
	require.Equal(t, http.StatusBadRequest, do(r, "/guest", userToken).Code)

	require.Equal(t, http.StatusNotFound, do(r, "/admin", "").Code)
	require.Equal(t, http.StatusForbidden, do(r, "/admin", userToken).Code)
	require.Equal(t, http.StatusOK, do(r, "/admin", adminToken).Code)
}

func TestTokenFromCookie(t *testing.T) {
	userID := primitive.NewObjectID()
	r, signer := newTestRouter(t, fakeLoader{userID: {UserID: userID, Nick: "bob"}}, fakeResolver{})
	token, err := signer.Sign(userID.Hex(), "bob")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.JSONEq(t, `{"member":true,"nick":"bob"}`, w.Body.String())
}

func TestInAnyGroup(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	require.True(t, InAnyGroup([]primitive.ObjectID{a, b}, []primitive.ObjectID{b}))
	require.False(t, InAnyGroup([]primitive.ObjectID{a}, []primitive.ObjectID{b}))
	require.False(t, InAnyGroup(nil, []primitive.ObjectID{b}))
}
