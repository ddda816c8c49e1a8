package usergroups

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/auth"
)

func newTestRouter(t *testing.T, svc *Service, groups ...string) *gin.Engine {
	t.Helper()
	ids, err := svc.GroupIDsByShortNames(context.Background(), groups)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(ctx *gin.Context) {
		auth.SetUserInfo(ctx, &auth.UserInfo{
			IsMember:   true,
			UserID:     primitive.NewObjectID(),
			Usergroups: ids,
		})
	})
	RegisterRoutes(router, svc, []string{GroupAdministrators})
	return router
}

func TestHTTPRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	router := newTestRouter(t, svc, GroupMembers)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/usergroups", nil))
	require.NotEqual(t, http.StatusOK, w.Code)
}

func TestHTTPCrud(t *testing.T) {
	svc, store := newTestService(t)
	router := newTestRouter(t, svc, GroupAdministrators)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/usergroups/add", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"settings_categories"`)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/usergroups",
		strings.NewReader(`{"short_name":"editors","settings":{"forum_can_reply":true}}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	group, err := store.FindByShortName(context.Background(), "editors")
	require.NoError(t, err)
	require.Equal(t, true, group.Settings["forum_can_reply"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/usergroups/"+group.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"item_groups"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/usergroups/123", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/admin/usergroups/"+group.ID.Hex(),
		strings.NewReader(`{"short_name":"editors","settings":{"forum_can_reply":"yes"}}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "forum_can_reply")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/admin/usergroups/"+group.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.groups, 3)
}
