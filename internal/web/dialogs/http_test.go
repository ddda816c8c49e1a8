package dialogs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/auth"
)

func newTestRouter(env *testEnv, as *users.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(ctx *gin.Context) {
		info := &auth.UserInfo{IP: ctx.ClientIP()}
		if as != nil {
			info.IsMember = true
			info.UserID = as.ID
		}
		auth.SetUserInfo(ctx, info)
	})
	RegisterRoutes(router, env.svc)
	return router
}

func TestHTTPGuestGetsNotFound(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/dialogs", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPSendAndDestroy(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, env.alice)

	req := httptest.NewRequest(http.MethodPost, "/api/users/dialogs/send",
		strings.NewReader(`{"to":"bob","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.store.messages, 2)

	msgID := env.store.messages[0].ID.Hex()
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/dialogs/messages/"+msgID, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"data":{"message_count":0}}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/dialogs/messages/bad-id", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
