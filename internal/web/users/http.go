package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-forum/library/auth"
	"github.com/Laisky/laisky-forum/library/throttle"
	"github.com/Laisky/laisky-forum/library/web"
)

// check_nick is called on every keystroke of the registration form
const (
	checkNickRPS   = 2
	checkNickBurst = 5
)

// RegisterRoutes mounts the users endpoints on r
func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &httpHandler{service: svc}
	nickLimiter := throttle.NewIPLimiter(checkNickRPS, checkNickBurst)

	g := r.Group("/api/users")
	g.POST("/auth/register/check_nick", nickLimiter.Middleware(), h.checkNick)
	g.POST("/auth/register/exec", auth.RequireGuest, h.register)
	g.POST("/auth/login/plain_exec", auth.RequireGuest, h.loginPlain)
	g.POST("/auth/reset_password/request_exec", auth.RequireGuest, h.requestPasswordReset)
	g.POST("/auth/reset_password/change_exec", auth.RequireGuest, h.changePassword)
	g.GET("/:user_hid", h.show)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) checkNick(ctx *gin.Context) {
	var req struct {
		Nick string `json:"nick" form:"nick"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest("invalid request", fieldNick))
		return
	}

	if err := h.service.CheckNick(ctx, req.Nick); err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{})
}

func (h *httpHandler) register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest(msgInvalidRegistration))
		return
	}

	result, err := h.service.Register(ctx, req, ctx.ClientIP())
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	setTokenCookie(ctx, result.Token)
	web.OK(ctx, result)
}

func (h *httpHandler) loginPlain(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest(msgLoginFailed, fieldEmailOrNick, fieldPass).With("captcha", false))
		return
	}

	result, err := h.service.LoginPlain(ctx, req, ctx.ClientIP())
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	setTokenCookie(ctx, result.Token)
	web.OK(ctx, result)
}

func (h *httpHandler) requestPasswordReset(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest(msgInvalidEmail, fieldEmail))
		return
	}

	if err := h.service.RequestPasswordReset(ctx, req.Email, ctx.ClientIP()); err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{})
}

func (h *httpHandler) changePassword(ctx *gin.Context) {
	var req ChangePasswordRequest
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest(msgExpiredToken).With("bad_password", false))
		return
	}

	result, err := h.service.ChangePassword(ctx, req)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	setTokenCookie(ctx, result.Token)
	web.OK(ctx, result)
}

func (h *httpHandler) show(ctx *gin.Context) {
	hid, err := ParseHid(ctx.Param("user_hid"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	user, err := h.service.FetchUserByHid(ctx, hid)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	pu, err := NewPublicUser(user)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"user": pu})
}

// ParseHid parses a user hid path param, it must be an integer >= 1
func ParseHid(raw string) (int64, error) {
	hid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || hid < 1 {
		return 0, web.BadRequest("invalid user_hid", "user_hid")
	}

	return hid, nil
}

func setTokenCookie(ctx *gin.Context, token string) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
