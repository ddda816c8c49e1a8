package dialogs

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-forum/library/auth"
	"github.com/Laisky/laisky-forum/library/web"
)

// RegisterRoutes mounts the dialog endpoints on r, all of them are member only
func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &httpHandler{service: svc}

	g := r.Group("/api/users/dialogs", auth.RequireMember)
	g.GET("", h.list)
	g.POST("/send", h.send)
	g.POST("/infraction_info", h.infractionInfo)
	g.GET("/:dialog_id", h.messages)
	g.DELETE("/messages/:message_id", h.destroyMessage)
	g.DELETE("/:dialog_id", h.destroyDialog)
}

type httpHandler struct {
	service *Service
}

func parsePage(ctx *gin.Context) (int, error) {
	raw := ctx.Query("page")
	if raw == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, web.BadRequest("invalid page", "page")
	}

	return page, nil
}

func (h *httpHandler) send(ctx *gin.Context) {
	var req SendInput
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest("invalid request"))
		return
	}

	result, err := h.service.Send(ctx, auth.GetUserInfo(ctx).UserID, req.To, req.Message)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, result)
}

func (h *httpHandler) list(ctx *gin.Context) {
	page, err := parsePage(ctx)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	dialogs, err := h.service.ListDialogs(ctx, auth.GetUserInfo(ctx).UserID, page)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"dialogs": dialogs, "page": page})
}

func (h *httpHandler) messages(ctx *gin.Context) {
	dialogID, err := web.ParseObjectID("dialog_id", ctx.Param("dialog_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}
	page, err := parsePage(ctx)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	dialog, msgs, err := h.service.ListMessages(ctx, auth.GetUserInfo(ctx).UserID, dialogID, page)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"dialog": dialog, "messages": msgs, "page": page})
}

func (h *httpHandler) destroyMessage(ctx *gin.Context) {
	messageID, err := web.ParseObjectID("message_id", ctx.Param("message_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	count, err := h.service.DestroyMessage(ctx, auth.GetUserInfo(ctx).UserID, messageID)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"message_count": count})
}

func (h *httpHandler) destroyDialog(ctx *gin.Context) {
	dialogID, err := web.ParseObjectID("dialog_id", ctx.Param("dialog_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	if err = h.service.DestroyDialog(ctx, auth.GetUserInfo(ctx).UserID, dialogID); err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{})
}

func (h *httpHandler) infractionInfo(ctx *gin.Context) {
	var req struct {
		Infractions []Infraction `json:"infractions"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		web.Abort(ctx, web.BadRequest("invalid infractions", "infractions"))
		return
	}

	info, err := h.service.InfractionInfo(ctx, auth.GetUserInfo(ctx).UserID, req.Infractions)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"info": info})
}
