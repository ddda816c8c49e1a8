package usergroups

import (
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-forum/library/auth"
	"github.com/Laisky/laisky-forum/library/web"
)

// RegisterRoutes mounts the admin usergroup endpoints on r.
// Only members of adminGroups may call them.
func RegisterRoutes(r gin.IRouter, svc *Service, adminGroups []string) {
	h := &httpHandler{service: svc}

	g := r.Group("/api/admin/usergroups", auth.RequireUsergroups(svc, adminGroups))
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/add", h.addForm)
	g.GET("/:id", h.show)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.destroy)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) list(ctx *gin.Context) {
	groups, err := h.service.List(ctx)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"usergroups": groups})
}

func (h *httpHandler) addForm(ctx *gin.Context) {
	form, err := h.service.AddForm(ctx)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, form)
}

func (h *httpHandler) show(ctx *gin.Context) {
	id, err := web.ParseObjectID(fieldID, ctx.Param("id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	page, err := h.service.Show(ctx, id)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, page)
}

func bindInput(ctx *gin.Context) (GroupInput, error) {
	var in GroupInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		return in, web.BadRequest("invalid usergroup", fieldShortName, fieldParentGroup, fieldSettings)
	}

	return in, nil
}

func (h *httpHandler) create(ctx *gin.Context) {
	in, err := bindInput(ctx)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	group, err := h.service.Create(ctx, in)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"usergroup": group})
}

func (h *httpHandler) update(ctx *gin.Context) {
	id, err := web.ParseObjectID(fieldID, ctx.Param("id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}
	in, err := bindInput(ctx)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	group, err := h.service.Update(ctx, id, in)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"usergroup": group})
}

func (h *httpHandler) destroy(ctx *gin.Context) {
	id, err := web.ParseObjectID(fieldID, ctx.Param("id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	if err = h.service.Destroy(ctx, id); err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{})
}
