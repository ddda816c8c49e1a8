package albums

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/auth"
	"github.com/Laisky/laisky-forum/library/web"
)

// RegisterRoutes mounts the album, media and file endpoints on r
func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &httpHandler{service: svc}

	g := r.Group("/api/users")
	g.GET("/uploader_config", h.uploaderConfig)
	g.GET("/:user_hid/album", h.albumPage)
	g.GET("/:user_hid/album/:album_id", h.albumPage)
	g.GET("/:user_hid/albums", h.listAlbums)
	g.POST("/albums", auth.RequireMember, h.createAlbum)
	g.DELETE("/albums/:album_id", auth.RequireMember, h.destroyAlbum)
	g.POST("/media/upload", auth.RequireMember, h.uploadMedia)
	g.DELETE("/media/:media_id", auth.RequireMember, h.destroyMedia)

	r.GET("/files/:file_id", h.serveFile)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) uploaderConfig(ctx *gin.Context) {
	web.OK(ctx, h.service.UploaderConfig())
}

func (h *httpHandler) albumPage(ctx *gin.Context) {
	hid, err := users.ParseHid(ctx.Param("user_hid"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}
	albumID, err := web.ParseOptionalObjectID("album_id", ctx.Param("album_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	page, err := h.service.AlbumPage(ctx, hid, albumID, auth.GetUserInfo(ctx).IsMember)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, page)
}

func (h *httpHandler) listAlbums(ctx *gin.Context) {
	hid, err := users.ParseHid(ctx.Param("user_hid"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	albums, err := h.service.ListAlbums(ctx, hid)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"albums": albums})
}

func (h *httpHandler) createAlbum(ctx *gin.Context) {
	var req AlbumInput
	if err := ctx.ShouldBind(&req); err != nil {
		web.Abort(ctx, web.BadRequest(msgInvalidTitle, fieldTitle))
		return
	}

	album, err := h.service.CreateAlbum(ctx, auth.GetUserInfo(ctx).UserID, req.Title)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"album": album})
}

func (h *httpHandler) destroyAlbum(ctx *gin.Context) {
	albumID, err := web.ParseObjectID("album_id", ctx.Param("album_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	if err = h.service.DestroyAlbum(ctx, auth.GetUserInfo(ctx).UserID, albumID); err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{})
}

func (h *httpHandler) uploadMedia(ctx *gin.Context) {
	albumID, err := web.ParseOptionalObjectID("album_id", ctx.PostForm("album_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	fh, err := ctx.FormFile(fieldFile)
	if err != nil {
		web.Abort(ctx, web.BadRequest("missing file", fieldFile))
		return
	}

	f, err := fh.Open()
	if err != nil {
		web.Abort(ctx, err)
		return
	}
	defer gutils.CloseWithLog(f, gmw.GetLogger(ctx))

	media, err := h.service.UploadMedia(ctx, auth.GetUserInfo(ctx).UserID, albumID, fh.Filename, fh.Size, f)
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{"media": media})
}

func (h *httpHandler) destroyMedia(ctx *gin.Context) {
	mediaID, err := web.ParseObjectID("media_id", ctx.Param("media_id"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}

	if err = h.service.DestroyMedia(ctx, auth.GetUserInfo(ctx).UserID, mediaID); err != nil {
		web.Abort(ctx, err)
		return
	}

	web.OK(ctx, gin.H{})
}

func (h *httpHandler) serveFile(ctx *gin.Context) {
	rc, info, err := h.service.OpenFile(ctx, ctx.Param("file_id"), ctx.Query("size"))
	if err != nil {
		web.Abort(ctx, err)
		return
	}
	defer gutils.CloseWithLog(rc, gmw.GetLogger(ctx))

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx.DataFromReader(http.StatusOK, info.Size, contentType, rc, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}
