package web

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
)

// OK writes `{"data": payload}`
func OK(ctx *gin.Context, payload any) {
	ctx.JSON(http.StatusOK, gin.H{"data": payload})
}

// Abort writes err as the error envelope and aborts the handler chain.
//
// ClientError keeps its own code, ErrNotFound becomes 404,
// ErrForbidden becomes 403, everything else is logged and hidden behind a 500.
func Abort(ctx *gin.Context, err error) {
	if cerr, ok := AsClientError(err); ok {
		ctx.AbortWithStatusJSON(cerr.Code, envelope(cerr))
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		ctx.AbortWithStatusJSON(http.StatusNotFound, envelope(NotFound()))
	case errors.Is(err, ErrForbidden):
		ctx.AbortWithStatusJSON(http.StatusForbidden, envelope(Forbidden()))
	default:
		gmw.GetLogger(ctx).Error("handle request", zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func envelope(cerr *ClientError) gin.H {
	resp := gin.H{}
	for k, v := range cerr.Data {
		resp[k] = v
	}

	if cerr.Message == "" {
		resp["error"] = nil
	} else {
		resp["error"] = cerr.Message
	}
	if len(cerr.Fields) != 0 {
		resp["fields"] = cerr.Fields
	}
	if len(cerr.Errors) != 0 {
		resp["errors"] = cerr.Errors
	}

	return resp
}
