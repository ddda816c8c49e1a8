// Package web assembles the gin server of the forum
package web

import (
	"net/http"
	"net/url"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-forum/internal/global"
	"github.com/Laisky/laisky-forum/internal/metrics"
	"github.com/Laisky/laisky-forum/internal/web/albums"
	"github.com/Laisky/laisky-forum/internal/web/dialogs"
	"github.com/Laisky/laisky-forum/internal/web/usergroups"
	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/log"
)

// RunServer serves the forum api on addr, global services must be set up
func RunServer(addr string) {
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		newCORSMiddleware(gconfig.Shared.GetStringSlice("settings.web.cors_domains")),
		global.Auth.Middleware(),
	)

	metrics.Register()
	if err := gmw.EnableMetric(server); err != nil {
		log.Logger.Panic("enable metric server", zap.Error(err))
	}

	health := newStatusHandler()
	server.GET("/health", health)
	server.HEAD("/health", health)
	server.OPTIONS("/health", health)

	users.RegisterRoutes(server, global.UsersSvc)
	dialogs.RegisterRoutes(server, global.DialogsSvc)
	albums.RegisterRoutes(server, global.AlbumsSvc)
	usergroups.RegisterRoutes(server, global.UsergroupsSvc, global.AdminGroups)

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("httpServer exit", zap.Error(server.Run(addr)))
}

// newStatusHandler answers liveness checks
func newStatusHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Allow", "GET, HEAD, OPTIONS")
		if ctx.Request.Method != http.MethodGet {
			ctx.Status(http.StatusOK)
			return
		}

		ctx.String(http.StatusOK, "ok")
	}
}

// newCORSMiddleware allows browsers on domains and their subdomains
func newCORSMiddleware(domains []string) gin.HandlerFunc {
	allowed := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			allowed = append(allowed, d)
		}
	}

	match := func(host string) bool {
		for _, d := range allowed {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
		return false
	}

	return func(ctx *gin.Context) {
		origin := strings.TrimSpace(ctx.Request.Header.Get("Origin"))
		allowedOrigin := ""
		if origin != "" {
			if u, err := url.Parse(origin); err == nil && match(strings.ToLower(u.Hostname())) {
				allowedOrigin = origin
			}
		}

		switch {
		case allowedOrigin != "":
			ctx.Header("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With")
			ctx.Header("Access-Control-Max-Age", "86400")
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		case origin != "" && ctx.Request.Method == http.MethodOptions:
			// preflight from a foreign origin
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}
