package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-forum/internal/global"
	"github.com/Laisky/laisky-forum/internal/metrics"
	"github.com/Laisky/laisky-forum/internal/worker"
	"github.com/Laisky/laisky-forum/library/log"
)

var workerCMD = &cobra.Command{
	Use:    "worker",
	Short:  "worker",
	Long:   `consume background tasks, metrics are served on --listen`,
	Args:   gcmd.NoExtraArgs,
	PreRun: preRunInitialize,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		global.SetupDB(ctx)
		defer global.CloseDB(context.Background())

		w, err := worker.New(global.Redis, global.Files, nil)
		if err != nil {
			log.Logger.Panic("new worker", zap.Error(err))
		}

		srv, err := newWorkerMetricServer(gconfig.Shared.GetString("listen"))
		if err != nil {
			log.Logger.Panic("new metric server", zap.Error(err))
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Error("metric server exit", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		if err = w.Run(ctx); err != nil {
			log.Logger.Error("worker exit", zap.Error(err))
		}
	},
}

func newWorkerMetricServer(addr string) (*http.Server, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	metrics.Register()
	if err := gmw.EnableMetric(engine); err != nil {
		return nil, errors.Wrap(err, "enable metric")
	}

	log.Logger.Info("serve worker metrics", zap.String("addr", addr))
	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func init() {
	rootCMD.AddCommand(workerCMD)
}
