// Package worker consumes the background task queue.
package worker

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-forum/internal/metrics"
	"github.com/Laisky/laisky-forum/library/db/redis"
	"github.com/Laisky/laisky-forum/library/log"
)

const (
	defaultPopTimeout = 5 * time.Second
	taskTimeout       = time.Minute
	retryDelay        = time.Second
)

// Queue delivers file removal tasks
type Queue interface {
	// PopFileRemoval blocks up to timeout, returns nil task when the queue stays empty
	PopFileRemoval(ctx context.Context, timeout time.Duration) (*redis.FileRemovalTask, error)
}

// Remover deletes stored files
type Remover interface {
	Remove(ctx context.Context, fileID string, withPreviews bool) error
}

// Worker runs queued tasks one by one
type Worker struct {
	queue      Queue
	files      Remover
	logger     logSDK.Logger
	PopTimeout time.Duration
}

// New creates Worker
func New(queue Queue, files Remover, logger logSDK.Logger) (*Worker, error) {
	if queue == nil || files == nil {
		return nil, errors.New("queue and files are required")
	}
	if logger == nil {
		logger = log.Logger.Named("worker")
	}

	return &Worker{
		queue:      queue,
		files:      files,
		logger:     logger,
		PopTimeout: defaultPopTimeout,
	}, nil
}

// Run processes tasks until ctx is done.
// A task already taken from the queue is finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		task, err := w.queue.PopFileRemoval(ctx, w.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			w.logger.Error("pop task", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}
		if task == nil {
			continue
		}

		w.removeFile(ctx, task)
	}
}

func (w *Worker) removeFile(ctx context.Context, task *redis.FileRemovalTask) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), taskTimeout)
	defer cancel()

	logger := w.logger.With(
		zap.String("task_id", task.TaskID),
		zap.String("file_id", task.FileID),
		zap.Bool("with_previews", task.WithPreviews),
	)

	if err := w.files.Remove(ctx, task.FileID, task.WithPreviews); err != nil {
		metrics.FileRemovalFail.Inc()
		logger.Error("remove file", zap.Error(err))
		return
	}

	metrics.FileRemovalOK.Inc()
	logger.Info("file removed")
}
