package redis

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/redis/go-redis/v9"
)

// EnqueueFileRemoval pushes a FileRemovalTask to the queue
func (db *DB) EnqueueFileRemoval(ctx context.Context,
	fileID string,
	withPreviews bool,
) (taskID string, err error) {
	if fileID == "" {
		return "", errors.New("empty file id")
	}

	taskID = gutils.UUID7()
	task := &FileRemovalTask{
		TaskID:       taskID,
		FileID:       fileID,
		WithPreviews: withPreviews,
		CreatedAt:    gutils.Clock.GetUTCNow(),
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return taskID, errors.Wrap(err, "marshal file removal task")
	}

	// the queue must never be trimmed, a dropped task leaks stored files
	if err = db.db.RPush(ctx, KeyTaskFileRemoval, []any{payload},
		db.db.WithMaxLength(math.MaxInt64)); err != nil {
		return taskID, errors.Wrap(err, "rpush")
	}

	return taskID, nil
}

// PopFileRemoval blocks up to timeout for the next task.
// It returns nil task and nil error when the timeout elapses.
func (db *DB) PopFileRemoval(ctx context.Context, timeout time.Duration) (*FileRemovalTask, error) {
	vals, err := db.rdb.BLPop(ctx, timeout, KeyTaskFileRemoval).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "blpop")
	}

	// BLPOP returns [key, value]
	if len(vals) != 2 {
		return nil, errors.Errorf("unexpected blpop reply length %d", len(vals))
	}

	return decodeFileRemovalTask(vals[1])
}

func decodeFileRemovalTask(payload string) (*FileRemovalTask, error) {
	task := new(FileRemovalTask)
	if err := json.Unmarshal([]byte(payload), task); err != nil {
		return nil, errors.Wrap(err, "unmarshal file removal task")
	}

	if task.FileID == "" {
		return nil, errors.Errorf("file removal task %q without file id", task.TaskID)
	}

	return task, nil
}
