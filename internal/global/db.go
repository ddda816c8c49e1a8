// Package global holds the process wide storage handles and services
package global

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Laisky/laisky-forum/library/db/mongo"
	"github.com/Laisky/laisky-forum/library/db/redis"
	"github.com/Laisky/laisky-forum/library/log"
	"github.com/Laisky/laisky-forum/library/storage"
)

var (
	// ForumDB is the forum database
	ForumDB mongo.DB
	// Redis keeps counters and the task queue
	Redis *redis.DB
	// Files stores uploaded files and previews
	Files *storage.FileStore
)

// SetupDB connects every storage backend, panics on failure
func SetupDB(ctx context.Context) {
	setupMongo(ctx)
	setupRedis(ctx)
	setupStorage(ctx)
}

func setupMongo(ctx context.Context) {
	defer log.Logger.Info("connected mongodb")

	var err error
	if ForumDB, err = mongo.NewDB(ctx, mongo.DialInfo{
		Addr:   gconfig.Shared.GetString("settings.db.forum.addr"),
		DBName: gconfig.Shared.GetString("settings.db.forum.db"),
		User:   gconfig.Shared.GetString("settings.db.forum.user"),
		Pwd:    gconfig.Shared.GetString("settings.db.forum.pwd"),
		AuthDB: gconfig.Shared.GetString("settings.db.forum.auth_db"),
	}); err != nil {
		log.Logger.Panic("connect to forum db", zap.Error(err))
	}
}

func setupRedis(ctx context.Context) {
	defer log.Logger.Info("connected redis")

	Redis = redis.NewDB(&goredis.Options{
		Addr:     gconfig.Shared.GetString("settings.redis.addr"),
		Password: gconfig.Shared.GetString("settings.redis.pwd"),
		DB:       gconfig.Shared.GetInt("settings.redis.db"),
	})
	if err := Redis.Ping(ctx); err != nil {
		log.Logger.Panic("connect to redis", zap.Error(err))
	}
}

func setupStorage(ctx context.Context) {
	defer log.Logger.Info("connected object storage")

	var err error
	if Files, err = storage.New(storage.Options{
		Endpoint:  gconfig.Shared.GetString("settings.s3.endpoint"),
		AccessKey: gconfig.Shared.GetString("settings.s3.access_key"),
		SecretKey: gconfig.Shared.GetString("settings.s3.secret_key"),
		Bucket:    gconfig.Shared.GetString("settings.s3.bucket"),
		Prefix:    gconfig.Shared.GetString("settings.s3.prefix"),
		Secure:    gconfig.Shared.GetBool("settings.s3.secure"),
	}); err != nil {
		log.Logger.Panic("create object storage client", zap.Error(err))
	}
}

// CloseDB releases storage connections
func CloseDB(ctx context.Context) {
	if ForumDB != nil {
		if err := ForumDB.Close(ctx); err != nil {
			log.Logger.Warn("close forum db", zap.Error(err))
		}
	}
	if Redis != nil {
		if err := Redis.Close(); err != nil {
			log.Logger.Warn("close redis", zap.Error(err))
		}
	}
}
