// Package mongo connects the forum database and holds the small helpers
// its collections need.
package mongo

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Laisky/laisky-forum/library/log"
)

const (
	dialTimeout   = 30 * time.Second
	watchInterval = 10 * time.Second
	pingTimeout   = 5 * time.Second
)

// DB is a handle to the forum database
type DB interface {
	Close(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	Database() *mongo.Database
	// NextSeq returns the next value of the named counter, starting from 1
	NextSeq(ctx context.Context, name string) (int64, error)
	// EnsureIndexes creates indexes on colName if they do not exist
	EnsureIndexes(ctx context.Context, colName string, models []mongo.IndexModel) error
}

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
	AuthDB string
}

type db struct {
	cli      *mongo.Client
	database *mongo.Database
	addr     string

	stopWatch context.CancelFunc
	closeOnce sync.Once
}

var (
	connectMongo = func(ctx context.Context, clientOpts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, clientOpts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// buildMongoURI builds a MongoDB connection URI from the given dial info.
func buildMongoURI(dialInfo DialInfo) string {
	uri := &url.URL{
		Scheme: "mongodb",
		Host:   dialInfo.Addr,
		Path:   "/" + dialInfo.DBName,
	}
	if dialInfo.User != "" || dialInfo.Pwd != "" {
		uri.User = url.UserPassword(dialInfo.User, dialInfo.Pwd)
	}
	if dialInfo.AuthDB != "" {
		query := url.Values{}
		query.Set("authSource", dialInfo.AuthDB)
		uri.RawQuery = query.Encode()
	}
	return uri.String()
}

func clientOptions(uri string) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetConnectTimeout(dialTimeout).
		SetServerSelectionTimeout(dialTimeout).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(5 * time.Minute)
}

// NewDB connects and pings the database described by dialInfo,
// an unreachable server fails here instead of on the first request.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	if dialInfo.Addr == "" || dialInfo.DBName == "" {
		return nil, errors.New("mongo addr and db name are required")
	}

	log.Logger.Info("try to connect to mongodb",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName),
	)

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	cli, err := connectMongo(ctx, clientOptions(buildMongoURI(dialInfo)))
	if err != nil {
		return nil, errors.Wrap(err, "connect db")
	}
	if err = pingMongo(ctx, cli); err != nil {
		_ = disconnectMongo(context.Background(), cli)
		return nil, errors.Wrap(err, "ping db")
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	d := &db{
		cli:       cli,
		database:  cli.Database(dialInfo.DBName),
		addr:      dialInfo.Addr,
		stopWatch: stopWatch,
	}
	go d.watch(watchCtx)

	return d, nil
}

// watch pings the server periodically and logs failures.
// Reconnection itself is left to the driver.
func (d *db) watch(ctx context.Context) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := pingMongo(pingCtx, d.cli)
		cancel()
		if err != nil && ctx.Err() == nil {
			log.Logger.Warn("mongodb ping failed", zap.Error(err), zap.String("addr", d.addr))
		}
	}
}

// Close stops the watcher and disconnects, later calls are no-ops
func (d *db) Close(ctx context.Context) (err error) {
	d.closeOnce.Do(func() {
		d.stopWatch()

		closeCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		if err = disconnectMongo(closeCtx, d.cli); err != nil {
			err = errors.Wrap(err, "disconnect db")
		}
	})

	return err
}

func (d *db) Database() *mongo.Database {
	return d.database
}

// GetCol returns a collection handle by name.
func (d *db) GetCol(colName string) *mongo.Collection {
	return d.database.Collection(colName)
}
