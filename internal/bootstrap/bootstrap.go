// Package bootstrap turns a config.Config into the stores both binaries use.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pigwin-3/historie-q/internal/config"
	"github.com/pigwin-3/historie-q/internal/db"
	"github.com/pigwin-3/historie-q/internal/hierarchy"
	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/storage"
	"github.com/pigwin-3/historie-q/internal/syncx"
)

// Resources owns the open connections behind the key/value store.
type Resources struct {
	KV  kvstore.Store
	SQL *sql.DB // set for sqlite/postgres

	closers []func()
}

func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func OpenKV(ctx context.Context, cfg config.Config) (*Resources, error) {
	res := &Resources{}
	switch cfg.KVDriver {
	case "memory":
		res.KV = kvstore.NewMemoryStore()
	case "file":
		fs, err := kvstore.NewFileStore(cfg.KVFile)
		if err != nil {
			return nil, err
		}
		res.KV = fs
	case "sqlite", "postgres":
		if err := res.openSQL(ctx, db.Driver(cfg.KVDriver), cfg.KVDSN); err != nil {
			return nil, err
		}
		res.KV = kvstore.NewSQLStore(res.SQL, cfg.KVDriver)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("bootstrap: redis ping %s: %v", cfg.RedisAddr, err)
		}
		res.closers = append(res.closers, func() { _ = client.Close() })
		res.KV = kvstore.NewRedisStore(client, "historieq:")
	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: mongo connect: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			log.Printf("bootstrap: mongo ping: %v", err)
		}
		res.closers = append(res.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
		res.KV = kvstore.NewMongoStore(client.Database(cfg.MongoDB), "kv")
	default:
		return nil, fmt.Errorf("bootstrap: unsupported KV_DRIVER %q", cfg.KVDriver)
	}
	return res, nil
}

func (r *Resources) openSQL(ctx context.Context, driver db.Driver, dsn string) error {
	h, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("bootstrap: db open: %w", err)
	}
	r.SQL = h
	r.closers = append(r.closers, func() { _ = h.Close() })
	return nil
}

// Journal returns the change journal, reusing the KV database when it is a
// SQL one and otherwise opening sqlite at KV_DSN.
func (r *Resources) Journal(ctx context.Context, cfg config.Config) (*syncx.EventRepo, error) {
	if r.SQL == nil {
		if err := r.openSQL(ctx, db.DriverSQLite, cfg.KVDSN); err != nil {
			return nil, err
		}
	}
	host, _ := os.Hostname()
	return syncx.NewEventRepo(r.SQL, host), nil
}

// BlobStore is where published trees go.
func BlobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	switch cfg.BlobDriver {
	case "fs", "":
		return storage.NewFSStore(cfg.BlobBasePath)
	case "minio":
		return storage.NewMinioStore(ctx, minioConfig(cfg))
	default:
		return nil, fmt.Errorf("bootstrap: unsupported BLOB_DRIVER %q", cfg.BlobDriver)
	}
}

// Fetcher reads the hierarchy from QUIZ_ROOT.
func Fetcher(ctx context.Context, cfg config.Config) (hierarchy.Fetcher, error) {
	switch cfg.QuizRootKind {
	case "fs", "":
		if _, err := os.Stat(cfg.QuizRoot); err != nil {
			return nil, fmt.Errorf("bootstrap: quiz root: %w", err)
		}
		return hierarchy.FSFetcher{FS: os.DirFS(cfg.QuizRoot)}, nil
	case "http":
		return hierarchy.NewHTTPFetcher(cfg.QuizRoot, cfg.FetchTimeout), nil
	case "minio":
		mc := minioConfig(cfg)
		if cfg.QuizRoot != "" && cfg.QuizRoot != "./quiz" {
			mc.Bucket = cfg.QuizRoot
		}
		bs, err := storage.NewMinioStore(ctx, mc)
		if err != nil {
			return nil, err
		}
		return hierarchy.BlobFetcher{Store: bs}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unsupported QUIZ_ROOT_KIND %q", cfg.QuizRootKind)
	}
}

func minioConfig(cfg config.Config) storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:        cfg.MinioEndpoint,
		AccessKeyID:     cfg.MinioAccessKey,
		SecretAccessKey: cfg.MinioSecretKey,
		Bucket:          cfg.MinioBucket,
		UseSSL:          cfg.MinioUseSSL,
	}
}
