// Composition root. Owns infrastructure (DB, Redis, file storage) and the
// debounced components built on top of it.
package main

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Abraxas-365/debouncex/pkg/config"
	"github.com/Abraxas-365/debouncex/pkg/debouncex"
	"github.com/Abraxas-365/debouncex/pkg/debouncex/debouncexfs"
	"github.com/Abraxas-365/debouncex/pkg/debouncex/debouncexpg"
	"github.com/Abraxas-365/debouncex/pkg/debouncex/debouncexredis"
	"github.com/Abraxas-365/debouncex/pkg/debouncex/debouncexstore"
	"github.com/Abraxas-365/debouncex/pkg/fsx"
	"github.com/Abraxas-365/debouncex/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/debouncex/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/debouncex/pkg/logx"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Record is a row served by the records loader.
type Record struct {
	ID   string `db:"id" json:"id"`
	Body string `db:"body" json:"body"`
}

// Snapshot is the document persisted by the snapshot saver.
type Snapshot map[string]interface{}

// EchoResult is what the echo debouncer resolves to.
type EchoResult struct {
	Value      string `json:"value"`
	Invocation int64  `json:"invocation"`
}

// Container holds shared infrastructure and the debounced components.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	S3Client   *s3.Client

	// Debounced components; Keys, Records and Watcher are nil when their
	// backing infrastructure is disabled.
	Echo      *debouncex.Debouncer[string, EchoResult]
	Keys      *debouncexredis.Loader
	Records   *debouncexpg.Loader[Record]
	Snapshots *debouncexstore.Saver[Snapshot]
	Watcher   *debouncexfs.Watcher

	echoCount atomic.Int64
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing application container...")

	c := &Container{Config: cfg}
	c.initInfrastructure()
	c.initModules()

	logx.Info("Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	if c.Config.Database.Enabled {
		db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
		db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
		c.DB = db
		logx.Info("  Database connected")
	}

	if c.Config.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err := c.Redis.Ping(context.Background()).Err(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("  Redis connected")
	}

	c.initFileStorage()
}

func (c *Container) initFileStorage() {
	storage := c.Config.Storage

	switch storage.Mode {
	case "s3":
		cfg, err := awsConfig.LoadDefaultConfig(context.Background(), awsConfig.WithRegion(storage.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(cfg)
		c.FileSystem = fsxs3.New(c.S3Client, storage.AWSBucket, "")
		logx.Infof("  S3 file system configured (bucket: %s, region: %s)", storage.AWSBucket, storage.AWSRegion)

	case "local":
		localFS, err := fsxlocal.New(storage.UploadDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  Local file system configured (path: %s)", localFS.BasePath())

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", storage.Mode)
	}
}

// ---------------------------------------------------------------------------
// Debounced components
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	dc := c.Config.Debounce

	c.Echo = debouncex.New(c.echo, dc.Wait,
		debouncex.WithConfig(dc),
		debouncex.WithName("echo"),
	)

	if c.FileSystem != nil {
		c.Snapshots = debouncexstore.NewSaver[Snapshot](c.FileSystem, c.Config.Storage.SnapshotPath, dc.SaveWait)
	}

	if c.Redis != nil {
		c.Keys = debouncexredis.NewLoader(c.Redis, c.Config.Redis.KeyPrefix, dc.LoaderWait)
	}

	if c.DB != nil {
		c.Records = debouncexpg.NewLoader(c.DB, c.Config.Database.RecordsTable, "id", "id, body",
			func(r Record) string { return r.ID }, dc.LoaderWait)
	}

	if len(c.Config.Storage.WatchPaths) > 0 {
		w, err := debouncexfs.NewWatcher(logChanges, dc.WatchWait)
		if err != nil {
			logx.Fatalf("Failed to create file watcher: %v", err)
		}
		for _, p := range c.Config.Storage.WatchPaths {
			if err := w.Add(p); err != nil {
				logx.Fatalf("Failed to watch %s: %v", p, err)
			}
		}
		c.Watcher = w
	}
}

func (c *Container) echo(ctx context.Context, value string) (EchoResult, error) {
	return EchoResult{Value: value, Invocation: c.echoCount.Add(1)}, nil
}

func logChanges(ctx context.Context, changes []debouncexfs.Change) error {
	paths := make([]string, len(changes))
	for i, ch := range changes {
		paths[i] = ch.Path
	}
	logx.WithContext(ctx).WithField("paths", strings.Join(paths, ",")).Info("Watched files changed")
	return nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	if c.Watcher != nil {
		go func() {
			if err := c.Watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logx.Errorf("File watcher stopped: %v", err)
			}
		}()
		logx.Infof("  File watcher started (%d paths)", len(c.Config.Storage.WatchPaths))
	}
}

func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources...")

	// Pending snapshot writes are flushed rather than lost.
	if c.Snapshots != nil {
		c.Snapshots.Flush()
	}
	if c.Watcher != nil {
		if err := c.Watcher.Close(); err != nil {
			logx.Errorf("Error closing file watcher: %v", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}

	logx.Info("Cleanup complete")
}
