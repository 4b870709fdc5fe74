// Package store selects and opens the durable medium named by config.
package store

import (
	"context"
	"fmt"

	"github.com/warp/society-engine/config"
	"github.com/warp/society-engine/society"
	memkv "github.com/warp/society-engine/society/store"
	"github.com/warp/society-engine/store/postgres"
	"github.com/warp/society-engine/store/s3"
	"github.com/warp/society-engine/store/sqlite"
)

// Open returns the KV for cfg.Driver and a close func for it.
func Open(ctx context.Context, cfg config.Storage) (society.KV, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.DriverMemory:
		return memkv.NewMemory(), noop, nil
	case config.DriverSQLite, "":
		kv, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.DriverPostgres:
		kv, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.DriverS3:
		kv, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
