package storage

import (
	"context"
	"fmt"
	"time"
)

// Config selects and parameterises a backend.
type Config struct {
	Driver      Driver        `mapstructure:"driver" yaml:"driver"`
	Dir         string        `mapstructure:"dir" yaml:"dir"`
	SQLitePath  string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string        `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	S3          S3Config      `mapstructure:"s3" yaml:"s3"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Open builds the store named by cfg.Driver (default fs), bounded by
// cfg.Timeout per operation.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverFilesystem:
		s, err = NewFS(cfg.Dir)
	case DriverSQLite:
		s, err = NewSQLite(cfg.SQLitePath)
	case DriverPostgres:
		s, err = NewPostgres(ctx, cfg.PostgresDSN)
	case DriverS3:
		s, err = NewS3(ctx, cfg.S3)
	case DriverMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(s, cfg.Timeout), nil
}
