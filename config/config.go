// Package config loads the CLI settings from defaults, a YAML file, the
// environment (LIBRARY_*) and command-line flags, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"library-circulation/library"
	"library-circulation/storage"
)

const (
	fileName  = "library"
	envPrefix = "library"
)

type Policy struct {
	BorrowLimit    int     `mapstructure:"borrow_limit" yaml:"borrow_limit"`
	LoanPeriodDays int     `mapstructure:"loan_period_days" yaml:"loan_period_days"`
	FinePerDay     float64 `mapstructure:"fine_per_day" yaml:"fine_per_day"`
}

// Library converts to the circulation policy.
func (p Policy) Library() library.Policy {
	return library.Policy{BorrowLimit: p.BorrowLimit, LoanPeriodDays: p.LoanPeriodDays, FinePerDay: p.FinePerDay}
}

type Log struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

type Config struct {
	Storage storage.Config `mapstructure:"storage" yaml:"storage"`
	Policy  Policy         `mapstructure:"policy" yaml:"policy"`
	Log     Log            `mapstructure:"log" yaml:"log"`
}

// Defaults lists every key with its default. Keys must all be present so
// that AutomaticEnv can see them.
func Defaults() map[string]any {
	return map[string]any{
		"storage.driver":               string(storage.DriverFilesystem),
		"storage.dir":                  "data",
		"storage.sqlite_path":          filepath.Join("data", "library.db"),
		"storage.postgres_dsn":         "",
		"storage.timeout":              10 * time.Second,
		"storage.s3.bucket":            "",
		"storage.s3.region":            "us-east-1",
		"storage.s3.endpoint":          "",
		"storage.s3.prefix":            "",
		"storage.s3.path_style":        false,
		"storage.s3.access_key_id":     "",
		"storage.s3.secret_access_key": "",
		"policy.borrow_limit":          library.DefaultBorrowLimit,
		"policy.loan_period_days":      library.DefaultLoanPeriodDays,
		"policy.fine_per_day":          library.DefaultFinePerDay,
		"log.mode":                     "dev",
	}
}

// Default is the configuration with nothing overridden.
func Default() Config {
	return Config{
		Storage: storage.Config{
			Driver:     storage.DriverFilesystem,
			Dir:        "data",
			SQLitePath: filepath.Join("data", "library.db"),
			Timeout:    10 * time.Second,
			S3:         storage.S3Config{Region: "us-east-1"},
		},
		Policy: Policy{
			BorrowLimit:    library.DefaultBorrowLimit,
			LoanPeriodDays: library.DefaultLoanPeriodDays,
			FinePerDay:     library.DefaultFinePerDay,
		},
		Log: Log{Mode: "dev"},
	}
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"storage-driver": "storage.driver",
	"data-dir":       "storage.dir",
	"sqlite-path":    "storage.sqlite_path",
	"postgres-dsn":   "storage.postgres_dsn",
	"log-mode":       "log.mode",
}

// DefaultPath is where `config init` writes and Load looks first.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, "library", fileName+".yaml"), nil
}

// Load resolves the configuration for cmd. An explicit file must exist; the
// standard locations are optional.
func Load(cmd *cobra.Command, file string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	}
	if p, err := DefaultPath(); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	v.AddConfigPath("/etc/library-circulation")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range FlagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects settings the circulation rules cannot work with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverFilesystem, storage.DriverSQLite, storage.DriverPostgres, storage.DriverS3, storage.DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Policy.BorrowLimit < 1 {
		return fmt.Errorf("policy.borrow_limit must be at least 1, got %d", c.Policy.BorrowLimit)
	}
	if c.Policy.LoanPeriodDays < 1 {
		return fmt.Errorf("policy.loan_period_days must be at least 1, got %d", c.Policy.LoanPeriodDays)
	}
	if c.Policy.FinePerDay < 0 {
		return fmt.Errorf("policy.fine_per_day must not be negative, got %v", c.Policy.FinePerDay)
	}
	return nil
}

// WriteDefault writes the default configuration to path, refusing to
// replace an existing file.
func WriteDefault(path string) error {
	return WriteFile(Default(), path, false)
}

// WriteFile stores c as YAML at path. An existing file is kept unless
// overwrite is set.
func WriteFile(c Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	// 0600: the file may carry database or S3 credentials.
	return os.WriteFile(path, data, 0o600)
}
