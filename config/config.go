/*
config.go - Server and CLI configuration

PURPOSE:
  One Config value feeds the storage driver, the HTTP adapter and the
  billing defaults of the store.

LOAD ORDER (later wins):
  1. Defaults()
  2. YAML file (--config)
  3. .env file, loaded into the process environment without overriding
     variables that are already set
  4. SOCIETY_* environment variables
  5. Command-line flags (applied by cmd/server)

ENVIRONMENT:
  SOCIETY_STORAGE_DRIVER   sqlite | postgres | s3 | memory
  SOCIETY_SQLITE_PATH      SQLite file, ":memory:" allowed
  SOCIETY_POSTGRES_DSN     Postgres DSN
  SOCIETY_S3_BUCKET        S3 bucket
  SOCIETY_S3_REGION        S3 region
  SOCIETY_S3_ENDPOINT      custom endpoint (MinIO)
  SOCIETY_S3_PATH_STYLE    true | false
  SOCIETY_S3_PREFIX        object key prefix
  SOCIETY_KEY_PREFIX       prefix for every collection key
  SOCIETY_HTTP_ADDR        listen address
  SOCIETY_ALLOWED_ORIGINS  comma separated CORS origins
  SOCIETY_DEFAULT_AMOUNT   monthly maintenance amount
  SOCIETY_CURRENCY         ISO 4217 code for display
  SOCIETY_DUE_DAY          day of month payments fall due
  SOCIETY_LATE_AFTER_DAY   last on-time day of month
  SOCIETY_AUTO_GENERATE    true | false, run the billing scheduler
  SOCIETY_BILLING_INTERVAL scheduler check interval, e.g. 1h
  SOCIETY_LOG_LEVEL        debug | info | warn | error
  SOCIETY_LOG_FORMAT       text | json

SEE ALSO:
  - config/logger.go: slog handler from Log
  - store/open.go: driver selection from Storage
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

type Config struct {
	Storage Storage `yaml:"storage"`
	HTTP    HTTP    `yaml:"http"`
	Billing Billing `yaml:"billing"`
	Log     Log     `yaml:"log"`
}

type Storage struct {
	Driver    string   `yaml:"driver"`
	KeyPrefix string   `yaml:"key_prefix"`
	SQLite    SQLite   `yaml:"sqlite"`
	Postgres  Postgres `yaml:"postgres"`
	S3        S3       `yaml:"s3"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Prefix    string `yaml:"prefix"`
}

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Billing struct {
	DefaultAmount string        `yaml:"default_amount"`
	Currency      string        `yaml:"currency"`
	DueDay        int           `yaml:"due_day"`
	LateAfterDay  int           `yaml:"late_after_day"`
	AutoGenerate  bool          `yaml:"auto_generate"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Defaults() Config {
	return Config{
		Storage: Storage{
			Driver: DriverSQLite,
			SQLite: SQLite{Path: "society.db"},
			S3:     S3{Region: "us-east-1"},
		},
		HTTP: HTTP{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Billing: Billing{
			DefaultAmount: "1400",
			Currency:      "INR",
			DueDay:        5,
			LateAfterDay:  15,
			CheckInterval: time.Hour,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load builds a Config from defaults, the optional YAML file at path, the
// optional .env file at dotenv and the environment. Flags are applied by the
// caller afterwards, followed by Validate.
func Load(path, dotenv string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos surface at startup.
func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays SOCIETY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	str("SOCIETY_STORAGE_DRIVER", &c.Storage.Driver)
	str("SOCIETY_KEY_PREFIX", &c.Storage.KeyPrefix)
	str("SOCIETY_SQLITE_PATH", &c.Storage.SQLite.Path)
	str("SOCIETY_POSTGRES_DSN", &c.Storage.Postgres.DSN)
	str("SOCIETY_S3_BUCKET", &c.Storage.S3.Bucket)
	str("SOCIETY_S3_REGION", &c.Storage.S3.Region)
	str("SOCIETY_S3_ENDPOINT", &c.Storage.S3.Endpoint)
	str("SOCIETY_S3_PREFIX", &c.Storage.S3.Prefix)
	str("SOCIETY_HTTP_ADDR", &c.HTTP.Addr)
	str("SOCIETY_DEFAULT_AMOUNT", &c.Billing.DefaultAmount)
	str("SOCIETY_CURRENCY", &c.Billing.Currency)
	str("SOCIETY_LOG_LEVEL", &c.Log.Level)
	str("SOCIETY_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("SOCIETY_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SOCIETY_S3_PATH_STYLE: %w", err)
		}
		c.Storage.S3.PathStyle = b
	}
	if v, ok := lookup("SOCIETY_AUTO_GENERATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SOCIETY_AUTO_GENERATE: %w", err)
		}
		c.Billing.AutoGenerate = b
	}
	if v, ok := lookup("SOCIETY_BILLING_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SOCIETY_BILLING_INTERVAL: %w", err)
		}
		c.Billing.CheckInterval = d
	}
	if v, ok := lookup("SOCIETY_ALLOWED_ORIGINS"); ok {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	for name, dst := range map[string]*int{
		"SOCIETY_DUE_DAY":        &c.Billing.DueDay,
		"SOCIETY_LATE_AFTER_DAY": &c.Billing.LateAfterDay,
	} {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the assembled config.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path required for sqlite driver")
		}
	case DriverPostgres, DriverMemory:
	case DriverS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Billing.Amount(); err != nil {
		return err
	}
	if money.GetCurrency(c.Billing.Currency) == nil {
		return fmt.Errorf("unknown currency %q", c.Billing.Currency)
	}
	if c.Billing.DueDay < 1 || c.Billing.DueDay > 28 {
		return fmt.Errorf("billing.due_day must be in 1..28, got %d", c.Billing.DueDay)
	}
	if c.Billing.LateAfterDay < 1 || c.Billing.LateAfterDay > 31 {
		return fmt.Errorf("billing.late_after_day must be in 1..31, got %d", c.Billing.LateAfterDay)
	}
	if c.Billing.AutoGenerate && c.Billing.CheckInterval < time.Minute {
		return fmt.Errorf("billing.check_interval must be at least 1m, got %s", c.Billing.CheckInterval)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Amount parses DefaultAmount. It must be positive.
func (b Billing) Amount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(b.DefaultAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("billing.default_amount: %w", err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("billing.default_amount must be positive, got %s", d)
	}
	return d, nil
}
