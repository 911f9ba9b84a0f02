// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Ledger drivers.
const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
	LedgerMongo    = "mongo"
)

// Blob drivers.
const (
	BlobFilesystem = "fs"
	BlobS3         = "s3"
	BlobMemory     = "memory"
)

// Ledger selects and parameterises the ledger backend.
type Ledger struct {
	Driver          string
	SQLitePath      string
	PostgresDSN     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// S3 holds S3 / MinIO blob parameters.
type S3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Blob selects the archive blob backend.
type Blob struct {
	Driver string
	FSRoot string
	S3     S3
}

// Config holds every knob for the service and CLI.
type Config struct {
	Ledger          Ledger
	Blob            Blob
	SalePolicy      string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
	ArchivePrefix   string

	// parseErrs records values that could not be parsed during Load.
	parseErrs []error
}

const envPrefix = "COUNTERSTRIKE_"

func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

type loader struct {
	errs []error
}

func (l *loader) atoi(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("config: %s%s: expected an integer, got %q", envPrefix, key, v))
		return def
	}
	return n
}

func (l *loader) seconds(key string, defSec int) time.Duration {
	return time.Duration(l.atoi(key, defSec)) * time.Second
}

func (l *loader) boolean(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("config: %s%s: expected a boolean, got %q", envPrefix, key, v))
		return def
	}
	return b
}

// Load collects configuration from the environment with defaults. Values that
// fail to parse are reported by Validate.
func Load() Config {
	var l loader
	cfg := Config{
		Ledger: Ledger{
			Driver:          getenv("LEDGER_DRIVER", LedgerSQLite),
			SQLitePath:      getenv("SQLITE_PATH", "counterstrike.db"),
			PostgresDSN:     getenv("POSTGRES_DSN", ""),
			MongoURI:        getenv("MONGO_URI", ""),
			MongoDatabase:   getenv("MONGO_DATABASE", "counterstrike"),
			MongoCollection: getenv("MONGO_COLLECTION", "ledger"),
		},
		Blob: Blob{
			Driver: getenv("BLOB_DRIVER", BlobFilesystem),
			FSRoot: getenv("BLOB_FS_ROOT", "./blobdata"),
			S3: S3{
				Bucket:          getenv("BLOB_S3_BUCKET", ""),
				Region:          getenv("BLOB_S3_REGION", "us-east-1"),
				Endpoint:        getenv("BLOB_S3_ENDPOINT", ""),
				PathStyle:       l.boolean("BLOB_S3_PATH_STYLE", false),
				AccessKeyID:     getenv("BLOB_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getenv("BLOB_S3_SECRET_ACCESS_KEY", ""),
			},
		},
		SalePolicy:      getenv("SALE_POLICY", "consumer-payload"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: l.seconds("SHUTDOWN_TIMEOUT", 15),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		ArchivePrefix:   getenv("ARCHIVE_PREFIX", "snapshots/"),
	}
	cfg.parseErrs = l.errs
	return cfg
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if len(c.parseErrs) > 0 {
		return c.parseErrs[0]
	}
	switch c.Ledger.Driver {
	case LedgerMemory, LedgerSQLite, LedgerPostgres:
	case LedgerMongo:
		if c.Ledger.MongoURI == "" {
			return fmt.Errorf("config: %sMONGO_URI required for mongo ledger", envPrefix)
		}
	default:
		return fmt.Errorf("config: %sLEDGER_DRIVER: unknown ledger driver %q", envPrefix, c.Ledger.Driver)
	}
	switch c.Blob.Driver {
	case BlobFilesystem, BlobMemory:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("config: %sBLOB_S3_BUCKET required for s3 blob driver", envPrefix)
		}
	default:
		return fmt.Errorf("config: %sBLOB_DRIVER: unknown blob driver %q", envPrefix, c.Blob.Driver)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: %sLOG_FORMAT: expected json or console, got %q", envPrefix, c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: %sSHUTDOWN_TIMEOUT must be positive", envPrefix)
	}
	return nil
}
