package cli

import (
	"context"
	"os"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/parser"
	"github.com/aiarchives/aiarchives/pkg/repository"
	"github.com/aiarchives/aiarchives/pkg/usecase/conversation"
	"github.com/aiarchives/aiarchives/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	backendPostgres  = "postgres"
	backendSQLite    = "sqlite"
	backendFirestore = "firestore"

	backendS3   = "s3"
	backendGCS  = "gcs"
	backendBolt = "bolt"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	baseURL    string
	modelsFile string

	// Metadata store
	dbBackend         string
	dbHost            string
	dbPort            int64
	dbName            string
	dbUser            string
	dbPassword        string
	dbSSLMode         string
	sqlitePath        string
	firestoreProject  string
	firestoreDatabase string

	// Object store
	storageBackend     string
	awsRegion          string
	awsAccessKeyID     string
	awsSecretAccessKey string
	awsBucketName      string
	s3Endpoint         string
	gcsBucket          string
	boltPath           string
	signingKey         string
	signedURLExpiry    time.Duration
}

// errMissing names both the flag and the environment variable that supply a
// required value
func errMissing(flag, env string) error {
	return goerr.New("missing required configuration: --"+flag+" or "+env,
		goerr.V("flag", flag), goerr.V("env", env))
}

// loggingFlags returns flags for log output with destination config
func loggingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("AIARCHIVES_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("AIARCHIVES_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// globalFlags returns the metadata store flags used across commands with
// destination config
func globalFlags(cfg *config) []cli.Flag {
	flags := loggingFlags(cfg)
	return append(flags,
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public origin used to build permalinks and signed URLs",
			Sources:     cli.EnvVars("BASE_URL", "NEXT_PUBLIC_BASE_URL"),
			Destination: &cfg.baseURL,
		},
		&cli.StringFlag{
			Name:        "models-file",
			Usage:       "YAML file declaring additional model names and aliases",
			Sources:     cli.EnvVars("AIARCHIVES_MODELS_FILE"),
			Destination: &cfg.modelsFile,
		},
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Metadata store backend (postgres, sqlite, firestore)",
			Value:       backendPostgres,
			Sources:     cli.EnvVars("AIARCHIVES_DB"),
			Destination: &cfg.dbBackend,
		},
		&cli.StringFlag{
			Name:        "db-host",
			Usage:       "PostgreSQL host",
			Sources:     cli.EnvVars("DB_HOST"),
			Destination: &cfg.dbHost,
		},
		&cli.IntFlag{
			Name:        "db-port",
			Usage:       "PostgreSQL port",
			Value:       5432,
			Sources:     cli.EnvVars("DB_PORT"),
			Destination: &cfg.dbPort,
		},
		&cli.StringFlag{
			Name:        "db-name",
			Usage:       "PostgreSQL database name",
			Sources:     cli.EnvVars("DB_NAME"),
			Destination: &cfg.dbName,
		},
		&cli.StringFlag{
			Name:        "db-user",
			Usage:       "PostgreSQL user",
			Sources:     cli.EnvVars("DB_USER"),
			Destination: &cfg.dbUser,
		},
		&cli.StringFlag{
			Name:        "db-password",
			Usage:       "PostgreSQL password",
			Sources:     cli.EnvVars("DB_PASSWORD"),
			Destination: &cfg.dbPassword,
		},
		&cli.StringFlag{
			Name:        "db-sslmode",
			Usage:       "PostgreSQL sslmode",
			Value:       "prefer",
			Sources:     cli.EnvVars("DB_SSLMODE"),
			Destination: &cfg.dbSSLMode,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file",
			Value:       "./data/aiarchives.db",
			Sources:     cli.EnvVars("AIARCHIVES_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID of the Firestore database",
			Sources:     cli.EnvVars("AIARCHIVES_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("AIARCHIVES_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
	)
}

// storageFlags returns flags for the object store with destination config
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "Object store backend (s3, gcs, bolt); not opened by metadata-only commands",
			Value:       backendS3,
			Sources:     cli.EnvVars("AIARCHIVES_STORAGE"),
			Destination: &cfg.storageBackend,
		},
		&cli.StringFlag{
			Name:        "aws-region",
			Usage:       "AWS region of the S3 bucket",
			Sources:     cli.EnvVars("AWS_REGION"),
			Destination: &cfg.awsRegion,
		},
		&cli.StringFlag{
			Name:        "aws-access-key-id",
			Usage:       "AWS access key ID",
			Sources:     cli.EnvVars("AWS_ACCESS_KEY_ID"),
			Destination: &cfg.awsAccessKeyID,
		},
		&cli.StringFlag{
			Name:        "aws-secret-access-key",
			Usage:       "AWS secret access key",
			Sources:     cli.EnvVars("AWS_SECRET_ACCESS_KEY"),
			Destination: &cfg.awsSecretAccessKey,
		},
		&cli.StringFlag{
			Name:        "aws-bucket-name",
			Usage:       "S3 bucket name",
			Sources:     cli.EnvVars("AWS_BUCKET_NAME"),
			Destination: &cfg.awsBucketName,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "Custom S3 endpoint (MinIO, LocalStack)",
			Sources:     cli.EnvVars("AIARCHIVES_S3_ENDPOINT"),
			Destination: &cfg.s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket name",
			Sources:     cli.EnvVars("AIARCHIVES_GCS_BUCKET"),
			Destination: &cfg.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "bolt-path",
			Usage:       "bbolt file for the local object store",
			Value:       "./data/blobs.db",
			Sources:     cli.EnvVars("AIARCHIVES_BOLT_PATH"),
			Destination: &cfg.boltPath,
		},
		&cli.StringFlag{
			Name:        "signing-key",
			Usage:       "HMAC key for signed URLs of the bolt store",
			Sources:     cli.EnvVars("AIARCHIVES_SIGNING_KEY"),
			Destination: &cfg.signingKey,
		},
		&cli.DurationFlag{
			Name:        "signed-url-expiry",
			Usage:       "Lifetime of signed content URLs",
			Value:       adapter.DefaultSignedURLExpiry,
			Sources:     cli.EnvVars("AIARCHIVES_SIGNED_URL_EXPIRY"),
			Destination: &cfg.signedURLExpiry,
		},
	}
}

// setupLogger installs the default logger from the log flags
func (cfg *config) setupLogger() error {
	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return err
	}

	logging.SetDefault(logging.New(os.Stderr,
		logging.WithLevel(level),
		logging.WithFormat(format),
	))
	return nil
}

// newRepository creates the metadata store selected by --db
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.dbBackend {
	case backendPostgres:
		pg := repository.PostgresConfig{
			Host:     cfg.dbHost,
			Port:     int(cfg.dbPort),
			Database: cfg.dbName,
			User:     cfg.dbUser,
			Password: cfg.dbPassword,
			SSLMode:  cfg.dbSSLMode,
		}
		for _, req := range []struct{ value, flag, env string }{
			{pg.Host, "db-host", "DB_HOST"},
			{pg.Database, "db-name", "DB_NAME"},
			{pg.User, "db-user", "DB_USER"},
			{pg.Password, "db-password", "DB_PASSWORD"},
		} {
			if req.value == "" {
				return nil, errMissing(req.flag, req.env)
			}
		}
		if pg.Port <= 0 {
			return nil, errMissing("db-port", "DB_PORT")
		}

		repo, err := repository.NewPostgres(ctx, pg)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create postgres repository")
		}
		return repo, nil

	case backendSQLite:
		if cfg.sqlitePath == "" {
			return nil, errMissing("sqlite-path", "AIARCHIVES_SQLITE_PATH")
		}
		repo, err := repository.NewSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create sqlite repository")
		}
		return repo, nil

	case backendFirestore:
		if cfg.firestoreProject == "" {
			return nil, errMissing("firestore-project", "AIARCHIVES_FIRESTORE_PROJECT")
		}
		repo, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("unknown metadata store backend", goerr.V("db", cfg.dbBackend))
	}
}

// newObjectStore creates the object store selected by --storage
func (cfg *config) newObjectStore(ctx context.Context) (adapter.ObjectStore, error) {
	switch cfg.storageBackend {
	case backendS3:
		s3cfg := adapter.S3Config{
			Region:          cfg.awsRegion,
			AccessKeyID:     cfg.awsAccessKeyID,
			SecretAccessKey: cfg.awsSecretAccessKey,
			BucketName:      cfg.awsBucketName,
			Endpoint:        cfg.s3Endpoint,
		}
		for _, req := range []struct{ value, flag, env string }{
			{s3cfg.Region, "aws-region", "AWS_REGION"},
			{s3cfg.AccessKeyID, "aws-access-key-id", "AWS_ACCESS_KEY_ID"},
			{s3cfg.SecretAccessKey, "aws-secret-access-key", "AWS_SECRET_ACCESS_KEY"},
			{s3cfg.BucketName, "aws-bucket-name", "AWS_BUCKET_NAME"},
		} {
			if req.value == "" {
				return nil, errMissing(req.flag, req.env)
			}
		}

		store, err := adapter.NewS3(ctx, s3cfg)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create s3 store")
		}
		return store, nil

	case backendGCS:
		if cfg.gcsBucket == "" {
			return nil, errMissing("gcs-bucket", "AIARCHIVES_GCS_BUCKET")
		}
		store, err := adapter.NewGCS(ctx, cfg.gcsBucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gcs store")
		}
		return store, nil

	case backendBolt:
		if cfg.boltPath == "" {
			return nil, errMissing("bolt-path", "AIARCHIVES_BOLT_PATH")
		}
		if cfg.signingKey == "" {
			return nil, errMissing("signing-key", "AIARCHIVES_SIGNING_KEY")
		}
		if cfg.baseURL == "" {
			return nil, errMissing("base-url", "BASE_URL")
		}

		signer, err := adapter.NewURLSigner([]byte(cfg.signingKey), cfg.baseURL)
		if err != nil {
			return nil, err
		}
		store, err := adapter.NewBolt(cfg.boltPath, signer)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create bolt store")
		}
		return store, nil

	default:
		return nil, goerr.New("unknown object store backend", goerr.V("storage", cfg.storageBackend))
	}
}

// newUseCase creates the object store and the conversation use case over
// repo and the store. The caller closes the returned store.
func (cfg *config) newUseCase(ctx context.Context, repo repository.Repository) (*conversation.UseCase, adapter.ObjectStore, error) {
	parsers, err := cfg.newParsers()
	if err != nil {
		return nil, nil, err
	}

	store, err := cfg.newObjectStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	uc := conversation.New(repo, store, parsers, cfg.baseURL,
		conversation.WithSignedURLExpiry(cfg.signedURLExpiry),
	)
	return uc, store, nil
}

// newMetadataUseCase creates a conversation use case without an object store
// for commands that only read metadata
func (cfg *config) newMetadataUseCase(repo repository.Repository) (*conversation.UseCase, error) {
	parsers, err := cfg.newParsers()
	if err != nil {
		return nil, err
	}
	return conversation.New(repo, nil, parsers, cfg.baseURL), nil
}

func (cfg *config) newParsers() (*parser.Registry, error) {
	parsers := parser.NewDefault()
	if err := parsers.LoadFile(cfg.modelsFile); err != nil {
		return nil, err
	}
	return parsers, nil
}
