package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/repository"
)

const healthTimeout = 5 * time.Second

// Stores bundles the configured source and record store plus whatever must
// be closed on shutdown.
type Stores struct {
	Source  DocumentSource
	Records RecordStore

	closers []io.Closer
	closeFn []func()
}

func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	for _, fn := range s.closeFn {
		fn()
	}
	return first
}

// Open builds the stores named by cfg.Backend.
//
//	fs:       documents and batch artifacts in local directories
//	gcs:      documents and batch artifacts in buckets
//	sqlite:   local documents, records in an embedded database
//	postgres: local documents, records in Postgres
func Open(ctx context.Context, cfg common.StorageConfig, logger *zap.SugaredLogger) (*Stores, error) {
	logger = common.OrNop(logger)
	s := &Stores{Source: NewFSSource(cfg.SourceDir)}

	switch cfg.Backend {
	case "", "fs":
		s.Records = NewFSRecordStore(cfg.OutputDir, logger)

	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		s.closers = append(s.closers, client)
		outBucket := cfg.OutputBucket
		if outBucket == "" {
			outBucket = cfg.Bucket
		}
		s.Source = NewGCSSource(client, cfg.Bucket, cfg.SourcePrefix)
		s.Records = NewGCSRecordStore(client, outBucket, cfg.OutputPrefix, logger)

	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		s.Records = db

	case "postgres":
		pool, err := repository.Open(ctx, repository.DefaultConfig(cfg.DSN), logger)
		if err != nil {
			return nil, err
		}
		if err := repository.HealthCheck(ctx, pool, healthTimeout); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database health check: %w", err)
		}
		s.closeFn = append(s.closeFn, pool.Close)
		pg, err := repository.NewPGRecordStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		s.Records = pg

	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown storage backend %q", cfg.Backend), common.ErrInvalidInput)
	}

	logger.Infow("storage ready", "backend", cfg.Backend)
	return s, nil
}
