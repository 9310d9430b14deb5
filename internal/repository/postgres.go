package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/db"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

// PGRecordStore keeps extraction records in Postgres.
type PGRecordStore struct {
	pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewPGRecordStore applies the schema and returns the store. The caller owns pool.
func NewPGRecordStore(ctx context.Context, pool *pgxpool.Pool, logger *zap.SugaredLogger) (*PGRecordStore, error) {
	s := &PGRecordStore{pool: pool, logger: common.OrNop(logger)}
	stmts, err := db.Statements()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

// SaveBatch upserts every record of one batch in a single transaction.
func (s *PGRecordStore) SaveBatch(ctx context.Context, batchNumber int, records []entity.ExtractionRecord) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		pages, err := encodePages(r.Pages)
		if err != nil {
			return err
		}
		batch.Queue(upsertRecordPostgres, r.DocumentID, batchNumber, pages)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for _, r := range records {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert %q: %w", r.DocumentID, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		s.logger.Errorw("batch save failed", "backend", "postgres", "batch", batchNumber, "error", err)
		return fmt.Errorf("save batch %d: %w", batchNumber, err)
	}
	s.logger.Infow("batch saved", "backend", "postgres", "batch", batchNumber, "records", len(records))
	return nil
}

func (s *PGRecordStore) LoadAll(ctx context.Context) ([]entity.ExtractionRecord, error) {
	rows, err := s.pool.Query(ctx, selectRecords)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []entity.ExtractionRecord
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r, err := decodeRecord(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGRecordStore) HasRecords(ctx context.Context) (bool, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countRecords).Scan(&n); err != nil {
		return false, fmt.Errorf("count records: %w", err)
	}
	return n > 0, nil
}

func (s *PGRecordStore) LastBatch(ctx context.Context) (int, error) {
	var n int32
	if err := s.pool.QueryRow(ctx, lastBatch).Scan(&n); err != nil {
		return 0, fmt.Errorf("last batch: %w", err)
	}
	return int(n), nil
}
