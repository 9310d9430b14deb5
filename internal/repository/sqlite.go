package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/claims-extractor/db"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

// SQLiteRecordStore keeps extraction records in an embedded sqlite file.
type SQLiteRecordStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the schema.
func OpenSQLite(ctx context.Context, dsn string, logger *zap.SugaredLogger) (*SQLiteRecordStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	conn.SetMaxOpenConns(1)

	s := &SQLiteRecordStore{db: conn, logger: common.OrNop(logger)}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRecordStore) migrate(ctx context.Context) error {
	stmts, err := db.Statements()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// SaveBatch upserts every record of one batch in a single transaction.
func (s *SQLiteRecordStore) SaveBatch(ctx context.Context, batchNumber int, records []entity.ExtractionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch %d: %w", batchNumber, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertRecordSQLite)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		pages, err := encodePages(r.Pages)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.DocumentID, batchNumber, pages); err != nil {
			return fmt.Errorf("upsert %q: %w", r.DocumentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch %d: %w", batchNumber, err)
	}
	s.logger.Infow("batch saved", "backend", "sqlite", "batch", batchNumber, "records", len(records))
	return nil
}

func (s *SQLiteRecordStore) LoadAll(ctx context.Context) ([]entity.ExtractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecords)
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

func (s *SQLiteRecordStore) HasRecords(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countRecords).Scan(&n); err != nil {
		return false, fmt.Errorf("count records: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteRecordStore) LastBatch(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, lastBatch).Scan(&n); err != nil {
		return 0, fmt.Errorf("last batch: %w", err)
	}
	return n, nil
}

func (s *SQLiteRecordStore) Close() error { return s.db.Close() }
