package repository

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

const (
	upsertRecordSQLite = `INSERT INTO extraction_records (document_id, batch_number, pages)
VALUES (?, ?, ?)
ON CONFLICT (document_id) DO UPDATE SET
    batch_number = excluded.batch_number,
    pages = excluded.pages,
    updated_at = CURRENT_TIMESTAMP`

	upsertRecordPostgres = `INSERT INTO extraction_records (document_id, batch_number, pages)
VALUES ($1, $2, $3)
ON CONFLICT (document_id) DO UPDATE SET
    batch_number = excluded.batch_number,
    pages = excluded.pages,
    updated_at = CURRENT_TIMESTAMP`

	selectRecords = `SELECT document_id, pages FROM extraction_records ORDER BY document_id`
	countRecords  = `SELECT COUNT(*) FROM extraction_records`
	lastBatch     = `SELECT COALESCE(MAX(batch_number), 0) FROM extraction_records`
)

func encodePages(pages []string) (string, error) {
	if pages == nil {
		pages = []string{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return "", fmt.Errorf("encode pages: %w", err)
	}
	return string(b), nil
}

func decodeRecord(id, raw string) (entity.ExtractionRecord, error) {
	var pages []string
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return entity.ExtractionRecord{}, fmt.Errorf("decode pages of %q: %w", id, err)
	}
	if pages == nil {
		pages = []string{}
	}
	return entity.ExtractionRecord{DocumentID: id, Pages: pages}, nil
}
