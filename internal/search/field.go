package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/match"
)

// Lookup resolves FieldQuery values against a corpus of extraction records.
type Lookup struct {
	threshold float64
	logger    *zap.SugaredLogger
}

// NewLookup returns a Lookup accepting fuzzy VIN matches at or above threshold.
func NewLookup(threshold float64, logger *zap.SugaredLogger) *Lookup {
	if threshold <= 0 {
		threshold = match.DefaultFuzzyThreshold
	}
	return &Lookup{threshold: threshold, logger: common.OrNop(logger)}
}

type document struct {
	id   string
	text string
}

// Find returns the ids of matching documents in corpus order (sorted by id).
//
//  1. Dealer, Contract and Claim are ANDed; any hit ends the search.
//  2. Otherwise a VIN is looked up exactly, then by the single best fuzzy
//     ratio across the whole corpus.
//  3. With no named field and no VIN, a lone InvoiceDate or FreeText is
//     matched as a substring (OR over documents).
//
// No hit yields a *common.NoMatchError.
func (l *Lookup) Find(ctx context.Context, corpus []entity.ExtractionRecord, q FieldQuery) ([]string, error) {
	q = q.Trimmed()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	docs := prepare(corpus)

	if q.hasNamedFields() {
		var hits []string
		for _, d := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if allFields(q, d.text) {
				hits = append(hits, d.id)
			}
		}
		if len(hits) > 0 {
			return hits, nil
		}
		l.logger.Debugw("named fields matched nothing", "query", q.String(), "documents", len(docs))
	}

	if q.VIN != "" {
		hits, err := l.findVIN(ctx, docs, q.VIN)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}

	if !q.hasNamedFields() && q.VIN == "" {
		if term, ok := loneTerm(q); ok {
			var hits []string
			for _, d := range docs {
				if match.Contains(d.text, term) {
					hits = append(hits, d.id)
				}
			}
			if len(hits) > 0 {
				return hits, nil
			}
		}
	}

	return nil, &common.NoMatchError{Query: q}
}

func (l *Lookup) findVIN(ctx context.Context, docs []document, vin string) ([]string, error) {
	var exact []string
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if match.VINExact(vin, d.text) {
			exact = append(exact, d.id)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}

	bestID, best := "", 0.0
	for _, d := range docs {
		// strictly greater keeps the first document on ties
		if r := match.VINBestRatio(vin, d.text); r > best {
			bestID, best = d.id, r
		}
	}
	if bestID != "" && best >= l.threshold {
		l.logger.Infow("fuzzy VIN match", "vin", vin, "document_id", bestID, "ratio", best)
		return []string{bestID}, nil
	}
	return nil, nil
}

func allFields(q FieldQuery, text string) bool {
	if q.Dealer != "" && !match.DealerField(q.Dealer, text) {
		return false
	}
	if q.Contract != "" && !match.NumberField("contract", q.Contract, text) {
		return false
	}
	if q.Claim != "" && !match.NumberField("claim", q.Claim, text) {
		return false
	}
	return true
}

func loneTerm(q FieldQuery) (string, bool) {
	switch {
	case q.InvoiceDate != "" && q.FreeText == "":
		return q.InvoiceDate, true
	case q.FreeText != "" && q.InvoiceDate == "":
		return q.FreeText, true
	}
	return "", false
}

func prepare(corpus []entity.ExtractionRecord) []document {
	sorted := make([]entity.ExtractionRecord, len(corpus))
	copy(sorted, corpus)
	entity.SortRecords(sorted)

	docs := make([]document, len(sorted))
	for i, r := range sorted {
		docs[i] = document{id: r.DocumentID, text: r.Text()}
	}
	return docs
}
