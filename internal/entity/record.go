package entity

import (
	"sort"
	"strings"
)

// ExtractionRecord is the persisted text of one document.
// Pages[i] holds page i+1.
type ExtractionRecord struct {
	DocumentID string   `json:"document_id"`
	Pages      []string `json:"pages"`
}

// Text joins the pages with newlines.
func (r ExtractionRecord) Text() string {
	return strings.Join(r.Pages, "\n")
}

// SortRecords orders records by document id, the corpus iteration order.
func SortRecords(records []ExtractionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DocumentID < records[j].DocumentID
	})
}

// RecordsToMap builds the batch artifact shape {"<documentId>": [pages...]}.
func RecordsToMap(records []ExtractionRecord) map[string][]string {
	out := make(map[string][]string, len(records))
	for _, r := range records {
		out[r.DocumentID] = r.Pages
	}
	return out
}

// RecordsFromMap is the inverse of RecordsToMap, sorted by document id.
func RecordsFromMap(m map[string][]string) []ExtractionRecord {
	out := make([]ExtractionRecord, 0, len(m))
	for id, pages := range m {
		if pages == nil {
			pages = []string{}
		}
		out = append(out, ExtractionRecord{DocumentID: id, Pages: pages})
	}
	SortRecords(out)
	return out
}
