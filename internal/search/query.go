package search

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// KeywordQuery scans every page of one document for any of its keywords.
type KeywordQuery struct {
	Keywords          []string
	ReturnOnlyMatched bool
}

// ParseKeywords splits a pipe-delimited list, dropping blanks and repeats.
func ParseKeywords(raw string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, kw := range strings.Split(raw, "|") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// NewKeywordQuery parses raw and validates the result.
func NewKeywordQuery(raw string, returnOnlyMatched bool) (KeywordQuery, error) {
	q := KeywordQuery{Keywords: ParseKeywords(raw), ReturnOnlyMatched: returnOnlyMatched}
	return q, q.Validate()
}

func (q KeywordQuery) Validate() error {
	v := common.NewValidator()
	v.Field("keywords", q.Keywords, common.Required)
	for i, kw := range q.Keywords {
		v.Field(fmt.Sprintf("keywords[%d]", i), kw, common.Required, common.MaxLength(256))
	}
	return common.ValidateQuery(v)
}

func (q KeywordQuery) String() string { return strings.Join(q.Keywords, "|") }

// FieldQuery looks documents up by named claim fields. Empty fields are unset.
type FieldQuery struct {
	Dealer      string `json:"dealer,omitempty"`
	VIN         string `json:"vin,omitempty"`
	Contract    string `json:"contract,omitempty"`
	Claim       string `json:"claim,omitempty"`
	InvoiceDate string `json:"invoiceDate,omitempty"`
	FreeText    string `json:"freeText,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (q FieldQuery) Trimmed() FieldQuery {
	return FieldQuery{
		Dealer:      strings.TrimSpace(q.Dealer),
		VIN:         strings.TrimSpace(q.VIN),
		Contract:    strings.TrimSpace(q.Contract),
		Claim:       strings.TrimSpace(q.Claim),
		InvoiceDate: strings.TrimSpace(q.InvoiceDate),
		FreeText:    strings.TrimSpace(q.FreeText),
	}
}

// IsEmpty reports whether no field is set.
func (q FieldQuery) IsEmpty() bool {
	t := q.Trimmed()
	return t.Dealer == "" && t.VIN == "" && t.Contract == "" && t.Claim == "" && t.InvoiceDate == "" && t.FreeText == ""
}

func (q FieldQuery) hasNamedFields() bool {
	return q.Dealer != "" || q.Contract != "" || q.Claim != ""
}

func (q FieldQuery) Validate() error {
	if q.IsEmpty() {
		return common.NewAppError("INVALID_QUERY", "No search parameters provided.", common.ErrInvalidQuery)
	}
	v := common.NewValidator()
	v.Field("dealer", q.Dealer, common.MaxLength(256)).
		Field("vin", q.VIN, common.MaxLength(64)).
		Field("contract", q.Contract, common.MaxLength(64)).
		Field("claim", q.Claim, common.MaxLength(64)).
		Field("invoiceDate", q.InvoiceDate, common.MaxLength(64)).
		Field("freeText", q.FreeText, common.MaxLength(256))
	return common.ValidateQuery(v)
}

// String lists the set fields in a fixed order, for diagnostics.
func (q FieldQuery) String() string {
	var parts []string
	add := func(name, val string) {
		if val = strings.TrimSpace(val); val != "" {
			parts = append(parts, name+"="+val)
		}
	}
	add("Dealer", q.Dealer)
	add("VIN", q.VIN)
	add("Contract", q.Contract)
	add("Claim", q.Claim)
	add("InvoiceDate", q.InvoiceDate)
	add("FreeText", q.FreeText)
	return strings.Join(parts, ", ")
}
