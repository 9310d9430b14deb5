package search

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/match"
)

// MatchResult is one page's outcome in a keyword search.
type MatchResult struct {
	PageNo           int      `json:"pageNO"`
	Matched          bool     `json:"keywordMatched"`
	MatchedTerms     []string `json:"-"`
	SelectedKeywords string   `json:"selectedKeywords"`
	PageContent      string   `json:"pageContent"`
}

// notFoundResult is the single object emitted when no page matched.
type notFoundResult struct {
	Matched          bool   `json:"keywordMatched"`
	SelectedKeywords string `json:"selectedKeywords"`
	PageContent      string `json:"pageContent"`
}

var notFound = notFoundResult{SelectedKeywords: constants.NotFoundKeyword, PageContent: "null"}

// KeywordResponse is the result of a KeywordQuery over one document.
type KeywordResponse struct {
	Results  []MatchResult
	NotFound bool
	// FullText is set only when every page is returned and one matched.
	FullText string
}

// Matched reports whether any page matched.
func (r KeywordResponse) Matched() bool { return !r.NotFound }

// Payload returns the value carried under imageToTextSearchResponse: a list
// of page results, or the not-found sentinel object.
func (r KeywordResponse) Payload() any {
	if r.NotFound {
		return notFound
	}
	return r.Results
}

func (r KeywordResponse) MarshalJSON() ([]byte, error) {
	out := map[string]any{"imageToTextSearchResponse": r.Payload()}
	if !r.NotFound && r.FullText != "" {
		out["imageToTextfullResponse"] = r.FullText
	}
	return json.Marshal(out)
}

// SearchPages applies q to the pages of one document; pages[i] is page i+1.
// Results come back in ascending page order.
func SearchPages(pages []string, q KeywordQuery) (KeywordResponse, error) {
	if err := q.Validate(); err != nil {
		return KeywordResponse{}, err
	}

	var (
		results []MatchResult
		found   bool
	)
	for i, text := range pages {
		terms := match.Keywords(text, q.Keywords)
		matched := len(terms) > 0
		if matched {
			found = true
		} else if q.ReturnOnlyMatched {
			continue
		}
		results = append(results, MatchResult{
			PageNo:           i + 1,
			Matched:          matched,
			MatchedTerms:     terms,
			SelectedKeywords: strings.Join(terms, "|"),
			PageContent:      flatten(text),
		})
	}

	if !found {
		return KeywordResponse{NotFound: true}, nil
	}
	resp := KeywordResponse{Results: results}
	if !q.ReturnOnlyMatched {
		resp.FullText = fullText(pages)
	}
	return resp, nil
}

func flatten(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

func fullText(pages []string) string {
	r := strings.NewReplacer("\n", " ", `\`, " ")
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = r.Replace(p)
	}
	return strings.Join(parts, " ")
}
