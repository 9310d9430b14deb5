package match

import (
	"regexp"
	"strings"
	"sync"
)

// MinNumberLength is the shortest digit run accepted as a contract or claim number.
const MinNumberLength = 6

var (
	reDealer        = regexp.MustCompile(`(?im)\bdealer(?:ship)?\b[ \t]*(?:name\b)?[ \t:;#]*(.*)$`)
	reTrailingJunk  = regexp.MustCompile(`[\s\p{P}]+$`)
	reTrailingDigit = regexp.MustCompile(`\d+$`)

	// numberPatterns caches compiled label patterns by lower-cased keyword.
	numberPatterns sync.Map
)

func init() {
	for _, kw := range []string{"contract", "claim"} {
		numberPattern(kw)
	}
}

func numberPattern(keyword string) *regexp.Regexp {
	key := strings.ToLower(keyword)
	if re, ok := numberPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key) +
		`[\s:;#.\-]*(?:(?:no|number|num)\.?[\s:;#.\-]*)?(\d+)`)
	actual, _ := numberPatterns.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

// NumbersAfter returns every digit run of at least MinNumberLength that
// directly follows keyword on a line of text. The keyword match is
// case-insensitive and may be followed by "no", "number" or "#" and
// separator punctuation.
func NumbersAfter(keyword, text string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	re := numberPattern(keyword)

	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if len(m[1]) >= MinNumberLength {
				out = append(out, m[1])
			}
		}
	}
	return out
}

// NumberField matches value exactly against the numbers following keyword.
func NumberField(keyword, value, text string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, n := range NumbersAfter(keyword, text) {
		if n == value {
			return true
		}
	}
	return false
}

// DealerValues returns the cleaned remainder of every line labelled "dealer".
func DealerValues(text string) []string {
	var out []string
	for _, m := range reDealer.FindAllStringSubmatch(text, -1) {
		if v := cleanLabelValue(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// cleanLabelValue strips trailing punctuation and trailing digit runs until
// neither is left, e.g. "Acme Motors, 600128." -> "Acme Motors".
func cleanLabelValue(v string) string {
	for {
		next := reTrailingJunk.ReplaceAllString(v, "")
		next = reTrailingDigit.ReplaceAllString(next, "")
		if next == v {
			return strings.TrimSpace(v)
		}
		v = next
	}
}

// DealerField reports whether query is contained, case-insensitively, in
// any dealer value of text.
func DealerField(query, text string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, v := range DealerValues(text) {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// Contains is a case-insensitive substring test.
func Contains(text, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

// Keywords returns the keywords found in text, in the order given.
func Keywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	return found
}
