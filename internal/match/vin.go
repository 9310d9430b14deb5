package match

import (
	"regexp"
	"strings"
)

// DefaultFuzzyThreshold is the minimum ratio a fuzzy VIN candidate needs.
const DefaultFuzzyThreshold = 0.6

const vinLength = 17

var (
	// OCR confuses these with digits; VINs never contain them.
	vinConfusables = strings.NewReplacer("O", "0", "Q", "0", "I", "1")

	reVINLabel   = regexp.MustCompile(`(?i)\bVIN\b(?:\s*(?:NO|NUMBER|#)\.?)?\s*[:;#.\-]*\s*([A-Z0-9][A-Z0-9 \-]{4,})`)
	reVINGeneric = regexp.MustCompile(`[A-Z0-9]{13,}`)
)

// NormalizeVIN uppercases s, maps OCR-confusable letters to digits and drops
// everything outside the VIN alphabet.
func NormalizeVIN(s string) string {
	s = vinConfusables.Replace(strings.ToUpper(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isVINRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isVINRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'A' && r <= 'Z':
		return r != 'I' && r != 'O' && r != 'Q'
	}
	return false
}

// VINCandidates returns normalized VIN candidates found in text, labelled
// values first, then any long alphanumeric run holding a digit. Duplicates
// are dropped.
func VINCandidates(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(raw string) {
		v := NormalizeVIN(raw)
		if len(v) < 5 {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	for _, m := range reVINLabel.FindAllStringSubmatch(text, -1) {
		// a label value stops at the first run of two spaces or a newline
		add(firstToken(m[1]))
	}
	upper := strings.ToUpper(text)
	for _, m := range reVINGeneric.FindAllString(upper, -1) {
		// plain words like IDENTIFICATION are long runs too
		if strings.ContainsAny(m, "0123456789") {
			add(m)
		}
	}
	return out
}

// firstToken keeps the leading word of a labelled value. OCR and typists
// often break a VIN into groups; following words are joined on while the
// normalized result stays within 17 characters, and the join is kept only
// when it lands on exactly 17.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if len(NormalizeVIN(fields[0])) >= vinLength {
		return fields[0]
	}
	joined := fields[0]
	for _, f := range fields[1:] {
		next := joined + f
		n := len(NormalizeVIN(next))
		if n > vinLength {
			break
		}
		joined = next
		if n == vinLength {
			return joined
		}
	}
	return fields[0]
}

// VINExact reports whether the normalized query equals a candidate in text.
func VINExact(query, text string) bool {
	q := NormalizeVIN(query)
	if q == "" {
		return false
	}
	for _, c := range VINCandidates(text) {
		if c == q {
			return true
		}
	}
	return false
}

// VINBestRatio returns the highest fuzzy ratio between the normalized query
// and any candidate in text, or 0 when there are none.
func VINBestRatio(query, text string) float64 {
	q := NormalizeVIN(query)
	if q == "" {
		return 0
	}
	best := 0.0
	for _, c := range VINCandidates(text) {
		if r := Ratio(q, c); r > best {
			best = r
		}
	}
	return best
}
