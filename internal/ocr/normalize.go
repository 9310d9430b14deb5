package ocr

import (
	"regexp"
	"strings"
)

var (
	reHorizontalSpace = regexp.MustCompile(`[ \t]+`)
	reLineEdges       = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	reNewlines        = regexp.MustCompile(`\n+`)
)

// Normalize canonicalizes whitespace in extracted text. It never leaves two
// consecutive spaces or newlines and Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reHorizontalSpace.ReplaceAllString(s, " ")
	s = reLineEdges.ReplaceAllString(s, "")
	s = reNewlines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
