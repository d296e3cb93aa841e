package textutil

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagRegex = regexp.MustCompile(`<[^>]*>`)
	// \s is ASCII-only; the wiki leans on &nbsp; (U+00A0) and the
	// occasional unicode space, so the collapse must cover \p{Z} too.
	whitespaceRegex = regexp.MustCompile(`[\s\p{Z}]+`)
	intRegex        = regexp.MustCompile(`^[+-]?\d+$`)
)

// placeholders the wiki uses for "no value" cells.
var nullPlaceholders = map[string]bool{
	"":    true,
	"-":   true,
	"–":   true,
	"—":   true,
	"n/a": true,
}

// CleanText turns raw scraped markup text into a canonical form:
// entities decoded, residual tags stripped, whitespace runs collapsed
// to single spaces, trimmed. Applying it twice equals applying it once.
func CleanText(raw string) string {
	s := html.UnescapeString(raw)
	s = tagRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripFAQ removes the " FAQ" cross-reference suffix the wiki appends
// to card and base effect text.
func StripFAQ(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, " FAQ", ""))
}

// ParseIntOrNull is a tolerant numeric parse. It returns nil (not zero)
// when the cell legitimately denotes "no value" (dash placeholders, empty)
// or when the content is not a plain integer.
func ParseIntOrNull(raw string) *int {
	s := CleanText(raw)
	if nullPlaceholders[strings.ToLower(s)] {
		return nil
	}
	if !intRegex.MatchString(s) {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// SplitList splits a multi-valued cell on sep, cleaning each element and
// dropping empties. Order is preserved.
func SplitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := CleanText(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// NormalizeKey produces the comparison form of a natural key: lowercased,
// underscores treated as spaces (wiki slugs), whitespace collapsed, trimmed.
// Two names differing only in case or whitespace normalize to the same key.
func NormalizeKey(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	s = CleanText(s)
	s = strings.ToLower(s)
	return s
}
