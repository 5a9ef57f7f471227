package match

import (
	"strings"
	"unicode"
)

// NormalizeIdent normalizes an identifier for comparison.
// The normalization pipeline:
// 1. Tokenize CamelCase and separators.
// 2. Case-fold to lower.
// 3. Join without separators.
//
// "DRIVE_ID", "drive_id", "driveId" and "drive-id" all become "driveid".
func NormalizeIdent(s string) string {
	return strings.Join(TokenizeIdent(s), "")
}

// SameIdent reports whether a and b name the same identifier once
// normalized. Empty identifiers never match.
func SameIdent(a, b string) bool {
	na := NormalizeIdent(a)
	return na != "" && na == NormalizeIdent(b)
}

// TokenizeIdent splits an identifier into normalized lowercase tokens.
func TokenizeIdent(s string) []string {
	tokens := tokenizeCamelCase(s)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	return tokens
}

// tokenizeCamelCase splits a CamelCase, camelCase or SCREAMING_CASE string
// into tokens.
// Examples:
//   - "driveId" -> ["drive", "Id"]
//   - "DRIVE_ID" -> ["DRIVE", "ID"]
//   - "HTTPFolderID" -> ["HTTP", "Folder", "ID"]
func tokenizeCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var (
		tokens  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}

		if i > 0 && shouldStartNewToken(runes, i) {
			flush()
		}

		current.WriteRune(r)
	}

	flush()

	return tokens
}

// isSeparator returns true if the rune is a common separator.
func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

// shouldStartNewToken determines if a new token should start at position i.
func shouldStartNewToken(runes []rune, i int) bool {
	r := runes[i]
	prev := runes[i-1]

	if isSeparator(prev) {
		return false
	}

	// "driveId": split before 'I'
	if unicode.IsUpper(r) && !unicode.IsUpper(prev) {
		return true
	}

	// "HTTPFolder": split before 'F'
	hasNextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

	return unicode.IsUpper(r) && unicode.IsUpper(prev) && hasNextLower
}
