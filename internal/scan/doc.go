// Package scan provides the lexical layer used to find balanced regions in
// raw source text without parsing the host language.
//
// Key capabilities:
//   - Scanner: a byte cursor that tracks string and comment context
//   - NextSignificantDelimiter: next delimiter that is real code
//   - MatchBrace: depth-counted matching of { }, ( ) and [ ]
//   - Split: top-level pieces separated by newline, ';' or ','
//
// Delimiters are only significant in the Normal state. Single-line string
// and char literals honor backslash escapes and end at a newline even when
// unterminated; triple-quoted raw strings have no escapes; block comments
// nest.
package scan
