// Package diagnostic provides structured warnings, errors, and notes
// collected while resolving and rewriting a schema block.
//
// Key capabilities:
//   - Required names that match no property entry, with suggestions
//   - Malformed required lists that were ignored
//   - Duplicate property names passed through unchanged
//   - Notes on which required-field source won
//   - Errors that failed a document, merged per document
package diagnostic
