// Package match provides identifier normalization and edit-distance scoring
// used to tie loose field names back to property entries.
//
// Key functions:
//   - NormalizeIdent: folds DRIVE_ID, driveId and drive-id to one form
//   - SameIdent: reports whether two identifiers normalize equally
//   - Levenshtein: computes edit distance between strings
//   - Suggest: ranks close candidates for "did you mean" hints
package match
