// Package batch runs the locate, extract, resolve, rewrite and verify
// pipeline over many documents and collects a per-document report.
//
// Documents are independent: a failure in one never stops the others.
package batch

import (
	"errors"
	"io/fs"

	"schemafix/internal/common"
	"schemafix/internal/region"
	"schemafix/internal/required"
	"schemafix/internal/rewrite"
	"schemafix/internal/scan"
)

//go:generate go tool stringer -type=Status -trimprefix=Status -output=status_string.go

// Status is the final classification of a document.
type Status int

const (
	StatusFixed Status = iota
	StatusSkipped
	StatusFailed
)

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stage is a step of the per-document state machine.
type Stage int

const (
	StageNotProcessed Stage = iota
	StageScanning
	StageMatched
	StageRewritten
	StageVerified
	StageNoMatch
	StageParseError
)

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageNotProcessed:
		return "not-processed"
	case StageScanning:
		return "scanning"
	case StageMatched:
		return "matched"
	case StageRewritten:
		return "rewritten"
	case StageVerified:
		return "verified"
	case StageNoMatch:
		return "no-match"
	case StageParseError:
		return "parse-error"
	default:
		return common.UnknownStr
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason explains a Skipped or Failed status.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonNotFound             Reason = "NotFound"
	ReasonAlreadyCanonical     Reason = "AlreadyCanonical"
	ReasonUnbalancedDelimiters Reason = "UnbalancedDelimiters"
	ReasonAmbiguousRegion      Reason = "AmbiguousRegion"
	ReasonAmbiguousRequired    Reason = "AmbiguousRequired"
	ReasonIOError              Reason = "IOError"
	ReasonVerifyFailed         Reason = "VerifyFailed"
	ReasonInternal             Reason = "Internal"
)

// ErrDecode is returned when a document is not valid in the configured
// encoding.
var ErrDecode = errors.New("cannot decode document")

// classify maps a pipeline error to its status and reason.
func classify(err error) (Status, Reason) {
	var pathErr *fs.PathError

	switch {
	case errors.Is(err, region.ErrNotFound):
		return StatusSkipped, ReasonNotFound
	case errors.Is(err, rewrite.ErrVerifyFailed):
		return StatusFailed, ReasonVerifyFailed
	case errors.Is(err, scan.ErrUnbalancedDelimiters):
		return StatusFailed, ReasonUnbalancedDelimiters
	case errors.Is(err, region.ErrAmbiguousRegion):
		return StatusFailed, ReasonAmbiguousRegion
	case errors.Is(err, required.ErrAmbiguousRequired):
		return StatusFailed, ReasonAmbiguousRequired
	case errors.As(err, &pathErr), errors.Is(err, ErrDecode):
		return StatusFailed, ReasonIOError
	default:
		return StatusFailed, ReasonInternal
	}
}
