// Package required derives the required-field set of a schema block from
// the three legacy encodings: explicit lists, inline markers and error-code
// naming.
package required

import (
	"fmt"
	"strings"

	"schemafix/internal/common"
)

// Source identifies where a required field was inferred from. Lower values
// take precedence.
type Source int

const (
	// SourceNone means no source produced any field.
	SourceNone Source = iota
	// ExplicitList is a well-formed required list literal.
	ExplicitList
	// InlineMarker is a marker token inside an entry definition.
	InlineMarker
	// NamingHeuristic is an error-code token elsewhere in the document.
	NamingHeuristic
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case ExplicitList:
		return "explicit-list"
	case InlineMarker:
		return "inline-marker"
	case NamingHeuristic:
		return "naming-heuristic"
	default:
		return common.UnknownStr
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Strategy selects which sources the resolver consults.
type Strategy int

const (
	// Standard consults explicit lists, inline markers and error codes.
	Standard Strategy = iota
	// NoHeuristic skips error-code naming.
	NoHeuristic
	// ExplicitOnly consults explicit lists only.
	ExplicitOnly
)

var strategyNames = map[Strategy]string{
	Standard:     "standard",
	NoHeuristic:  "no-heuristic",
	ExplicitOnly: "explicit-only",
}

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}

	return common.UnknownStr
}

// ParseStrategy parses a configuration name. The empty string is Standard.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Standard, nil
	}

	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}

	return Standard, fmt.Errorf("unknown strategy %q (known: standard, no-heuristic, explicit-only)", name)
}

// Allows reports whether the strategy consults src.
func (s Strategy) Allows(src Source) bool {
	switch s {
	case ExplicitOnly:
		return src == ExplicitList
	case NoHeuristic:
		return src == ExplicitList || src == InlineMarker
	default:
		return src != SourceNone
	}
}
