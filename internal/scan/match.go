package scan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnbalancedDelimiters is returned when a delimited region is never closed
// or is closed by the wrong kind of delimiter.
var ErrUnbalancedDelimiters = errors.New("unbalanced delimiters")

// MatchBrace returns the offset of the delimiter that closes text[open].
// text[open] must be one of '{', '(' or '[' and be in Normal state.
func MatchBrace(text string, open int) (int, error) {
	if open < 0 || open >= len(text) {
		return -1, fmt.Errorf("offset %d out of range: %w", open, ErrUnbalancedDelimiters)
	}

	want, ok := Closer(text[open])
	if !ok {
		return -1, fmt.Errorf("%q at line %d is not an opening delimiter: %w",
			text[open], LineOf(text, open), ErrUnbalancedDelimiters)
	}

	stack := []byte{want}

	sc := New(text, open+1)
	for {
		st, ok := sc.Next()
		if !ok {
			break
		}

		if st.Class != Code {
			continue
		}

		c := text[st.Off]
		if closer, isOpen := Closer(c); isOpen {
			stack = append(stack, closer)
			continue
		}

		if !IsClose(c) {
			continue
		}

		if top := stack[len(stack)-1]; c != top {
			return -1, fmt.Errorf("expected %q but found %q at line %d: %w",
				top, c, LineOf(text, st.Off), ErrUnbalancedDelimiters)
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return st.Off, nil
		}
	}

	return -1, fmt.Errorf("%q opened at line %d is never closed: %w",
		text[open], LineOf(text, open), ErrUnbalancedDelimiters)
}

// Piece is a top-level fragment of text produced by Split.
type Piece struct {
	Start int
	End   int
	Text  string
}

// Split cuts text[start:end] into pieces separated by newline, ';' or ','
// at nesting depth zero in Normal state. Pieces that are empty after
// trimming whitespace are dropped. Comments stay inside their piece.
func Split(text string, start, end int) ([]Piece, error) {
	var (
		pieces []Piece
		stack  []byte
	)

	flush := func(from, to int) {
		raw := text[from:to]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}

		lead := strings.Index(raw, trimmed)
		pieces = append(pieces, Piece{Start: from + lead, End: from + lead + len(trimmed), Text: trimmed})
	}

	bounded := text[:end]
	pieceStart := start

	sc := New(bounded, start)
	for {
		st, ok := sc.Next()
		if !ok {
			break
		}

		if st.Class != Code {
			continue
		}

		c := bounded[st.Off]

		switch {
		case IsOpen(c):
			closer, _ := Closer(c)
			stack = append(stack, closer)
		case IsClose(c):
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return nil, fmt.Errorf("unexpected %q at line %d: %w", c, LineOf(text, st.Off), ErrUnbalancedDelimiters)
			}

			stack = stack[:len(stack)-1]
		case len(stack) == 0 && (c == '\n' || c == ';' || c == ','):
			flush(pieceStart, st.Off)
			pieceStart = st.Off + 1
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%d delimiter(s) left open: %w", len(stack), ErrUnbalancedDelimiters)
	}

	flush(pieceStart, end)

	return pieces, nil
}
