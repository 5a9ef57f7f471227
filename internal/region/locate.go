// Package region locates schema builder blocks inside raw text and splits
// them into their top-level statements.
//
// Key functions:
//   - Locate: finds the first anchored block and its sibling required list;
//     Options.From walks a document block by block
//   - Extract: returns the ordered property entries of a located block
//   - IsCanonical: reports whether a block already has the canonical shape
package region

import (
	"errors"
	"fmt"

	"schemafix/internal/dialect"
	"schemafix/internal/scan"
)

var (
	// ErrNotFound is returned when the text holds no anchored block.
	ErrNotFound = errors.New("no schema block found")
	// ErrAmbiguousRegion is returned when uniqueness is required and several
	// unrelated anchors sit at the same nesting depth.
	ErrAmbiguousRegion = errors.New("ambiguous schema block")
)

// Region is a located, delimiter-balanced schema block.
type Region struct {
	// Start is the offset of the anchor head.
	Start int
	// Open is the offset of the block's opening brace.
	Open int
	// End is the offset just past the block's closing brace.
	End int
	// Indent is the leading whitespace of the anchor line.
	Indent string
	// Inner is the text between the braces.
	Inner string
	// Depth is the delimiter nesting depth of the anchor.
	Depth int
	// Sibling is the required list argument that follows the block, if any.
	Sibling *Sibling
}

// Sibling is a required list argument written next to the block, such as
// `, required = listOf("a")`.
type Sibling struct {
	// Start is the offset right after the block, where the removable span begins.
	Start int
	// Open is the offset of the list's opening delimiter.
	Open int
	// End is the offset just past the list's closing delimiter.
	End int
	// Inner is the text between the list delimiters.
	Inner string
}

// Options controls block location.
type Options struct {
	// Unique fails with ErrAmbiguousRegion when more than one unrelated
	// anchor shares the same nesting depth.
	Unique bool
	// From skips anchors that start before this offset.
	From int
}

type anchor struct {
	start int
	open  int
	depth int
}

// Locate finds the first anchored schema block in text at or after
// opts.From.
func Locate(text string, d *dialect.Dialect, opts Options) (Region, error) {
	anchors := findAnchors(text, d)
	for len(anchors) > 0 && anchors[0].start < opts.From {
		anchors = anchors[1:]
	}

	if len(anchors) == 0 {
		return Region{}, ErrNotFound
	}

	first, err := block(text, anchors[0])
	if err != nil {
		return Region{}, err
	}

	if opts.Unique {
		if err := checkUnique(text, anchors); err != nil {
			return Region{}, err
		}
	}

	first.Sibling, err = findSibling(text, first.End, d)
	if err != nil {
		return Region{}, err
	}

	return first, nil
}

// findAnchors returns anchors that start in Normal state and are followed by
// an opening brace, in text order, with their nesting depth.
func findAnchors(text string, d *dialect.Dialect) []anchor {
	matches := d.Anchor.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var (
		found []anchor
		depth int
	)

	sc := scan.New(text, 0)

	for _, m := range matches {
		for sc.Pos() < m[0] {
			st, ok := sc.Next()
			if !ok {
				break
			}

			if st.Class != scan.Code {
				continue
			}

			switch c := text[st.Off]; {
			case scan.IsOpen(c):
				depth++
			case scan.IsClose(c) && depth > 0:
				depth--
			}
		}

		if sc.Pos() != m[0] || sc.State() != scan.Normal {
			continue
		}

		open := scan.SkipTrivia(text, m[1])
		if open >= len(text) || text[open] != '{' {
			continue
		}

		found = append(found, anchor{start: m[0], open: open, depth: depth})
	}

	return found
}

func block(text string, a anchor) (Region, error) {
	closeAt, err := scan.MatchBrace(text, a.open)
	if err != nil {
		return Region{}, fmt.Errorf("schema block at line %d: %w", scan.LineOf(text, a.start), err)
	}

	return Region{
		Start:  a.start,
		Open:   a.open,
		End:    closeAt + 1,
		Indent: scan.LineIndent(text, a.start),
		Inner:  text[a.open+1 : closeAt],
		Depth:  a.depth,
	}, nil
}

// checkUnique rejects unrelated anchors at equal depth. Anchors inside an
// earlier anchor's block are nested, not unrelated, and are ignored.
func checkUnique(text string, anchors []anchor) error {
	var outer []Region

	seen := map[int]int{}

	for _, a := range anchors {
		nested := false

		for _, r := range outer {
			if a.start >= r.Open && a.start < r.End {
				nested = true
				break
			}
		}

		if nested {
			continue
		}

		r, err := block(text, a)
		if err != nil {
			return err
		}

		if line, dup := seen[a.depth]; dup {
			return fmt.Errorf("anchors at lines %d and %d share depth %d: %w",
				line, scan.LineOf(text, a.start), a.depth, ErrAmbiguousRegion)
		}

		seen[a.depth] = scan.LineOf(text, a.start)
		outer = append(outer, r)
	}

	return nil
}

func findSibling(text string, end int, d *dialect.Dialect) (*Sibling, error) {
	if d.SiblingRequired == nil {
		return nil, nil
	}

	comma := scan.SkipTrivia(text, end)
	if comma >= len(text) || text[comma] != ',' {
		return nil, nil
	}

	head := scan.SkipTrivia(text, comma+1)

	m := d.SiblingRequired.FindStringIndex(text[head:])
	if m == nil {
		return nil, nil
	}

	open := scan.SkipTrivia(text, head+m[1])
	if open >= len(text) || (text[open] != '(' && text[open] != '[') {
		return nil, nil
	}

	closeAt, err := scan.MatchBrace(text, open)
	if err != nil {
		return nil, fmt.Errorf("required list at line %d: %w", scan.LineOf(text, head), err)
	}

	return &Sibling{
		Start: end,
		Open:  open,
		End:   closeAt + 1,
		Inner: text[open+1 : closeAt],
	}, nil
}
