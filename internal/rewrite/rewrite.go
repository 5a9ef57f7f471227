// Package rewrite turns a located schema block into its canonical shape and
// verifies the result.
package rewrite

import (
	"errors"
	"fmt"
	"strings"

	"schemafix/internal/dialect"
	"schemafix/internal/region"
	"schemafix/internal/required"
	"schemafix/internal/scan"
)

// ErrVerifyFailed is returned when rewritten text does not re-parse into the
// canonical shape with the original entries.
var ErrVerifyFailed = errors.New("rewrite verification failed")

// Change summarizes what Rewrite did.
type Change struct {
	// Rewritten is false when the block was already canonical.
	Rewritten bool
	// Entries are the re-parented property entries as written.
	Entries []region.PropertyEntry
	// Extras is the number of other statements carried over.
	Extras int
	// Closed is set when the closed-schema statement was appended.
	Closed bool
	// SiblingRemoved is set when a sibling required list was folded in.
	SiblingRemoved bool
	// End is the offset just past the block in the returned text.
	End int
}

// Options controls rendering.
type Options struct {
	// Closed appends the dialect's closed-schema statement unless the block
	// already carries it.
	Closed bool
}

// Rewrite replaces the block with the dialect's canonical rendering. Text
// outside the block and its sibling required list is left byte-for-byte
// unchanged. Entries keep their text; only continuation lines follow the
// entry to its new indentation. Canonical blocks are returned as-is.
func Rewrite(text string, r region.Region, l region.Layout, res required.Resolution, d *dialect.Dialect, opts Options) (string, Change, error) {
	if region.IsCanonical(r, l) {
		end := r.End
		if r.Sibling != nil {
			end = r.Sibling.End
		}

		return text, Change{Entries: l.Entries, End: end}, nil
	}

	c := dialect.Canonical{
		Indent:   r.Indent,
		Entries:  make([]string, 0, len(l.Entries)),
		Required: res.Names(),
	}

	change := Change{Rewritten: true, SiblingRemoved: r.Sibling != nil}

	to, reindent := d.EntryIndent(r.Indent)

	for _, e := range l.Entries {
		if reindent {
			e.Text = scan.Reindent(e.Text, scan.LineIndent(text, e.Start), to)
		}

		c.Entries = append(c.Entries, e.Text)
		change.Entries = append(change.Entries, e)
	}

	for _, st := range l.Extras {
		c.Extras = append(c.Extras, st.Text)
	}

	if opts.Closed && d.Closed != "" && !carries(c.Extras, d.Closed) {
		c.Extras = append(c.Extras, d.Closed)
		change.Closed = true
	}

	change.Extras = len(c.Extras)

	block, err := d.Render(c)
	if err != nil {
		return "", Change{}, err
	}

	tail := r.End
	if r.Sibling != nil {
		tail = r.Sibling.End
	}

	change.End = r.Open + len(block)

	return text[:r.Open] + block + text[tail:], change, nil
}

// carries reports whether any statement equals stmt, ignoring comments and
// whitespace.
func carries(stmts []string, stmt string) bool {
	want := squeeze(stmt)

	for _, s := range stmts {
		if squeeze(scan.StripComments(s)) == want {
			return true
		}
	}

	return false
}

func squeeze(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Verify re-locates the block in text and checks that it is canonical and
// holds exactly the given entries, in order and byte-identical. A block with
// no entries but unrecognized block statements fails too: those statements
// are entries the dialect cannot read. It returns the verified region.
func Verify(text string, want []region.PropertyEntry, d *dialect.Dialect, opts region.Options) (region.Region, error) {
	r, err := region.Locate(text, d, opts)
	if err != nil {
		return region.Region{}, fmt.Errorf("%w: %w", ErrVerifyFailed, err)
	}

	l, err := region.Extract(text, r, d)
	if err != nil {
		return region.Region{}, fmt.Errorf("%w: %w", ErrVerifyFailed, err)
	}

	if !region.IsCanonical(r, l) {
		return region.Region{}, fmt.Errorf("%w: block is not canonical", ErrVerifyFailed)
	}

	if len(l.Entries) != len(want) {
		return region.Region{}, fmt.Errorf("%w: %d entries, want %d", ErrVerifyFailed, len(l.Entries), len(want))
	}

	if opaque := l.Opaque(text); len(l.Entries) == 0 && len(opaque) > 0 {
		return region.Region{}, fmt.Errorf("%w: no property entries recognized, statement at line %d is not an entry",
			ErrVerifyFailed, scan.LineOf(text, opaque[0].Start))
	}

	for i, e := range l.Entries {
		if e.Name != want[i].Name || e.Text != want[i].Text {
			return region.Region{}, fmt.Errorf("%w: entry %d (%s) changed", ErrVerifyFailed, i, want[i].Name)
		}
	}

	return r, nil
}
