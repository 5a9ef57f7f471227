package required

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"schemafix/internal/common"
	"schemafix/internal/diagnostic"
	"schemafix/internal/dialect"
	"schemafix/internal/match"
	"schemafix/internal/region"
	"schemafix/internal/scan"
)

// ErrAmbiguousRequired is returned when two explicit lists of the same block
// name different field sets.
var ErrAmbiguousRequired = errors.New("ambiguous required fields")

const (
	suggestMinScore = 0.6
	suggestLimit    = 3
)

// Field is one resolved required field.
type Field struct {
	Name   string `json:"name" yaml:"name"`
	Source Source `json:"source" yaml:"source"`
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Fields are deduplicated by name, first occurrence wins.
	Fields []Field
	// Source is the single source every field came from.
	Source      Source
	Diagnostics diagnostic.Diagnostics
}

// Names returns the field names in resolution order.
func (r Resolution) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}

	return names
}

// candidate is one explicit required list found in or next to the block.
type candidate struct {
	names []string
	line  int
}

// Resolve returns the required fields of a located block. The highest
// precedence source that is present wins for the whole block.
func Resolve(text string, r region.Region, l region.Layout, d *dialect.Dialect, s Strategy) (Resolution, error) {
	var res Resolution

	explicit, err := explicitLists(text, r, l, d, &res.Diagnostics)
	if err != nil {
		return Resolution{}, err
	}

	var (
		names []string
		found bool
	)

	if first, ok := common.First(explicit); ok {
		names, found = first.names, true
		res.Source = ExplicitList
	}

	if !found && s.Allows(InlineMarker) {
		names, found = inlineMarked(l, d.Markers)
		if found {
			res.Source = InlineMarker
		}
	}

	if !found && s.Allows(NamingHeuristic) {
		names, found = errorCodes(text, r, l, d.ErrorCode)
		if found {
			res.Source = NamingHeuristic
		}
	}

	for _, n := range common.Dedup(names) {
		res.Fields = append(res.Fields, Field{Name: n, Source: res.Source})
	}

	res.check(l)

	return res, nil
}

// explicitLists collects the well-formed explicit lists in text order and
// fails when they disagree. Malformed lists are reported and ignored.
func explicitLists(text string, r region.Region, l region.Layout, d *dialect.Dialect, diags *diagnostic.Diagnostics) ([]candidate, error) {
	var out []candidate

	add := func(start, end, line int, item *regexp.Regexp) error {
		names, bad, err := parseList(text, start, end, item)
		if err != nil {
			return err
		}

		if bad != "" {
			diags.AddWarning(diagnostic.CodeMalformedRequired,
				fmt.Sprintf("required list at line %d ignored: cannot read item %q", line, bad), "")

			return nil
		}

		out = append(out, candidate{names: names, line: line})

		return nil
	}

	for _, st := range l.Required {
		if err := add(st.Open+1, st.Close, scan.LineOf(text, st.Start), d.RequiredItem); err != nil {
			return nil, err
		}
	}

	if sib := r.Sibling; sib != nil {
		if err := add(sib.Open+1, sib.End-1, scan.LineOf(text, sib.Open), d.ListItem); err != nil {
			return nil, err
		}
	}

	if !common.IsMultiple(out) {
		return out, nil
	}

	for _, c := range out[1:] {
		if !common.SameSet(out[0].names, c.names) {
			return nil, fmt.Errorf("lists at lines %d and %d disagree (%s vs %s): %w",
				out[0].line, c.line, strings.Join(out[0].names, ", "), strings.Join(c.names, ", "),
				ErrAmbiguousRequired)
		}
	}

	return out, nil
}

// parseList reads the items of text[start:end]. bad is the first item the
// pattern rejects; comment-only items are skipped.
func parseList(text string, start, end int, item *regexp.Regexp) (names []string, bad string, err error) {
	pieces, err := scan.Split(text, start, end)
	if err != nil {
		return nil, "", err
	}

	names = []string{}

	for _, p := range pieces {
		code := strings.TrimSpace(scan.StripComments(p.Text))
		if code == "" {
			continue
		}

		name, ok := dialect.MatchItem(item, code)
		if !ok {
			return nil, code, nil
		}

		names = append(names, name)
	}

	return names, "", nil
}

// inlineMarked returns the entries whose text holds any marker.
func inlineMarked(l region.Layout, markers []string) ([]string, bool) {
	var names []string

	for _, e := range l.Entries {
		for _, m := range markers {
			if m != "" && strings.Contains(e.Text, m) {
				names = append(names, e.Name)
				break
			}
		}
	}

	return names, len(names) > 0
}

// errorCodes maps error-code tokens outside the block to entry names.
// Matches inside comments are ignored.
func errorCodes(text string, r region.Region, l region.Layout, re *regexp.Regexp) ([]string, bool) {
	if re == nil {
		return nil, false
	}

	end := r.End
	if r.Sibling != nil {
		end = r.Sibling.End
	}

	var names []string

	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if m[0] < end && m[1] > r.Start {
			continue
		}

		switch scan.StateAt(text, m[0]) {
		case scan.InLineComment, scan.InBlockComment:
			continue
		}

		if len(m) < 4 || m[2] < 0 {
			continue
		}

		suffix := text[m[2]:m[3]]

		for _, e := range l.Entries {
			if match.SameIdent(suffix, e.Name) {
				names = append(names, e.Name)
				break
			}
		}
	}

	return names, len(names) > 0
}

// check records diagnostics for required names without an entry and for
// duplicate entries.
func (r *Resolution) check(l region.Layout) {
	entries := l.Names()

	known := make(map[string]int, len(entries))
	for _, n := range entries {
		known[n]++
	}

	for _, f := range r.Fields {
		if known[f.Name] > 0 {
			continue
		}

		r.Diagnostics.AddWarning(diagnostic.CodeUnknownRequired,
			"required field has no property entry", f.Name,
			match.Suggest(f.Name, entries, suggestMinScore, suggestLimit)...)
	}

	for _, n := range common.Dedup(entries) {
		if known[n] > 1 {
			r.Diagnostics.AddInfo(diagnostic.CodeDuplicateEntry,
				fmt.Sprintf("property defined %d times", known[n]), n)
		}
	}

	if r.Source != SourceNone {
		r.Diagnostics.AddInfo(diagnostic.CodeRequiredSource,
			fmt.Sprintf("%d required field(s) from %s", len(r.Fields), r.Source), "")
	}
}
