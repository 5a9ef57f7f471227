package region

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"schemafix/internal/dialect"
	"schemafix/internal/scan"
)

// Kind classifies a top-level statement of a schema block.
type Kind int

const (
	// KindOther is any statement the dialect does not recognize.
	KindOther Kind = iota
	// KindEntry is a property entry.
	KindEntry
	// KindTypeMarker is the `type = object` marker.
	KindTypeMarker
	// KindProperties is the properties sub-block wrapping entries.
	KindProperties
	// KindRequired is a nested required block.
	KindRequired
	// KindNested is a properties sub-block that wraps a whole schema (type
	// marker, properties and required) instead of entries.
	KindNested
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindEntry:
		return "entry"
	case KindTypeMarker:
		return "type"
	case KindProperties:
		return "properties"
	case KindRequired:
		return "required"
	case KindNested:
		return "nested"
	default:
		return "unknown"
	}
}

// PropertyEntry is one named field definition, captured verbatim.
type PropertyEntry struct {
	Name string
	// Text runs from the entry head through its closing brace, or through
	// the closing parenthesis of a call-form entry.
	Text string
	// Ordinal is the entry's position in source order.
	Ordinal int
	// Start is the absolute offset of the entry head.
	Start int
}

// Statement is one top-level statement of a schema block.
type Statement struct {
	Kind  Kind
	Start int
	End   int
	Text  string
	// Name is set for entries.
	Name string
	// Open is the offset of the statement's block delimiter, or -1.
	Open int
	// Close is the offset of the matching closing delimiter, or -1.
	Close int
	// Entries holds the wrapped entries of a properties sub-block.
	Entries []PropertyEntry
	// Nested holds the statements of a KindNested wrapper.
	Nested []Statement
}

// Inner returns the text between a block statement's delimiters.
func (s Statement) Inner(text string) string {
	if s.Open < 0 {
		return ""
	}

	return text[s.Open+1 : s.Close]
}

// Layout is the parsed top level of a schema block.
type Layout struct {
	Statements []Statement
	// Entries lists every property entry in source order, including the ones
	// wrapped by a properties sub-block.
	Entries []PropertyEntry
	// Required lists the required blocks in source order, including the ones
	// inside a nested wrapper. Empty outer blocks are dropped when a nested
	// wrapper brings its own.
	Required []Statement
	// Extras lists the unrecognized statements in source order, including
	// the ones inside a nested wrapper.
	Extras []Statement
}

// Count returns the number of statements of kind k.
func (l Layout) Count(k Kind) int {
	n := 0

	for _, s := range l.Statements {
		if s.Kind == k {
			n++
		}
	}

	return n
}

// Names returns the entry names in source order.
func (l Layout) Names() []string {
	names := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		names[i] = e.Name
	}

	return names
}

// Extract splits the located block into statements and collects its
// property entries in source order. Entries nested inside other entries stay
// part of their parent's text.
//
// A properties sub-block wrapping a whole schema is flattened: its entries,
// required blocks and extras count as the block's own. Next to loose entries
// such a sub-block is an ordinary field called "properties".
func Extract(text string, r Region, d *dialect.Dialect) (Layout, error) {
	stmts, err := statements(text, r.Open+1, r.End-1, d)
	if err != nil {
		return Layout{}, err
	}

	l := Layout{Statements: stmts}

	if l.Count(KindEntry) > 0 {
		for i := range stmts {
			if stmts[i].Kind == KindNested {
				stmts[i].Kind = KindEntry
			}
		}
	}

	var outer, inner []Statement

	l.collect(stmts, &outer, &inner)

	for _, s := range outer {
		if len(inner) > 0 && strings.TrimSpace(scan.StripComments(s.Inner(text))) == "" {
			continue
		}

		l.Required = append(l.Required, s)
	}

	l.Required = append(l.Required, inner...)
	sort.SliceStable(l.Required, func(i, j int) bool { return l.Required[i].Start < l.Required[j].Start })

	for i := range l.Entries {
		l.Entries[i].Ordinal = i
	}

	return l, nil
}

func (l *Layout) collect(stmts []Statement, required, nested *[]Statement) {
	for _, s := range stmts {
		switch s.Kind {
		case KindEntry:
			l.Entries = append(l.Entries, PropertyEntry{Name: s.Name, Text: s.Text, Start: s.Start})
		case KindProperties:
			l.Entries = append(l.Entries, s.Entries...)
		case KindNested:
			l.collect(s.Nested, nested, nested)
		case KindRequired:
			*required = append(*required, s)
		case KindOther:
			l.Extras = append(l.Extras, s)
		}
	}
}

// Opaque returns the extras that carry a block of their own. Such a
// statement usually is an entry written in a form the dialect misses.
func (l Layout) Opaque(text string) []Statement {
	var out []Statement

	for _, s := range l.Extras {
		if hasBlock(text, s.Start, s.End) {
			out = append(out, s)
		}
	}

	return out
}

func hasBlock(text string, start, end int) bool {
	sc := scan.New(text[:end], start)
	for {
		st, ok := sc.Next()
		if !ok {
			return false
		}

		if st.Class == scan.Code && text[st.Off] == '{' {
			return true
		}
	}
}

// IsCanonical reports whether the block already has the canonical shape:
// one type marker, one properties sub-block, at most one required block, no
// loose entries, no nested wrapper and no sibling required list.
func IsCanonical(r Region, l Layout) bool {
	return r.Sibling == nil &&
		l.Count(KindTypeMarker) == 1 &&
		l.Count(KindProperties) == 1 &&
		l.Count(KindRequired) <= 1 &&
		l.Count(KindEntry) == 0 &&
		l.Count(KindNested) == 0
}

func statements(text string, start, end int, d *dialect.Dialect) ([]Statement, error) {
	var out []Statement

	pos := start
	for {
		pos = skipSeparators(text, pos, end)
		if pos >= end {
			return out, nil
		}

		st, ok, err := blockStatement(text, pos, end, d)
		if err != nil {
			return nil, err
		}

		if !ok {
			st, err = otherStatement(text, pos, end, d)
			if err != nil {
				return nil, err
			}
		}

		out = append(out, st)
		pos = st.End
	}
}

func skipSeparators(text string, pos, end int) int {
	for pos < end && strings.IndexByte(" \t\r\n;,", text[pos]) >= 0 {
		pos++
	}

	return pos
}

// blockStatement recognizes headed blocks: the properties sub-block, a
// nested required block, or a property entry.
func blockStatement(text string, pos, end int, d *dialect.Dialect) (Statement, bool, error) {
	st, ok, err := headed(text, pos, end, d.PropertiesHead, "{", KindProperties)
	if err != nil {
		return Statement{}, false, err
	}

	if ok {
		inner, err := statements(text, st.Open+1, st.Close, d)
		if err != nil {
			return Statement{}, false, err
		}

		switch {
		case onlyEntries(inner):
			for _, s := range inner {
				st.Entries = append(st.Entries, PropertyEntry{Name: s.Name, Text: s.Text, Start: s.Start})
			}

			return st, true, nil
		case wrapsSchema(inner):
			st.Kind, st.Nested, st.Name = KindNested, inner, entryName(text, pos, end, d)

			return st, true, nil
		}

		// anything else is a field that happens to be called "properties"
	}

	st, ok, err = headed(text, pos, end, d.RequiredHead, "{[", KindRequired)
	if err != nil || ok {
		return st, ok, err
	}

	st, ok, err = headed(text, pos, end, d.EntryHead, "{", KindEntry)
	if err != nil {
		return Statement{}, false, err
	}

	if ok {
		st.Name = entryName(text, pos, end, d)

		return st, true, nil
	}

	return called(text, pos, end, d.EntryCall)
}

func entryName(text string, pos, end int, d *dialect.Dialect) string {
	m := d.EntryHead.FindStringSubmatch(text[pos:end])
	if m == nil {
		return "properties"
	}

	return m[d.EntryHead.SubexpIndex("name")]
}

// called captures a call-form entry: the head, a '{' block as the call's
// last argument, and the call's closing parenthesis.
func called(text string, pos, end int, re *regexp.Regexp) (Statement, bool, error) {
	if re == nil {
		return Statement{}, false, nil
	}

	m := re.FindStringSubmatchIndex(text[pos:end])
	if m == nil {
		return Statement{}, false, nil
	}

	paren := pos + strings.IndexByte(text[pos:pos+m[1]], '(')

	open := scan.SkipTrivia(text, pos+m[1])
	if open >= end || text[open] != '{' {
		return Statement{}, false, nil
	}

	closeAt, err := scan.MatchBrace(text, open)
	if err != nil {
		return Statement{}, false, err
	}

	callEnd, err := scan.MatchBrace(text, paren)
	if err != nil {
		return Statement{}, false, err
	}

	if callEnd >= end {
		return Statement{}, false, fmt.Errorf("entry at line %d leaves the schema block: %w",
			scan.LineOf(text, pos), scan.ErrUnbalancedDelimiters)
	}

	// the block must be the call's last argument
	if scan.SkipTrivia(text, closeAt+1) != callEnd {
		return Statement{}, false, nil
	}

	g := re.SubexpIndex("name")

	return Statement{
		Kind:  KindEntry,
		Start: pos,
		End:   callEnd + 1,
		Text:  text[pos : callEnd+1],
		Name:  text[pos+m[2*g] : pos+m[2*g+1]],
		Open:  open,
		Close: closeAt,
	}, true, nil
}

// headed matches re at pos and captures the block that follows it through
// its closing delimiter.
func headed(text string, pos, end int, re *regexp.Regexp, openers string, kind Kind) (Statement, bool, error) {
	m := re.FindStringIndex(text[pos:end])
	if m == nil {
		return Statement{}, false, nil
	}

	open := scan.SkipTrivia(text, pos+m[1])
	if open >= end || strings.IndexByte(openers, text[open]) < 0 {
		return Statement{}, false, nil
	}

	closeAt, err := scan.MatchBrace(text, open)
	if err != nil {
		return Statement{}, false, err
	}

	if closeAt >= end {
		return Statement{}, false, fmt.Errorf("block at line %d leaves the schema block: %w",
			scan.LineOf(text, pos), scan.ErrUnbalancedDelimiters)
	}

	return Statement{
		Kind:  kind,
		Start: pos,
		End:   closeAt + 1,
		Text:  text[pos : closeAt+1],
		Open:  open,
		Close: closeAt,
	}, true, nil
}

// onlyEntries reports whether stmts are all entries. A schema-shaped field
// called "properties" is an entry too.
func onlyEntries(stmts []Statement) bool {
	for _, s := range stmts {
		if s.Kind != KindEntry && s.Kind != KindNested {
			return false
		}
	}

	return true
}

// wrapsSchema reports whether stmts form a schema of their own: a type
// marker and exactly one properties sub-block, no loose entries.
func wrapsSchema(stmts []Statement) bool {
	var markers, props int

	for _, s := range stmts {
		switch s.Kind {
		case KindEntry:
			return false
		case KindTypeMarker:
			markers++
		case KindProperties, KindNested:
			props++
		}
	}

	return markers == 1 && props == 1
}

// otherStatement consumes text up to the next top-level separator.
func otherStatement(text string, pos, end int, d *dialect.Dialect) (Statement, error) {
	pieces, err := scan.Split(text, pos, pieceEnd(text, pos, end))
	if err != nil {
		return Statement{}, err
	}

	st := Statement{Kind: KindOther, Start: pos, End: pos, Open: -1, Close: -1}
	if len(pieces) > 0 {
		st.Start, st.End, st.Text = pieces[0].Start, pieces[0].End, pieces[0].Text
	}

	if st.End <= pos {
		st.End = pos + 1
	}

	if d.TypeMarker.MatchString(strings.TrimSpace(scan.StripComments(st.Text))) {
		st.Kind = KindTypeMarker
	}

	return st, nil
}

// pieceEnd returns the offset of the first top-level separator at or after
// pos, or end.
func pieceEnd(text string, pos, end int) int {
	depth := 0

	sc := scan.New(text[:end], pos)
	for {
		st, ok := sc.Next()
		if !ok {
			return end
		}

		if st.Class != scan.Code {
			continue
		}

		switch c := text[st.Off]; {
		case scan.IsOpen(c):
			depth++
		case scan.IsClose(c):
			depth--
		case depth <= 0 && (c == '\n' || c == ';' || c == ','):
			return st.Off
		}
	}
}
