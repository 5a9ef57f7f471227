// Package dialect describes the host-language notation of schema builder
// blocks: how to find them, how their entries look, where required-ness is
// encoded and how the canonical form is rendered.
//
// Two dialects are built in:
//   - kotlin: `properties = buildJsonObject { putJsonObject("x") { ... } }`
//     with a sibling `required = listOf(...)` argument
//   - generic: `define_schema(fields = { field("x"){ ... } }, required = [...])`
//
// Patterns only recognize heads; balancing is always done by package scan.
package dialect

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// Dialect is a compiled description of one host notation.
type Dialect struct {
	// Name identifies the dialect in configuration.
	Name string
	// Anchor matches the invocation head that precedes the schema block's '{'.
	Anchor *regexp.Regexp
	// EntryHead matches, at the start of a statement, a property entry head
	// that precedes its '{'. Group "name" captures the property name.
	EntryHead *regexp.Regexp
	// EntryCall matches the head of an entry written as a call whose last
	// argument is a block, such as `put("x", buildJsonObject {`. The entry
	// runs through the call's closing parenthesis. Group "name" captures the
	// property name.
	EntryCall *regexp.Regexp
	// TypeMarker matches a complete top-level type marker statement.
	TypeMarker *regexp.Regexp
	// PropertiesHead matches the head of the canonical properties sub-block.
	PropertiesHead *regexp.Regexp
	// RequiredHead matches the head of a nested required block.
	RequiredHead *regexp.Regexp
	// RequiredItem matches one item of a nested required block; group 1 is the name.
	RequiredItem *regexp.Regexp
	// SiblingRequired matches, right after the ',' following the block, the
	// head of a required list argument that precedes its '(' or '['.
	SiblingRequired *regexp.Regexp
	// ListItem matches one item of a sibling required list; group 1 is the name.
	ListItem *regexp.Regexp
	// Markers are inline tokens that flag an entry as required.
	Markers []string
	// ErrorCode matches error-code tokens; group 1 is the field-name suffix.
	ErrorCode *regexp.Regexp
	// Imports are the import paths the canonical form relies on.
	Imports []string
	// Step is one indentation level inside the rendered block.
	Step string
	// EntryDepth is the number of Steps between the block indent and a
	// rendered entry. Zero keeps entry continuation lines as written.
	EntryDepth int
	// Closed is the statement appended when closed schemas are requested.
	Closed string

	tmpl *template.Template
}

// Canonical is the data rendered into a dialect's canonical block.
type Canonical struct {
	// Indent is the indentation of the line holding the anchor.
	Indent string
	// Step is one indentation level.
	Step string
	// Entries are the raw property entry texts in source order.
	Entries []string
	// Required are the required field names in resolution order.
	Required []string
	// Extras are other top-level statements kept verbatim.
	Extras []string
}

// EntryIndent returns the indentation a rendered entry starts at, or false
// when the dialect keeps entries as written.
func (d *Dialect) EntryIndent(indent string) (string, bool) {
	if d.EntryDepth <= 0 {
		return "", false
	}

	return indent + strings.Repeat(d.Step, d.EntryDepth), true
}

// Render renders the canonical block, from its opening to its closing brace.
func (d *Dialect) Render(c Canonical) (string, error) {
	if c.Step == "" {
		c.Step = d.Step
	}

	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("rendering %s block: %w", d.Name, err)
	}

	return buf.String(), nil
}

// Spec is the uncompiled, configurable form of a Dialect.
type Spec struct {
	Name            string   `yaml:"name"`
	Anchor          string   `yaml:"anchor"`
	EntryHead       string   `yaml:"entry_head"`
	EntryCall       string   `yaml:"entry_call"`
	TypeMarker      string   `yaml:"type_marker"`
	PropertiesHead  string   `yaml:"properties_head"`
	RequiredHead    string   `yaml:"required_head"`
	RequiredItem    string   `yaml:"required_item"`
	SiblingRequired string   `yaml:"sibling_required"`
	ListItem        string   `yaml:"list_item"`
	Markers         []string `yaml:"markers"`
	ErrorCode       string   `yaml:"error_code"`
	Imports         []string `yaml:"imports"`
	Step            string   `yaml:"step"`
	EntryDepth      int      `yaml:"entry_depth"`
	Closed          string   `yaml:"closed"`
	Template        string   `yaml:"template"`
}

// Compile validates a Spec and builds the Dialect.
func Compile(s Spec) (*Dialect, error) {
	d := &Dialect{
		Name:    s.Name,
		Markers: append([]string(nil), s.Markers...),
		Imports: append([]string(nil), s.Imports...),
		Step:    s.Step,

		EntryDepth: s.EntryDepth,
		Closed:     s.Closed,
	}

	if d.Step == "" {
		d.Step = "    "
	}

	patterns := []struct {
		field    string
		expr     string
		dst      **regexp.Regexp
		anchored bool
		optional bool
	}{
		{"anchor", s.Anchor, &d.Anchor, false, false},
		{"entry_head", s.EntryHead, &d.EntryHead, true, false},
		{"entry_call", s.EntryCall, &d.EntryCall, true, true},
		{"type_marker", s.TypeMarker, &d.TypeMarker, true, false},
		{"properties_head", s.PropertiesHead, &d.PropertiesHead, true, false},
		{"required_head", s.RequiredHead, &d.RequiredHead, true, false},
		{"required_item", s.RequiredItem, &d.RequiredItem, true, false},
		{"sibling_required", s.SiblingRequired, &d.SiblingRequired, true, true},
		{"list_item", s.ListItem, &d.ListItem, true, true},
		{"error_code", s.ErrorCode, &d.ErrorCode, false, true},
	}

	for _, p := range patterns {
		if p.expr == "" {
			if p.optional {
				continue
			}

			return nil, fmt.Errorf("dialect %q: %s is required", s.Name, p.field)
		}

		expr := p.expr
		if p.anchored && !strings.HasPrefix(expr, "^") {
			expr = "^(?:" + expr + ")"
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("dialect %q: invalid %s: %w", s.Name, p.field, err)
		}

		*p.dst = re
	}

	if d.EntryHead.SubexpIndex("name") < 0 {
		return nil, fmt.Errorf("dialect %q: entry_head needs a (?P<name>...) group", s.Name)
	}

	if d.EntryCall != nil {
		if d.EntryCall.SubexpIndex("name") < 0 {
			return nil, fmt.Errorf("dialect %q: entry_call needs a (?P<name>...) group", s.Name)
		}

		if !strings.Contains(s.EntryCall, `\(`) {
			return nil, fmt.Errorf("dialect %q: entry_call must match an opening parenthesis", s.Name)
		}
	}

	if d.SiblingRequired != nil && d.ListItem == nil {
		return nil, fmt.Errorf("dialect %q: sibling_required needs list_item", s.Name)
	}

	if s.Template == "" {
		return nil, fmt.Errorf("dialect %q: template is required", s.Name)
	}

	tmpl, err := template.New(s.Name).Funcs(funcs).Parse(s.Template)
	if err != nil {
		return nil, fmt.Errorf("dialect %q: invalid template: %w", s.Name, err)
	}

	d.tmpl = tmpl

	return d, nil
}

var funcs = template.FuncMap{
	"quote": strconv.Quote,
	"join":  strings.Join,
}

// Lookup returns a fresh copy of a built-in dialect spec.
func Lookup(name string) (Spec, error) {
	s, ok := builtins[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown dialect %q (known: %s)", name, strings.Join(Names(), ", "))
	}

	s.Markers = append([]string(nil), s.Markers...)
	s.Imports = append([]string(nil), s.Imports...)

	return s, nil
}

// Names lists the built-in dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// MustBuiltin compiles a built-in dialect and panics on failure.
func MustBuiltin(name string) *Dialect {
	s, err := Lookup(name)
	if err != nil {
		panic(err)
	}

	d, err := Compile(s)
	if err != nil {
		panic(err)
	}

	return d
}

// MatchItem matches a required-list item and returns the name captured by
// the first participating group.
func MatchItem(re *regexp.Regexp, piece string) (string, bool) {
	m := re.FindStringSubmatchIndex(piece)
	if m == nil {
		return "", false
	}

	for g := 1; 2*g+1 < len(m); g++ {
		if m[2*g] >= 0 {
			return piece[m[2*g]:m[2*g+1]], true
		}
	}

	return "", false
}
