package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := Lookup(name)
			require.NoError(t, err)

			d, err := Compile(s)
			require.NoError(t, err)
			assert.Equal(t, name, d.Name)
			assert.NotNil(t, d.SiblingRequired)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generic, kotlin")
}

func TestLookup_ReturnsCopy(t *testing.T) {
	s, err := Lookup("kotlin")
	require.NoError(t, err)

	s.Markers[0] = "changed"

	again, err := Lookup("kotlin")
	require.NoError(t, err)
	assert.Equal(t, "필수", again.Markers[0])
}

func TestCompile_Errors(t *testing.T) {
	base, err := Lookup("generic")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *Spec)
		want   string
	}{
		{"missing anchor", func(s *Spec) { s.Anchor = "" }, "anchor is required"},
		{"bad regexp", func(s *Spec) { s.TypeMarker = "(" }, "invalid type_marker"},
		{"no name group", func(s *Spec) { s.EntryHead = `field\(` }, "(?P<name>...)"},
		{"call without name", func(s *Spec) { s.EntryCall = `call\(` }, "entry_call needs"},
		{"call without paren", func(s *Spec) { s.EntryCall = `(?P<name>\w+) =` }, "opening parenthesis"},
		{"sibling without item", func(s *Spec) { s.ListItem = "" }, "needs list_item"},
		{"missing template", func(s *Spec) { s.Template = "" }, "template is required"},
		{"bad template", func(s *Spec) { s.Template = "{{.Nope" }, "invalid template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)

			_, err := Compile(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestKotlinPatterns(t *testing.T) {
	d := MustBuiltin("kotlin")

	m := d.EntryHead.FindStringSubmatch(`putJsonObject("drive_id") {`)
	require.NotNil(t, m)
	assert.Equal(t, "drive_id", m[d.EntryHead.SubexpIndex("name")])

	assert.True(t, d.TypeMarker.MatchString(`put("type", "object")`))
	assert.True(t, d.TypeMarker.MatchString(`put("type", JsonPrimitive("object"))`))
	assert.False(t, d.TypeMarker.MatchString(`put("type", "string")`))
	assert.True(t, d.SiblingRequired.MatchString(`required = listOf(`))
	assert.True(t, d.SiblingRequired.MatchString(`required = emptyList()`))
	assert.False(t, d.Anchor.MatchString(`outputProperties = buildJsonObject {`))

	for _, piece := range []string{`add("a")`, `add(JsonPrimitive("a"))`} {
		name, ok := MatchItem(d.RequiredItem, piece)
		require.True(t, ok, piece)
		assert.Equal(t, "a", name)
	}

	_, ok := MatchItem(d.RequiredItem, `add(name)`)
	assert.False(t, ok)

	m = d.EntryCall.FindStringSubmatch(`put("channelId", buildJsonObject {`)
	require.NotNil(t, m)
	assert.Equal(t, "channelId", m[d.EntryCall.SubexpIndex("name")])
	assert.False(t, d.EntryCall.MatchString(`put("type", "object")`))
	assert.False(t, d.EntryCall.MatchString(`put("type", JsonPrimitive("object"))`))
}

func TestEntryIndent(t *testing.T) {
	to, ok := MustBuiltin("kotlin").EntryIndent("  ")
	require.True(t, ok)
	assert.Equal(t, "          ", to)

	_, ok = MustBuiltin("generic").EntryIndent("  ")
	assert.False(t, ok)
}

func TestRender_Kotlin(t *testing.T) {
	d := MustBuiltin("kotlin")

	got, err := d.Render(Canonical{
		Indent:   "  ",
		Entries:  []string{`putJsonObject("a") { }`},
		Required: []string{"a"},
		Extras:   []string{`put("additionalProperties", false)`},
	})
	require.NoError(t, err)

	want := "{\n" +
		"      put(\"type\", \"object\")\n" +
		"      putJsonObject(\"properties\") {\n" +
		"          putJsonObject(\"a\") { }\n" +
		"      }\n" +
		"      putJsonArray(\"required\") {\n" +
		"          add(\"a\")\n" +
		"      }\n" +
		"      put(\"additionalProperties\", false)\n" +
		"  }"
	assert.Equal(t, want, got)
}

func TestRender_Generic(t *testing.T) {
	d := MustBuiltin("generic")

	got, err := d.Render(Canonical{
		Entries:  []string{`field("a"){...}`, `field("b"){...}`},
		Required: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{ type: object, properties = { field("a"){...} field("b"){...} }, required = ["a", "b"] }`, got)
}
