package region

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemafix/internal/dialect"
	"schemafix/internal/scan"
)

const legacyTool = `fun copyFileTool(): Tool {
    return Tool(
        name = "dooray_drive_copy_file",
        description = "복사 { 합니다",
        inputSchema = Tool.Input(
            properties = buildJsonObject {
                putJsonObject("drive_id") {
                    put("type", "string")
                    put("description", "원본 드라이브 ID (필수)")
                }
                // comment with a } brace
                putJsonObject("options") {
                    put("type", "object")
                    putJsonObject("properties") {
                        putJsonObject("overwrite") { put("type", "boolean") }
                    }
                }
            },
            required = listOf("drive_id")
        ),
        outputSchema = null
    )
}
`

const canonicalTool = `        inputSchema = Tool.Input(
            properties = buildJsonObject {
                put("type", "object")
                putJsonObject("properties") {
                    putJsonObject("a") {
                        put("type", "string")
                    }
                }
                putJsonArray("required") {
                    add("a")
                }
            }
        ),
`

func kotlin() *dialect.Dialect { return dialect.MustBuiltin("kotlin") }

func TestLocate_Kotlin(t *testing.T) {
	r, err := Locate(legacyTool, kotlin(), Options{Unique: true})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(legacyTool[r.Start:], "properties = buildJsonObject {"))
	assert.Equal(t, byte('{'), legacyTool[r.Open])
	assert.Equal(t, byte('}'), legacyTool[r.End-1])
	assert.Equal(t, strings.Repeat(" ", 12), r.Indent)
	assert.Equal(t, legacyTool[r.Open+1:r.End-1], r.Inner)
	assert.True(t, 0 <= r.Start && r.Start < r.End && r.End <= len(legacyTool))

	require.NotNil(t, r.Sibling)
	assert.Equal(t, r.End, r.Sibling.Start)
	assert.Equal(t, `"drive_id"`, r.Sibling.Inner)
	assert.Equal(t, byte(')'), legacyTool[r.Sibling.End-1])
}

func TestLocate_NotFound(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"unrelated", "fun main() { println(\"hi\") }"},
		{"anchor in string", `val s = "properties = buildJsonObject { }"`},
		{"anchor in comment", "// properties = buildJsonObject {\n"},
		{"anchor without block", "properties = buildJsonObject(x)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Locate(tt.text, kotlin(), Options{Unique: true})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLocate_Unbalanced(t *testing.T) {
	text := "properties = buildJsonObject {\n    putJsonObject(\"a\") {\n"

	_, err := Locate(text, kotlin(), Options{})
	require.ErrorIs(t, err, scan.ErrUnbalancedDelimiters)
}

func TestLocate_Ambiguous(t *testing.T) {
	two := "val a = Tool.Input(properties = buildJsonObject { })\n" +
		"val b = Tool.Input(properties = buildJsonObject { })\n"

	_, err := Locate(two, kotlin(), Options{Unique: true})
	require.ErrorIs(t, err, ErrAmbiguousRegion)

	r, err := Locate(two, kotlin(), Options{Unique: false})
	require.NoError(t, err)
	assert.Less(t, r.End, strings.Index(two, "val b"))
}

func TestLocate_NestedAnchorIsNotAmbiguous(t *testing.T) {
	text := "properties = buildJsonObject {\n" +
		"  putJsonObject(\"x\") { properties = buildJsonObject { } }\n" +
		"  putJsonObject(\"y\") { properties = buildJsonObject { } }\n" +
		"}\n"

	r, err := Locate(text, kotlin(), Options{Unique: true})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Start)
	assert.Equal(t, len(text)-1, r.End)
}

func TestLocate_DifferentDepthsAreNotAmbiguous(t *testing.T) {
	text := "properties = buildJsonObject { }\n" +
		"run { properties = buildJsonObject { } }\n"

	r, err := Locate(text, kotlin(), Options{Unique: true})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Depth)
}

func TestLocate_SiblingVariants(t *testing.T) {
	tests := []struct {
		name      string
		tail      string
		wantInner *string
	}{
		{"listOf", `, required = listOf("a", "b"))`, ptr(`"a", "b"`)},
		{"emptyList", `, required = emptyList())`, ptr("")},
		{"comment before", ", // req\n required = listOf(\"a\"))", ptr(`"a"`)},
		{"other argument", `, outputSchema = null)`, nil},
		{"no comma", `)`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "Tool.Input(properties = buildJsonObject { }" + tt.tail

			r, err := Locate(text, kotlin(), Options{Unique: true})
			require.NoError(t, err)

			if tt.wantInner == nil {
				assert.Nil(t, r.Sibling)
				return
			}

			require.NotNil(t, r.Sibling)
			assert.Equal(t, *tt.wantInner, r.Sibling.Inner)
			assert.Equal(t, ")", text[r.Sibling.End:])
		})
	}
}

func TestExtract_Kotlin(t *testing.T) {
	d := kotlin()

	r, err := Locate(legacyTool, d, Options{Unique: true})
	require.NoError(t, err)

	l, err := Extract(legacyTool, r, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"drive_id", "options"}, l.Names())
	require.Len(t, l.Entries, 2)
	assert.True(t, strings.HasPrefix(l.Entries[1].Text, `putJsonObject("options") {`))
	assert.True(t, strings.HasSuffix(l.Entries[1].Text, "}"))
	assert.Contains(t, l.Entries[1].Text, `putJsonObject("overwrite")`)
	assert.Equal(t, 1, l.Entries[1].Ordinal)

	for _, e := range l.Entries {
		assert.Equal(t, e.Text, legacyTool[e.Start:e.Start+len(e.Text)])
	}

	require.Len(t, l.Statements, 3)
	assert.Equal(t, KindOther, l.Statements[1].Kind)
	assert.Equal(t, "// comment with a } brace", l.Statements[1].Text)
	assert.False(t, IsCanonical(r, l))
}

func TestExtract_Canonical(t *testing.T) {
	d := kotlin()

	r, err := Locate(canonicalTool, d, Options{Unique: true})
	require.NoError(t, err)

	l, err := Extract(canonicalTool, r, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, l.Names())
	assert.Equal(t, 1, l.Count(KindTypeMarker))
	assert.Equal(t, 1, l.Count(KindProperties))
	assert.Equal(t, 1, l.Count(KindRequired))
	assert.True(t, IsCanonical(r, l))
}

func TestExtract_FieldNamedProperties(t *testing.T) {
	d := kotlin()
	text := "properties = buildJsonObject {\n" +
		"    putJsonObject(\"properties\") {\n" +
		"        put(\"type\", \"string\")\n" +
		"    }\n" +
		"}"

	r, err := Locate(text, d, Options{})
	require.NoError(t, err)

	l, err := Extract(text, r, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"properties"}, l.Names())
	assert.Equal(t, 0, l.Count(KindProperties))
	assert.False(t, IsCanonical(r, l))
}

func TestExtract_DuplicatesPassThrough(t *testing.T) {
	d := dialect.MustBuiltin("generic")
	text := `define_schema(fields = { field("a"){ x } field("a"){ y } })`

	r, err := Locate(text, d, Options{})
	require.NoError(t, err)

	l, err := Extract(text, r, d)
	require.NoError(t, err)

	require.Len(t, l.Entries, 2)
	assert.Equal(t, `field("a"){ x }`, l.Entries[0].Text)
	assert.Equal(t, `field("a"){ y }`, l.Entries[1].Text)
}

func TestExtract_Generic(t *testing.T) {
	d := dialect.MustBuiltin("generic")
	text := `define_schema(fields = { type: object, properties = { field("a"){...} field("b"){...} }, required = ["a"] })`

	r, err := Locate(text, d, Options{Unique: true})
	require.NoError(t, err)
	assert.Nil(t, r.Sibling)

	l, err := Extract(text, r, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, l.Names())
	assert.Equal(t, []Kind{KindTypeMarker, KindProperties, KindRequired}, kinds(l))
	assert.Equal(t, `"a"`, l.Statements[2].Inner(text))
	assert.True(t, IsCanonical(r, l))
}

func TestExtract_CallEntries(t *testing.T) {
	d := kotlin()
	text := "properties = buildJsonObject {\n" +
		"    put(\"channelId\", buildJsonObject {\n" +
		"        put(\"type\", JsonPrimitive(\"string\"))\n" +
		"    })\n" +
		"    put( \"limit\" , buildJsonObject { put(\"type\", \"integer\") } )\n" +
		"    put(\"note\", buildJsonObject { }, extra)\n" +
		"}"

	r, err := Locate(text, d, Options{})
	require.NoError(t, err)

	l, err := Extract(text, r, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"channelId", "limit"}, l.Names())
	assert.True(t, strings.HasSuffix(l.Entries[0].Text, "})"))
	assert.True(t, strings.HasSuffix(l.Entries[1].Text, "} )"))
	assert.Equal(t, []Kind{KindEntry, KindEntry, KindOther}, kinds(l))
	assert.Equal(t, " put(\"type\", \"integer\") ", l.Statements[1].Inner(text))

	require.Len(t, l.Opaque(text), 1)
	assert.Equal(t, `put("note", buildJsonObject { }, extra)`, l.Opaque(text)[0].Text)
}

func TestExtract_CanonicalCallEntries(t *testing.T) {
	d := kotlin()
	text := "properties = buildJsonObject {\n" +
		"    put(\"type\", \"object\")\n" +
		"    putJsonObject(\"properties\") {\n" +
		"        put(\"drive_id\", buildJsonObject {\n" +
		"            put(\"type\", \"string\")\n" +
		"            put(\"enum\", buildJsonObject { put(\"x\", 1) })\n" +
		"        })\n" +
		"    }\n" +
		"    putJsonArray(\"required\") {\n" +
		"        add(JsonPrimitive(\"drive_id\"))\n" +
		"    }\n" +
		"}"

	r, err := Locate(text, d, Options{})
	require.NoError(t, err)

	l, err := Extract(text, r, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"drive_id"}, l.Names())
	assert.True(t, IsCanonical(r, l))
	assert.Empty(t, l.Opaque(text))
}

func TestExtract_DoubleNested(t *testing.T) {
	d := kotlin()
	text := "properties = buildJsonObject {\n" +
		"    put(\"type\", \"object\")\n" +
		"    putJsonObject(\"properties\") {\n" +
		"        put(\"type\", \"object\")\n" +
		"        putJsonObject(\"properties\") {\n" +
		"            putJsonObject(\"a\") { }\n" +
		"            putJsonObject(\"b\") { }\n" +
		"        }\n" +
		"        // inner note\n" +
		"        putJsonArray(\"required\") { add(\"a\") }\n" +
		"    }\n" +
		"    putJsonArray(\"required\") { }\n" +
		"}"

	r, err := Locate(text, d, Options{})
	require.NoError(t, err)

	l, err := Extract(text, r, d)
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindTypeMarker, KindNested, KindRequired}, kinds(l))
	assert.Equal(t, []string{"a", "b"}, l.Names())
	assert.False(t, IsCanonical(r, l))

	require.Len(t, l.Required, 1)
	assert.Equal(t, ` add("a") `, l.Required[0].Inner(text))

	require.Len(t, l.Extras, 1)
	assert.Equal(t, "// inner note", l.Extras[0].Text)
}

func TestExtract_SchemaFieldCalledProperties(t *testing.T) {
	d := kotlin()
	field := "putJsonObject(\"properties\") {\n" +
		"        put(\"type\", \"object\")\n" +
		"        putJsonObject(\"properties\") { putJsonObject(\"k\") { } }\n" +
		"    }"

	tests := []struct {
		name      string
		text      string
		wantNames []string
		canonical bool
	}{
		{
			name: "next to loose entries",
			text: "properties = buildJsonObject {\n" +
				"    putJsonObject(\"a\") { }\n" +
				"    " + field + "\n" +
				"}",
			wantNames: []string{"a", "properties"},
		},
		{
			name: "inside canonical properties",
			text: "properties = buildJsonObject {\n" +
				"    put(\"type\", \"object\")\n" +
				"    putJsonObject(\"properties\") {\n" +
				"    " + field + "\n" +
				"    }\n" +
				"}",
			wantNames: []string{"properties"},
			canonical: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Locate(tt.text, d, Options{})
			require.NoError(t, err)

			l, err := Extract(tt.text, r, d)
			require.NoError(t, err)

			assert.Equal(t, tt.wantNames, l.Names())
			assert.Equal(t, tt.canonical, IsCanonical(r, l))
			assert.Zero(t, l.Count(KindNested))
		})
	}
}

func TestLocate_From(t *testing.T) {
	d := dialect.MustBuiltin("generic")
	text := `define_schema(fields = { field("a"){ define_schema(fields = { }) } }) define_schema(fields = { })`

	first, err := Locate(text, d, Options{})
	require.NoError(t, err)
	assert.Zero(t, first.Start)

	second, err := Locate(text, d, Options{From: first.End})
	require.NoError(t, err)
	assert.Equal(t, strings.LastIndex(text, "define_schema"), second.Start)

	_, err = Locate(text, d, Options{From: second.End})
	require.ErrorIs(t, err, ErrNotFound)
}

func kinds(l Layout) []Kind {
	out := make([]Kind, len(l.Statements))
	for i, s := range l.Statements {
		out[i] = s.Kind
	}

	return out
}

func ptr(s string) *string { return &s }
