package dialect

const quoted = `"((?:[^"\\]|\\.)*)"`

const kotlinTemplate = `{
{{.Indent}}{{.Step}}put("type", "object")
{{.Indent}}{{.Step}}putJsonObject("properties") {
{{- range .Entries}}
{{$.Indent}}{{$.Step}}{{$.Step}}{{.}}
{{- end}}
{{.Indent}}{{.Step}}}
{{.Indent}}{{.Step}}putJsonArray("required") {
{{- range .Required}}
{{$.Indent}}{{$.Step}}{{$.Step}}add({{quote .}})
{{- end}}
{{.Indent}}{{.Step}}}
{{- range .Extras}}
{{$.Indent}}{{$.Step}}{{.}}
{{- end}}
{{.Indent}}}`

const genericTemplate = `{ type: object, properties = { {{join .Entries " "}} }, required = [
{{- range $i, $r := .Required}}{{if $i}}, {{end}}{{quote $r}}{{end -}}
]{{range .Extras}}, {{.}}{{end}} }`

var builtins = map[string]Spec{
	"kotlin": {
		Name:            "kotlin",
		Anchor:          `\bproperties\s*=\s*buildJsonObject\b`,
		EntryHead:       `putJsonObject\(\s*"(?P<name>(?:[^"\\]|\\.)*)"\s*\)\s*`,
		EntryCall:       `put\(\s*"(?P<name>(?:[^"\\]|\\.)*)"\s*,\s*buildJsonObject\s*`,
		TypeMarker:      `put\(\s*"type"\s*,\s*(?:"object"|JsonPrimitive\(\s*"object"\s*\))\s*\)$`,
		PropertiesHead:  `putJsonObject\(\s*"properties"\s*\)\s*`,
		RequiredHead:    `putJsonArray\(\s*"required"\s*\)\s*`,
		RequiredItem:    `add\(\s*(?:` + quoted + `|JsonPrimitive\(\s*` + quoted + `\s*\))\s*\)$`,
		SiblingRequired: `required\s*=\s*(?:listOf|arrayOf|mutableListOf|emptyList)\s*`,
		ListItem:        quoted + `$`,
		Markers:         []string{"필수", "(required)"},
		ErrorCode:       `code\s*=\s*"MISSING_([A-Z0-9_]+)"`,
		Imports: []string{
			"kotlinx.serialization.json.put",
			"kotlinx.serialization.json.putJsonObject",
			"kotlinx.serialization.json.putJsonArray",
			"kotlinx.serialization.json.add",
		},
		Step:       "    ",
		EntryDepth: 2,
		Closed:     `put("additionalProperties", false)`,
		Template:   kotlinTemplate,
	},
	"generic": {
		Name:            "generic",
		Anchor:          `\bdefine_schema\(\s*fields\s*=`,
		EntryHead:       `field\(\s*"(?P<name>(?:[^"\\]|\\.)*)"\s*\)\s*`,
		TypeMarker:      `type\s*:\s*object$`,
		PropertiesHead:  `properties\s*=\s*`,
		RequiredHead:    `required\s*=\s*`,
		RequiredItem:    quoted + `$`,
		SiblingRequired: `required\s*=\s*`,
		ListItem:        quoted + `$`,
		Markers:         []string{"@required"},
		ErrorCode:       `"MISSING_([A-Z0-9_]+)"`,
		Step:            "  ",
		Closed:          "additionalProperties: false",
		Template:        genericTemplate,
	},
}
