package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacy = `val schema = Tool.Input(
    properties = buildJsonObject {
        putJsonObject("a") { put("type", "string") }
    },
    required = listOf("a")
)
`

func tree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}

	return root
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		args  []string
		want  int
	}{
		{"all fixed", map[string]string{"CopyTool.kt": legacy}, nil, 0},
		{"nothing found", map[string]string{"EmptyTool.kt": "fun f() = 1\n"}, nil, 0},
		{"one failed", map[string]string{"CopyTool.kt": legacy, "BrokenTool.kt": "properties = buildJsonObject {\n"}, nil, 1},
		{"bad strategy", nil, []string{"--strategy", "guess"}, exitFatal},
		{"unknown flag", nil, []string{"--frobnicate"}, exitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tree(t, tt.files)

			var stdout, stderr bytes.Buffer

			code := run(append([]string{"--root", root, "--dry-run"}, tt.args...), &stdout, &stderr)
			assert.Equal(t, tt.want, code, stderr.String())
		})
	}
}

func TestRun_MissingRoot(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"--root", filepath.Join(t.TempDir(), "nope")}, &stdout, &stderr)
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stderr.String(), "root path missing")
}

func TestRun_WritesAndReports(t *testing.T) {
	root := tree(t, map[string]string{"CopyTool.kt": legacy})

	var stdout, stderr bytes.Buffer

	code := run([]string{"--root", root, "--report", "json", "--workers", "1"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rep struct {
		Fixed   int `json:"fixed"`
		Results []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	assert.Equal(t, 1, rep.Fixed)
	assert.Equal(t, "CopyTool.kt", rep.Results[0].Path)

	data, err := os.ReadFile(filepath.Join(root, "CopyTool.kt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `putJsonArray("required")`)
	assert.NotContains(t, string(data), "listOf")
}

func TestRun_ConfigFileAndEnv(t *testing.T) {
	root := tree(t, map[string]string{"schema.txt": `define_schema(fields = { field("a"){ @required } })`})

	cfgPath := filepath.Join(t.TempDir(), "schemafix.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dialect: generic\ninclude: [\"*.txt\"]\nreport: yaml\n"), 0o644))

	t.Setenv("SCHEMAFIX_ROOT", root)

	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", cfgPath, "--report", "text"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "FIXED    schema.txt")

	data, err := os.ReadFile(filepath.Join(root, "schema.txt"))
	require.NoError(t, err)
	assert.Equal(t, `define_schema(fields = { type: object, properties = { field("a"){ @required } }, required = ["a"] })`, string(data))

	code = run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr)
	assert.Equal(t, exitFatal, code)
}

func TestRun_EveryBlockClosed(t *testing.T) {
	two := "a = define_schema(fields = { field(\"a\"){ x } })\nb = define_schema(fields = { field(\"b\"){ y } })\n"
	root := tree(t, map[string]string{"schema.txt": two})

	var stdout, stderr bytes.Buffer

	args := []string{"--root", root, "--dialect", "generic", "--include", "*.txt", "--unique=false", "--closed"}
	require.Equal(t, 0, run(args, &stdout, &stderr), stderr.String())

	data, err := os.ReadFile(filepath.Join(root, "schema.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a = define_schema(fields = { type: object, properties = { field(\"a\"){ x } }, required = [], additionalProperties: false })\n"+
		"b = define_schema(fields = { type: object, properties = { field(\"b\"){ y } }, required = [], additionalProperties: false })\n",
		string(data))
}
