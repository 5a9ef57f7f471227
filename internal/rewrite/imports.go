package rewrite

import (
	"strings"
)

// EnsureImports adds the missing imports after the last import line and
// returns the new text with the paths it added. Text without any import
// line is returned unchanged. A wildcard import of the parent package
// counts as present.
func EnsureImports(text string, imports []string) (string, []string) {
	lines := strings.SplitAfter(text, "\n")

	have := map[string]bool{}
	last := -1

	for i, line := range lines {
		path, ok := importPath(line)
		if !ok {
			continue
		}

		have[path] = true
		last = i
	}

	if last < 0 {
		return text, nil
	}

	var added []string

	for _, p := range imports {
		if have[p] || have[parent(p)+".*"] {
			continue
		}

		have[p] = true
		added = append(added, p)
	}

	if len(added) == 0 {
		return text, nil
	}

	var b strings.Builder

	b.Grow(len(text) + 32*len(added))

	for i, line := range lines {
		b.WriteString(line)

		if i != last {
			continue
		}

		if !strings.HasSuffix(line, "\n") {
			b.WriteString("\n")
		}

		for _, p := range added {
			b.WriteString("import " + p + "\n")
		}
	}

	return b.String(), added
}

// importPath returns the path of an `import a.b.c` line, without any alias.
func importPath(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "import ")
	if !ok {
		return "", false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}

	return strings.TrimSuffix(fields[0], ";"), true
}

func parent(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}

	return path
}
