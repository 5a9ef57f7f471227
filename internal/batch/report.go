package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"schemafix/internal/diagnostic"
	"schemafix/internal/required"
)

// Result is the outcome of one document.
type Result struct {
	Path         string                 `json:"path" yaml:"path"`
	Status       Status                 `json:"status" yaml:"status"`
	Reason       Reason                 `json:"reason,omitempty" yaml:"reason,omitempty"`
	Detail       string                 `json:"detail,omitempty" yaml:"detail,omitempty"`
	Stage        Stage                  `json:"stage" yaml:"stage"`
	Blocks       int                    `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Source       required.Source        `json:"source,omitempty" yaml:"source,omitempty"`
	Required     []required.Field       `json:"required,omitempty" yaml:"required,omitempty"`
	ImportsAdded []string               `json:"imports_added,omitempty" yaml:"imports_added,omitempty"`
	Diagnostics  diagnostic.Diagnostics `json:"diagnostics" yaml:"diagnostics,omitempty"`
}

// Report is the ordered outcome of a batch.
type Report struct {
	DryRun  bool     `json:"dry_run" yaml:"dry_run"`
	Fixed   int      `json:"fixed" yaml:"fixed"`
	Skipped int      `json:"skipped" yaml:"skipped"`
	Failed  int      `json:"failed" yaml:"failed"`
	Results []Result `json:"results" yaml:"results"`
}

func newReport(results []Result, dryRun bool) *Report {
	rep := &Report{DryRun: dryRun, Results: results}

	for _, res := range results {
		switch res.Status {
		case StatusFixed:
			rep.Fixed++
		case StatusSkipped:
			rep.Skipped++
		default:
			rep.Failed++
		}
	}

	return rep
}

// ExitCode is 0 when no document failed and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Failed > 0 {
		return 1
	}

	return 0
}

// Write renders the report in the named format: text, json or yaml.
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return r.WriteText(w)
	case "json":
		return r.WriteJSON(w)
	case "yaml", "yml":
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteText writes one line per document followed by the totals.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-8s %s", strings.ToUpper(res.Status.String()), res.Path)

		switch {
		case res.Reason != ReasonNone && res.Detail != "":
			fmt.Fprintf(&b, " (%s: %s)", res.Reason, res.Detail)
		case res.Reason != ReasonNone:
			fmt.Fprintf(&b, " (%s)", res.Reason)
		}

		b.WriteString("\n")

		for _, d := range res.Diagnostics.Warnings {
			fmt.Fprintf(&b, "         warning: %s\n", d.String())
		}
	}

	suffix := ""
	if r.DryRun {
		suffix = " (dry run)"
	}

	fmt.Fprintf(&b, "\nFixed: %d, Skipped: %d, Failed: %d%s\n", r.Fixed, r.Skipped, r.Failed, suffix)

	_, err := io.WriteString(w, b.String())

	return err
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return err
	}

	return enc.Close()
}
