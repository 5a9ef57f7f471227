// Package config loads the batch configuration record from YAML, the
// environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"schemafix/internal/batch"
	"schemafix/internal/dialect"
	"schemafix/internal/required"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SCHEMAFIX_"

// DefaultInclude selects the tool definition files.
const DefaultInclude = "**/*Tool.kt"

var reportFormats = []string{"text", "json", "yaml"}

// Config is the configuration record of one batch run.
type Config struct {
	Root          string    `yaml:"root"`
	Include       []string  `yaml:"include"`
	Exclude       []string  `yaml:"exclude"`
	Files         []string  `yaml:"files"`
	DryRun        bool      `yaml:"dry_run"`
	Workers       int       `yaml:"workers"`
	Encoding      string    `yaml:"encoding"`
	Dialect       string    `yaml:"dialect"`
	Strategy      string    `yaml:"strategy"`
	Unique        bool      `yaml:"unique"`
	EnsureImports bool      `yaml:"ensure_imports"`
	Closed        bool      `yaml:"closed"`
	Report        string    `yaml:"report"`
	Overrides     Overrides `yaml:"overrides"`
}

// Overrides replace parts of the selected dialect.
type Overrides struct {
	Anchor    string   `yaml:"anchor"`
	Markers   []string `yaml:"markers"`
	ErrorCode string   `yaml:"error_code"`
	Imports   []string `yaml:"imports"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Root:          ".",
		Include:       []string{DefaultInclude},
		Workers:       runtime.NumCPU(),
		Encoding:      "utf-8",
		Dialect:       "kotlin",
		Strategy:      required.Standard.String(),
		Unique:        true,
		EnsureImports: true,
		Report:        "text",
	}
}

// LoadFile loads and parses a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults restores defaults that a file cleared explicitly.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Root == "" {
		cfg.Root = def.Root
	}

	if len(cfg.Include) == 0 {
		cfg.Include = def.Include
	}

	if cfg.Workers == 0 {
		cfg.Workers = def.Workers
	}

	if cfg.Encoding == "" {
		cfg.Encoding = def.Encoding
	}

	if cfg.Dialect == "" {
		cfg.Dialect = def.Dialect
	}

	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}

	if cfg.Report == "" {
		cfg.Report = def.Report
	}
}

// ReadEnv returns the SCHEMAFIX_* variables of dotenv overlaid with the
// process environment. A missing dotenv file is not an error.
func ReadEnv(dotenv string) (map[string]string, error) {
	env := map[string]string{}

	if dotenv != "" {
		vals, err := godotenv.Read(dotenv)

		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", dotenv, err)
		default:
			for k, v := range vals {
				if strings.HasPrefix(k, EnvPrefix) {
					env[k] = v
				}
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

// ApplyEnv overrides fields from SCHEMAFIX_* variables. List values are
// comma separated.
func (c *Config) ApplyEnv(env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[EnvPrefix+key]; ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	list := func(key string, dst *[]string) {
		if v, ok := env[EnvPrefix+key]; ok && strings.TrimSpace(v) != "" {
			*dst = splitList(v)
		}
	}

	flag := func(key string, dst *bool) error {
		v, ok := env[EnvPrefix+key]
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}

		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}

		*dst = b

		return nil
	}

	str("ROOT", &c.Root)
	list("INCLUDE", &c.Include)
	list("EXCLUDE", &c.Exclude)
	list("FILES", &c.Files)
	str("ENCODING", &c.Encoding)
	str("DIALECT", &c.Dialect)
	str("STRATEGY", &c.Strategy)
	str("REPORT", &c.Report)

	for key, dst := range map[string]*bool{
		"DRY_RUN":        &c.DryRun,
		"UNIQUE":         &c.Unique,
		"ENSURE_IMPORTS": &c.EnsureImports,
		"CLOSED":         &c.Closed,
	} {
		if err := flag(key, dst); err != nil {
			return err
		}
	}

	if v, ok := env[EnvPrefix+"WORKERS"]; ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}

		c.Workers = n
	}

	return nil
}

func splitList(v string) []string {
	var out []string

	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Validate checks the record before any document is touched.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root is required"))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if len(c.Include) == 0 && len(c.Files) == 0 {
		errs = append(errs, errors.New("include or files is required"))
	}

	for _, p := range append(slices.Clone(c.Include), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid glob %q", p))
		}
	}

	if _, err := required.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.BuildDialect(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(reportFormats, strings.ToLower(c.Report)) {
		errs = append(errs, fmt.Errorf("unknown report format %q (known: %s)", c.Report, strings.Join(reportFormats, ", ")))
	}

	return errors.Join(errs...)
}

// BuildDialect compiles the selected dialect with the overrides applied.
func (c *Config) BuildDialect() (*dialect.Dialect, error) {
	spec, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return nil, err
	}

	o := c.Overrides

	if o.Anchor != "" {
		spec.Anchor = o.Anchor
	}

	if len(o.Markers) > 0 {
		spec.Markers = o.Markers
	}

	if o.ErrorCode != "" {
		spec.ErrorCode = o.ErrorCode
	}

	if len(o.Imports) > 0 {
		spec.Imports = o.Imports
	}

	return dialect.Compile(spec)
}

// RunnerOptions converts the record into batch options.
func (c *Config) RunnerOptions(log *slog.Logger) (batch.Options, error) {
	d, err := c.BuildDialect()
	if err != nil {
		return batch.Options{}, err
	}

	strategy, err := required.ParseStrategy(c.Strategy)
	if err != nil {
		return batch.Options{}, err
	}

	return batch.Options{
		Root:          c.Root,
		Include:       c.Include,
		Exclude:       c.Exclude,
		Files:         c.Files,
		DryRun:        c.DryRun,
		Workers:       c.Workers,
		Encoding:      c.Encoding,
		Dialect:       d,
		Strategy:      strategy,
		Unique:        c.Unique,
		EnsureImports: c.EnsureImports,
		Closed:        c.Closed,
		Logger:        log,
	}, nil
}
