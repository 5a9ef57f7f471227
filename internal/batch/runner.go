package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"schemafix/internal/diagnostic"
	"schemafix/internal/dialect"
	"schemafix/internal/region"
	"schemafix/internal/required"
	"schemafix/internal/rewrite"
)

// ReasonCanceled marks documents that were never started because the batch
// was canceled.
const ReasonCanceled Reason = "Canceled"

// Options configures a Runner.
type Options struct {
	// Root is the directory documents are selected from.
	Root string
	// Include are doublestar globs relative to Root.
	Include []string
	// Exclude removes matching paths from the include set.
	Exclude []string
	// Files, when set, replaces globbing with an explicit list.
	Files []string
	// DryRun runs the whole pipeline without writing.
	DryRun bool
	// Workers bounds concurrent documents. Zero means runtime.NumCPU.
	Workers int
	// Encoding names the documents' text encoding. Empty means utf-8.
	Encoding string
	// Dialect describes the host notation. Nil means kotlin.
	Dialect *dialect.Dialect
	// Strategy selects the required-field sources.
	Strategy required.Strategy
	// Unique fails documents with several unrelated schema blocks. Without
	// it every block of a document is processed.
	Unique bool
	// Closed appends the dialect's closed-schema statement to rewritten
	// blocks.
	Closed bool
	// EnsureImports adds the imports the canonical form needs.
	EnsureImports bool
	// Logger receives per-document events. Nil discards them.
	Logger *slog.Logger
}

// Runner processes documents with a bounded worker pool.
type Runner struct {
	opts  Options
	codec codec
	log   *slog.Logger
}

// New validates opts and creates a Runner.
func New(opts Options) (*Runner, error) {
	c, err := newCodec(opts.Encoding)
	if err != nil {
		return nil, err
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	if opts.Dialect == nil {
		opts.Dialect = dialect.MustBuiltin("kotlin")
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Runner{opts: opts, codec: c, log: log}, nil
}

// Run processes every selected document and returns the report in
// discovery order. It only returns an error for batch-level failures and
// cancellation; per-document failures are in the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	docs, err := discover(r.opts.Root, r.opts.Include, r.opts.Exclude, r.opts.Files)
	if err != nil {
		return nil, err
	}

	r.log.Info("batch started",
		slog.String("root", r.opts.Root),
		slog.Int("documents", len(docs)),
		slog.Int("workers", r.opts.Workers),
		slog.Bool("dry_run", r.opts.DryRun))

	results := make([]Result, len(docs))

	var g errgroup.Group

	g.SetLimit(r.opts.Workers)

	for i, doc := range docs {
		if ctx.Err() != nil {
			results[i] = Result{Path: doc.Path, Status: StatusFailed, Reason: ReasonCanceled}
			continue
		}

		g.Go(func() error {
			results[i] = r.processFile(doc)
			return nil
		})
	}

	_ = g.Wait()

	rep := newReport(results, r.opts.DryRun)

	r.log.Info("batch finished",
		slog.Int("fixed", rep.Fixed),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed))

	return rep, ctx.Err()
}

// processFile reads, processes and writes back one document.
func (r *Runner) processFile(doc document) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{
				Path:   doc.Path,
				Status: StatusFailed,
				Reason: ReasonInternal,
				Detail: fmt.Sprint(p),
			}
			res.Diagnostics.AddError(diagnostic.CodeRewriteFailed, res.Detail, "")
		}

		if err := res.Diagnostics.Error(); err != nil {
			r.log.Warn("document failed",
				slog.String("path", res.Path),
				slog.Any("error", err))
		}

		r.log.Debug("document processed",
			slog.String("path", res.Path),
			slog.String("status", res.Status.String()),
			slog.String("reason", string(res.Reason)),
			slog.String("stage", res.Stage.String()))
	}()

	fail := func(err error) Result {
		st, reason := classify(err)

		failed := Result{Path: doc.Path, Status: st, Reason: reason, Detail: err.Error(), Stage: StageNotProcessed}
		failed.Diagnostics.AddError(diagnostic.CodeIOFailed, err.Error(), "")

		return failed
	}

	info, err := os.Stat(doc.abs)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(doc.abs)
	if err != nil {
		return fail(err)
	}

	text, err := r.codec.decode(data)
	if err != nil {
		return fail(err)
	}

	res, out := r.Process(doc.Path, text)
	if res.Status != StatusFixed || r.opts.DryRun {
		return res
	}

	encoded, err := r.codec.encode(out)
	if err == nil {
		err = writeAtomic(doc.abs, encoded, info.Mode().Perm())
	}

	if err != nil {
		res.Status, res.Reason = classify(err)
		res.Detail = err.Error()
		res.Diagnostics.AddError(diagnostic.CodeIOFailed, err.Error(), "")
	}

	return res
}

// written is one processed block of a document.
type written struct {
	entries   []region.PropertyEntry
	rewritten bool
}

// Process runs the pipeline on one document held in memory and returns the
// result with the new text. The text is returned unchanged unless the
// status is Fixed. Without Unique every schema block is processed in text
// order and a failure in any of them fails the whole document.
func (r *Runner) Process(path, text string) (Result, string) {
	d := r.opts.Dialect
	res := Result{Path: path, Stage: StageScanning}

	fail := func(err error) (Result, string) {
		res.Status, res.Reason = classify(err)
		res.Detail = err.Error()

		if res.Status == StatusSkipped {
			res.Stage = StageNoMatch
		} else {
			res.Stage = StageParseError
			res.Diagnostics.AddError(diagnostic.CodeRewriteFailed, err.Error(), "")
		}

		return res, text
	}

	var (
		out    = text
		blocks []written
	)

	for from := 0; ; {
		reg, err := region.Locate(out, d, region.Options{Unique: r.opts.Unique, From: from})
		if errors.Is(err, region.ErrNotFound) && len(blocks) > 0 {
			break
		}

		if err != nil {
			return fail(err)
		}

		res.Stage = StageMatched

		layout, err := region.Extract(out, reg, d)
		if err != nil {
			return fail(err)
		}

		resolution, err := required.Resolve(out, reg, layout, d, r.opts.Strategy)
		if err != nil {
			return fail(err)
		}

		if res.Source == required.SourceNone {
			res.Source = resolution.Source
		}

		res.Required = append(res.Required, resolution.Fields...)
		res.Diagnostics.Merge(resolution.Diagnostics)

		next, change, err := rewrite.Rewrite(out, reg, layout, resolution, d, rewrite.Options{Closed: r.opts.Closed})
		if err != nil {
			return fail(err)
		}

		blocks = append(blocks, written{entries: change.Entries, rewritten: change.Rewritten})
		out, from = next, change.End

		if r.opts.Unique {
			break
		}
	}

	res.Blocks = len(blocks)

	if !slices.ContainsFunc(blocks, func(b written) bool { return b.rewritten }) {
		res.Status, res.Reason = StatusSkipped, ReasonAlreadyCanonical
		return res, text
	}

	res.Stage = StageRewritten

	if r.opts.EnsureImports && len(d.Imports) > 0 {
		var added []string

		out, added = rewrite.EnsureImports(out, d.Imports)
		if len(added) > 0 {
			res.ImportsAdded = added
			res.Diagnostics.AddInfo(diagnostic.CodeImportsAdded, fmt.Sprintf("%d import(s) added", len(added)), "")
		}
	}

	if err := r.verify(out, blocks); err != nil {
		return fail(err)
	}

	res.Stage = StageVerified
	res.Status = StatusFixed

	return res, out
}

// verify walks the final text block by block and checks every rewritten
// block against the entries it was given.
func (r *Runner) verify(text string, blocks []written) error {
	opts := region.Options{Unique: r.opts.Unique}

	for _, b := range blocks {
		if !b.rewritten {
			reg, err := region.Locate(text, r.opts.Dialect, opts)
			if err != nil {
				return fmt.Errorf("%w: %w", rewrite.ErrVerifyFailed, err)
			}

			opts.From = reg.End

			continue
		}

		reg, err := rewrite.Verify(text, b.entries, r.opts.Dialect, opts)
		if err != nil {
			return err
		}

		opts.From = reg.End
	}

	return nil
}
