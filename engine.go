package sool

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/classify"
	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
	"github.com/SooL/sool-builder/internal/store"
	"github.com/SooL/sool-builder/internal/svd"
)

// Engine orchestrates a generation run: SVD ingestion, classification,
// cross-chip merging, finalization, guard inference, and the optional
// catalog snapshot.
type Engine struct {
	logger   *log.Logger
	sink     *diag.Sink
	rules    []classify.Option
	before   model.Corrector
	after    model.Corrector
	jobs     int
	failFast bool
	catalog  *store.Store

	classifier  *classify.Classifier
	chips       []string
	failed      []string
	peripherals []*model.Peripheral
	finalized   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes diagnostics through the given structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFamilies seeds the chip family registry before any ingest. A scope
// holding every member of a family renders as the family token.
func WithFamilies(families map[string][]string) Option {
	return func(e *Engine) {
		chip.SetFamilies(families)
	}
}

// WithJobs sets the parallel parse width. 0 means one worker per CPU; 1
// forces fully serial ingestion.
func WithJobs(jobs int) Option {
	return func(e *Engine) {
		e.jobs = jobs
	}
}

// WithRulesDir loads classification rules from a directory instead of the
// embedded set.
func WithRulesDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.rules = append(e.rules, classify.WithRulesDir(dir))
		}
	}
}

// WithRulesFS loads classification rules from the given filesystem. Mainly
// for tests.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.rules = append(e.rules, classify.WithRulesFS(fsys))
	}
}

// WithCorrectors installs the correction hook tables: before runs on each
// freshly parsed document ahead of classification and merging, after runs
// on the finalized tree.
func WithCorrectors(before, after model.Corrector) Option {
	return func(e *Engine) {
		e.before = before
		e.after = after
	}
}

// WithCatalog attaches an opened catalog store; Finalize snapshots the run
// into it. Without one the engine runs fully in-memory.
func WithCatalog(s *store.Store) Option {
	return func(e *Engine) {
		e.catalog = s
	}
}

// WithFailFast aborts the run on the first malformed input document instead
// of excluding that chip and continuing.
func WithFailFast(failFast bool) Option {
	return func(e *Engine) {
		e.failFast = failFast
	}
}

// New creates an Engine. The zero configuration ingests in parallel with
// one worker per CPU, uses the embedded classification rules, and keeps
// everything in memory.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	e.sink = diag.NewSink(e.logger)
	e.classifier = classify.New(e.rules...)
	return e
}

// Result is one finalized generation run.
type Result struct {
	// Chips lists every ingested chip identifier, sorted.
	Chips []string
	// Failed lists the input paths whose documents were malformed and whose
	// chips were excluded, in input order.
	Failed []string
	// Peripherals is the merged tree, sorted by logical name.
	Peripherals []*model.Peripheral
	// Guards is the inferred guard table.
	Guards *model.GuardTable
	// Diagnostics holds every advisory finding the run recorded.
	Diagnostics []diag.Entry
}

// Ingest parses and folds the given SVD files. Parsing runs on a bounded
// worker pool; folding is serialized in input order so the merge result is
// reproducible. A malformed document excludes its chip with an error
// diagnostic unless fail-fast is set.
func (e *Engine) Ingest(ctx context.Context, paths []string) error {
	if e.jobs == 1 {
		return e.ingestSerial(ctx, paths)
	}
	return e.ingestParallel(ctx, paths)
}

func (e *Engine) ingestSerial(ctx context.Context, paths []string) error {
	for _, path := range paths {
		doc, err := svd.ParseFile(path, e.sink)
		if err != nil {
			if e.failFast {
				return err
			}
			e.failed = append(e.failed, path)
			e.sink.Errorf(diag.KindIngest, "", "", "excluding chip: %v", err)
			continue
		}
		if err := e.AddChip(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// AddChip folds one parsed document into the accumulator: intra-document
// compile, pre-merge hooks, classification, then the cross-chip merge. A
// classification failure aborts the run; rules must be total.
func (e *Engine) AddChip(ctx context.Context, doc *svd.Document) error {
	for _, p := range doc.Peripherals {
		p.Compile()
		p.ApplyBefore(e.before)
		if err := e.classifier.Classify(ctx, p, e.sink); err != nil {
			return fmt.Errorf("chip %s: %w", doc.Chip, err)
		}
		e.fold(p)
	}
	e.chips = append(e.chips, doc.Chip)
	return nil
}

// fold merges an incoming peripheral into the accumulator entry sharing its
// logical name and group, or starts a new entry. Classification guarantees
// the name is order-independent, so equal hardware always meets here.
func (e *Engine) fold(incoming *model.Peripheral) {
	for _, existing := range e.peripherals {
		if existing.NodeName() == incoming.NodeName() && existing.Group() == incoming.Group() {
			existing.MergePeripheral(incoming, e.sink)
			return
		}
	}
	e.peripherals = append(e.peripherals, incoming)
}

// Finalize closes the run: recomputes and canonicalizes scopes, runs the
// post-merge hooks, infers the guard table, and snapshots to the catalog
// when one is attached. Call exactly once, after the last Ingest.
func (e *Engine) Finalize() (*Result, error) {
	if e.finalized {
		return nil, fmt.Errorf("sool: run already finalized")
	}
	e.finalized = true

	for _, p := range e.peripherals {
		p.Finalize()
		p.ApplyAfter(e.after)
	}
	sort.SliceStable(e.peripherals, func(i, j int) bool {
		a, b := e.peripherals[i], e.peripherals[j]
		if a.Group() != b.Group() {
			return a.Group() < b.Group()
		}
		return a.NodeName() < b.NodeName()
	})

	chips := append([]string(nil), e.chips...)
	sort.Strings(chips)

	res := &Result{
		Chips:       chips,
		Failed:      append([]string(nil), e.failed...),
		Peripherals: e.peripherals,
		Guards:      model.InferGuards(e.peripherals),
		Diagnostics: e.sink.Entries(),
	}

	if e.catalog != nil {
		if err := e.catalog.SaveSnapshot(res.Peripherals, res.Guards, res.Diagnostics); err != nil {
			return nil, fmt.Errorf("sool: snapshot: %w", err)
		}
	}
	return res, nil
}

// Run ingests the given files and finalizes in one call.
func (e *Engine) Run(ctx context.Context, paths []string) (*Result, error) {
	if err := e.Ingest(ctx, paths); err != nil {
		return nil, err
	}
	return e.Finalize()
}

// Diagnostics returns everything recorded so far, including findings from
// ingests that have not been finalized yet.
func (e *Engine) Diagnostics() []diag.Entry {
	return e.sink.Entries()
}
