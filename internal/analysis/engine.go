// Package analysis runs the full pipeline over two versions of a program:
// arena construction, edit matching, partial-declaration merging, rude edit
// classification and semantic edit synthesis.
package analysis

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
	"hotdelta/internal/logging"
	"hotdelta/internal/match"
	"hotdelta/internal/partial"
	"hotdelta/internal/rude"
	"hotdelta/internal/semantic"
)

// Request is one analysis of an old and a new version of a compilation.
type Request struct {
	// Name labels the request in logs and batch results.
	Name         string
	Old, New     []*decl.Document
	Capabilities capability.Set
	// Model answers erasure, reloadability and synthesized-member
	// questions. Nil selects rude.DefaultModel.
	Model rude.SymbolModel
}

// Unit is the outcome for one top-level type.
type Unit struct {
	Name        string `json:"name"`
	Rude        bool   `json:"rude"`
	Edits       int    `json:"edits"`
	Diagnostics int    `json:"diagnostics"`
	Operations  int    `json:"operations"`
}

// Result is the outcome of one request.
type Result struct {
	RunID        string               `json:"runId"`
	Name         string               `json:"name,omitempty"`
	Capabilities []string             `json:"capabilities"`
	Edits        []string             `json:"edits"`
	Diagnostics  []rude.Diagnostic    `json:"diagnostics"`
	Operations   []semantic.Operation `json:"operations"`
	Units        []Unit               `json:"units"`
	Summary      *rude.Summary        `json:"summary"`
	// Truncated is set when diagnostics beyond the configured maximum were
	// dropped.
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"durationNs"`

	Script   *match.Script  `json:"-"`
	Verdicts []rude.Verdict `json:"-"`
}

// HasRudeEdits reports whether any edit was classified rude.
func (r *Result) HasRudeEdits() bool {
	return r.Summary != nil && r.Summary.Rude > 0
}

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger
	// Parallelism bounds AnalyzeBatch. Zero uses GOMAXPROCS.
	Parallelism int
	// MaxDiagnostics truncates the diagnostics of a result. Zero keeps all.
	MaxDiagnostics int
}

// Engine runs analyses. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	logger         *slog.Logger
	parallelism    int
	maxDiagnostics int
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	p := opts.Parallelism
	if p <= 0 {
		p = runtime.GOMAXPROCS(0)
	}
	if err := initMetrics(); err != nil {
		logger.Warn("Failed to create analysis metrics", "error", err)
	}
	return &Engine{logger: logger, parallelism: p, maxDiagnostics: opts.MaxDiagnostics}
}

// Analyze runs the pipeline. Rude edits are reported as diagnostics; errors
// are reserved for cancellation and invariant violations, in which case no
// partial result is returned.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(
			attribute.String("analysis.run_id", runID),
			attribute.String("analysis.name", req.Name),
			attribute.Int("analysis.old_documents", len(req.Old)),
			attribute.Int("analysis.new_documents", len(req.New)),
		),
	)
	defer span.End()
	start := time.Now()
	log := e.logger.With("run", runID)
	if req.Name != "" {
		log = log.With("name", req.Name)
	}

	res, err := e.analyze(ctx, req, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("analysis failed", "error", err)
		return nil, err
	}
	res.RunID = runID
	res.Name = req.Name
	res.Duration = time.Since(start)

	attrs := metric.WithAttributes(attribute.Bool("rude", res.HasRudeEdits()))
	if analysisTotal != nil {
		analysisTotal.Add(ctx, 1, attrs)
		analysisLatency.Record(ctx, res.Duration.Seconds(), attrs)
		editsTotal.Add(ctx, int64(res.Summary.TotalEdits))
		rudeEditsTotal.Add(ctx, int64(res.Summary.Rude))
		operationsTotal.Add(ctx, int64(len(res.Operations)))
	}
	span.SetAttributes(
		attribute.Int("analysis.edits", res.Summary.TotalEdits),
		attribute.Int("analysis.rude", res.Summary.Rude),
		attribute.Int("analysis.operations", len(res.Operations)),
	)
	log.Debug("analysis finished",
		"edits", res.Summary.TotalEdits,
		"rude", res.Summary.Rude,
		"operations", len(res.Operations),
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Engine) analyze(ctx context.Context, req Request, log *slog.Logger) (*Result, error) {
	var eraser decl.Eraser
	if req.Model != nil {
		eraser = req.Model
	}

	var script *match.Script
	err := stage(ctx, log, "match", func(ctx context.Context) error {
		var err error
		script, err = match.Match(ctx, decl.NewArena(eraser, req.Old...), decl.NewArena(eraser, req.New...))
		return err
	})
	if err != nil {
		return nil, err
	}

	var groups *partial.Groups
	err = stage(ctx, log, "merge", func(ctx context.Context) error {
		var err error
		script, groups, err = partial.Merge(script)
		return err
	})
	if err != nil {
		return nil, err
	}

	var classified *rude.Result
	err = stage(ctx, log, "classify", func(ctx context.Context) error {
		classified = rude.NewClassifier(req.Model).Classify(script, groups, req.Capabilities)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var ops []semantic.Operation
	err = stage(ctx, log, "synthesize", func(ctx context.Context) error {
		var model rude.SymbolModel = rude.DefaultModel{}
		if req.Model != nil {
			model = req.Model
		}
		ops = semantic.NewSynthesizer(model).Synthesize(classified, groups)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Capabilities: capabilityNames(req.Capabilities),
		Edits:        script.Strings(),
		Diagnostics:  classified.Diagnostics,
		Operations:   ops,
		Summary:      classified.Summary,
		Script:       script,
		Verdicts:     classified.Verdicts,
	}
	res.Units = units(classified.Verdicts, ops)
	if e.maxDiagnostics > 0 && len(res.Diagnostics) > e.maxDiagnostics {
		res.Diagnostics = res.Diagnostics[:e.maxDiagnostics]
		res.Truncated = true
	}
	return res, nil
}

// stage runs one pipeline step in its own span. Cancellation is checked
// before the step starts.
func stage(ctx context.Context, log *slog.Logger, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return errors.New(errors.Canceled, "analysis canceled before "+name, err)
	}
	ctx, span := tracer.Start(ctx, "analysis."+name)
	defer span.End()
	start := time.Now()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	log.Debug("stage done", "stage", name, "duration", time.Since(start))
	return nil
}

// AnalyzeBatch runs independent requests concurrently. Results are in
// request order. The first error cancels the remaining requests.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.parallelism, len(reqs)))
	for i, req := range reqs {
		g.Go(func() error {
			res, err := e.Analyze(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func capabilityNames(s capability.Set) []string {
	names := s.Names()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	return out
}

// units aggregates verdicts and operations per top-level type, in order of
// first appearance.
func units(verdicts []rude.Verdict, ops []semantic.Operation) []Unit {
	index := map[string]int{}
	var out []Unit
	get := func(key string, n *decl.Node) *Unit {
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Unit{Name: topLevel(n).DisplayName()})
		}
		return &out[i]
	}
	for _, v := range verdicts {
		u := get(v.Unit, v.Edit.Node())
		u.Edits++
		u.Diagnostics += len(v.Rude)
		if v.Outcome == rude.Rude {
			u.Rude = true
		}
	}
	for _, op := range ops {
		if i, ok := index[op.Unit]; ok {
			out[i].Operations++
		}
	}
	return out
}

func topLevel(n *decl.Node) *decl.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		n = p
	}
	return n
}
