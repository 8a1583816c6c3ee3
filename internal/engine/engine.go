// Package engine drives synthesis rounds. A round registers every marked
// type, snapshots each hierarchy, synthesizes its visitor code and hands the
// printed file to a sink. Failures are collected per hierarchy and per leaf;
// one bad declaration never stops unrelated hierarchies from being emitted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"martianoff/visitorgen/internal/generator"
	"martianoff/visitorgen/internal/hierarchy"
	"martianoff/visitorgen/internal/naming"
	"martianoff/visitorgen/internal/synth"
	"martianoff/visitorgen/visitorerr"
)

// Engine runs rounds against one marker source and one sink.
type Engine struct {
	markers    MarkerSource
	sink       Sink
	config     naming.Source
	reporter   Reporter
	rootPolicy hierarchy.RootPolicy
	generator  generator.CodeGenerator
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the configuration consulted after marker overrides.
func WithConfig(src naming.Source) Option {
	return func(e *Engine) { e.config = src }
}

// WithReporter receives diagnostics as they are produced.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithRootPolicy selects how leaves without explicit roots are attached.
func WithRootPolicy(p hierarchy.RootPolicy) Option {
	return func(e *Engine) { e.rootPolicy = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine.
func New(markers MarkerSource, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		markers:    markers,
		sink:       sink,
		config:     naming.Empty,
		rootPolicy: hierarchy.FirstDeclared,
		generator:  generator.NewGoCodeGenerator(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes a round.
type Result struct {
	// Units are the files handed to the sink successfully.
	Units       []Unit
	Diagnostics []error
}

// HasErrors reports whether any diagnostic of the round is error-severity.
func (r *Result) HasErrors() bool {
	return visitorerr.HasErrors(r.Diagnostics)
}

// Round runs one synthesis pass. The returned error is set only when the
// markers could not be read or ctx ended; everything else is a diagnostic.
func (e *Engine) Round(ctx context.Context) (*Result, error) {
	start := time.Now()
	m, err := e.markers.Markers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read markers: %w", err)
	}

	r := &round{Engine: e, result: &Result{}, files: m.Files}
	for _, d := range m.Diagnostics {
		r.report(d)
	}

	directives := make(naming.DirectiveSource)
	for _, root := range m.Roots {
		if len(root.Overrides) > 0 {
			directives[root.Type.QualifiedName()] = root.Overrides
		}
	}
	policy := naming.NewPolicy(naming.Sources{directives, e.config}, e.logger)
	reg := hierarchy.NewRegistry(policy, hierarchy.WithRootPolicy(e.rootPolicy))

	// every root first, so leaves can name roots declared after them
	for _, root := range m.Roots {
		if _, err := reg.RegisterRoot(root.Type, root.Order); err != nil {
			r.report(err)
		}
	}
	for _, leaf := range m.Leaves {
		err := reg.RegisterLeaf(leaf.Type, leaf.Roots, leaf.Weight, hierarchy.WithReceiver(leaf.Receiver))
		if err != nil {
			r.report(err)
		}
	}

	snaps := reg.Snapshot()
	e.separateAcceptMethods(snaps)
	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		r.hierarchy(ctx, snap)
	}

	e.logger.Info("round complete",
		"hierarchies", len(snaps),
		"files", len(r.result.Units),
		"diagnostics", len(r.result.Diagnostics),
		"duration", time.Since(start))
	return r.result, nil
}

// separateAcceptMethods gives every hierarchy its own accept method on the
// leaves it shares with an earlier hierarchy. The earlier root keeps the
// configured name; the later one gets the name suffixed with its own.
func (e *Engine) separateAcceptMethods(snaps []hierarchy.Snapshot) {
	taken := make(map[string][]string) // leaf qualified name -> accept methods
	for _, snap := range snaps {
		cfg := &snap.Root.Config
		if acceptTaken(taken, snap.Leaves, cfg.AcceptMethodName) {
			base := cfg.AcceptMethodName + snap.Root.Type.SimpleName()
			name := base
			for i := 2; acceptTaken(taken, snap.Leaves, name); i++ {
				name = fmt.Sprintf("%s%d", base, i)
			}
			e.logger.Info("shared leaves get a separate accept method",
				"root", snap.Root.QualifiedName(),
				"configured", cfg.AcceptMethodName,
				"method", name)
			cfg.AcceptMethodName = name
		}
		for _, l := range snap.Leaves {
			q := l.Type.QualifiedName()
			taken[q] = append(taken[q], cfg.AcceptMethodName)
		}
	}
}

func acceptTaken(taken map[string][]string, leaves []hierarchy.LeafRecord, name string) bool {
	for _, l := range leaves {
		if slices.Contains(taken[l.Type.QualifiedName()], name) {
			return true
		}
	}
	return false
}

// round holds the state of one Round call.
type round struct {
	*Engine
	result *Result
	files  map[string]string
}

func (r *round) report(err error) {
	var multi *visitorerr.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi.Errors {
			r.report(e)
		}
		return
	}
	r.result.Diagnostics = append(r.result.Diagnostics, err)
	r.logger.Debug("diagnostic", "error", err)
	if r.reporter != nil {
		r.reporter.Report(err)
	}
}

func (r *round) hierarchy(ctx context.Context, snap hierarchy.Snapshot) {
	root := snap.Root.Type
	log := r.logger.With("root", root.QualifiedName())
	if len(snap.Leaves) == 0 {
		r.report(visitorerr.NewInvalidMarkerWarning(root, root.QualifiedName()+" has no leaves"))
	}

	file, diags := synth.Synthesize(snap, synth.Host{GoVersion: root.Scope().GoVersion})
	for _, d := range diags {
		r.report(d)
	}

	sources := r.sourceFiles(snap)
	fingerprint, err := generator.Fingerprint(sources)
	if err != nil {
		r.report(fmt.Errorf("failed to fingerprint %s: %w", root.QualifiedName(), err))
		fingerprint = ""
	}
	file.Header = generator.Header{Fingerprint: fingerprint}
	for _, s := range sources {
		file.Header.Sources = append(file.Header.Sources, filepath.Base(s))
	}

	src, err := r.generator.Generate(file)
	if err != nil {
		r.report(fmt.Errorf("failed to generate %s: %w", root.QualifiedName(), err))
		return
	}

	unit := Unit{
		Root:        root,
		Path:        filepath.Join(root.Scope().Dir, OutputName(root.SimpleName())),
		Source:      src,
		Fingerprint: fingerprint,
	}
	if err := r.sink.Emit(ctx, unit); err != nil {
		r.report(err)
		return
	}
	log.Debug("emitted", "path", unit.Path, "leaves", len(snap.Leaves))
	r.result.Units = append(r.result.Units, unit)
}

// sourceFiles lists the files declaring the hierarchy's types, sorted.
func (r *round) sourceFiles(snap hierarchy.Snapshot) []string {
	var out []string
	for _, t := range snap.Types() {
		if f, ok := r.files[t.QualifiedName()]; ok && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// OutputSuffix ends every generated file name.
const OutputSuffix = "_visitor.go"

// OutputName returns the file name generated for a root: its name in snake
// case followed by OutputSuffix.
func OutputName(root string) string {
	var b strings.Builder
	runes := []rune(root)
	for i, c := range runes {
		if unicode.IsUpper(c) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			c = unicode.ToLower(c)
		}
		b.WriteRune(c)
	}
	return b.String() + OutputSuffix
}
