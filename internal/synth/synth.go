// Package synth derives the visitor code of one hierarchy: the dispatch
// contract with its accept wiring, the optional companion implementations,
// and the typestate builders that assemble them.
package synth

import (
	"fmt"
	"sort"
	"strings"

	"martianoff/visitorgen/internal/generator"
	"martianoff/visitorgen/internal/hierarchy"
	"martianoff/visitorgen/internal/naming"
	"martianoff/visitorgen/visitorerr"
)

// Synthesize builds the generated file for snap. Diagnostics never stop the
// dispatch contract from being emitted; they only remove the companion
// artifacts they concern.
func Synthesize(snap hierarchy.Snapshot, host Host) (*generator.File, []error) {
	root := snap.Root.Type
	cfg, diags := naming.Validate(root, snap.Root.Config)
	p := newPlan(snap, cfg, host)

	for _, h := range hierarchy.UnmatchedHints(snap.Leaves, snap.Root.OrderHint) {
		diags = append(diags, visitorerr.NewInvalidMarkerWarning(root,
			fmt.Sprintf("order entry %s names no leaf of %s", h, root.SimpleName())))
	}

	embeds := embedsAcceptor(root, p.acceptorName())
	if !embeds {
		diags = append(diags, visitorerr.NewInvalidMarkerWarning(root,
			fmt.Sprintf("%s does not embed %s; %s takes a %s instead", root.SimpleName(), p.acceptorName(), p.entryName(), p.acceptorName())))
	}

	supported := func(artifact string) bool {
		if p.generics {
			return true
		}
		diags = append(diags, visitorerr.NewUnsupportedHostVersionError(root, artifact, host.GoVersion))
		return false
	}

	decls := p.contract(embeds)

	// the mutable builder declares every case and the terminal on one type
	var builderClash string
	if cfg.BuilderStyle == naming.BuilderMutable {
		for _, l := range p.leaves {
			if l.CaseMethod == p.buildMethod() {
				builderClash = fmt.Sprintf("case method of %s collides with the builder's %s", l.SimpleName(), p.buildMethod())
				break
			}
		}
	}
	builderOK := func(artifact string) bool {
		if builderClash == "" {
			return true
		}
		diags = append(diags, visitorerr.NewInvalidConfigCombinationError(root, artifact, builderClash))
		return false
	}

	if cfg.LambdaImplEnabled && supported(naming.ArtifactLambdaImpl) {
		decls = append(decls, p.lambda()...)
		if cfg.LambdaBuilderEnabled && builderOK(naming.ArtifactLambdaBuilder) {
			decls = append(decls, p.builder(p.lambdaKind())...)
		}
	}

	// a constant needs something to return; without R it is silently skipped
	if cfg.ConstantImplEnabled && cfg.HasReturn {
		decls = append(decls, p.constant()...)
		if p.generics && builderOK(naming.ArtifactConstantBuilder) {
			decls = append(decls, p.builder(p.constantKind())...)
		}
	}

	defaultOK := true
	if cfg.DefaultImplEnabled || cfg.DefaultBuilderEnabled {
		for _, l := range p.leaves {
			if l.CaseMethod != cfg.DefaultMethodName() {
				continue
			}
			defaultOK = false
			msg := fmt.Sprintf("case method of %s collides with the fallback %s", l.SimpleName(), cfg.DefaultMethodName())
			if cfg.DefaultImplEnabled {
				diags = append(diags, visitorerr.NewInvalidConfigCombinationError(root, naming.ArtifactDefaultImpl, msg))
			}
			if cfg.DefaultBuilderEnabled {
				diags = append(diags, visitorerr.NewInvalidConfigCombinationError(root, naming.ArtifactDefaultBuilder, msg))
			}
		}
	}
	if defaultOK && cfg.DefaultImplEnabled && supported(naming.ArtifactDefaultImpl) {
		decls = append(decls, p.defaultImpl()...)
	}
	if defaultOK && cfg.DefaultBuilderEnabled && p.generics && cfg.LambdaImplEnabled {
		decls = append(decls, p.defaultBuilder()...)
	} else if defaultOK && cfg.DefaultBuilderEnabled && !p.generics {
		supported(naming.ArtifactDefaultBuilder)
	}

	return &generator.File{
		Package: root.Scope().Name,
		Imports: p.imports(),
		Decls:   decls,
	}, diags
}

// imports collects the packages the root's constraints refer to.
func (p *plan) imports() []generator.Import {
	seen := make(map[string]generator.Import)
	for _, tp := range p.rootParams {
		for _, imp := range tp.Imports {
			seen[imp.Path] = generator.Import{Name: imp.Name, Path: imp.Path}
		}
	}
	out := make([]generator.Import, 0, len(seen))
	for _, imp := range seen {
		out = append(out, imp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// embedsAcceptor reports whether the root interface embeds the generated
// acceptor, with or without type arguments.
func embedsAcceptor(root hierarchy.DeclaredType, acceptor string) bool {
	for _, c := range root.SuperCapabilities() {
		name := c.Name
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		if name == acceptor {
			return true
		}
	}
	return false
}
