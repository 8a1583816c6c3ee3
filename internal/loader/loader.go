// Package loader finds visitor markers in Go packages. It loads packages
// with golang.org/x/tools/go/packages, builds with the visitorgen tag so
// previously generated files are left out, and reads the //visitor:root and
// //visitor:leaf directives on type declarations.
package loader

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"martianoff/visitorgen/internal/engine"
	"martianoff/visitorgen/internal/generator"
	"martianoff/visitorgen/internal/hierarchy"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedModule

// Loader implements engine.MarkerSource over package patterns.
type Loader struct {
	patterns []string
	dir      string
	tags     []string
	env      []string
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDir sets the directory patterns are resolved in.
func WithDir(dir string) Option {
	return func(l *Loader) { l.dir = dir }
}

// WithTags adds build tags to the visitorgen tag.
func WithTags(tags ...string) Option {
	return func(l *Loader) { l.tags = append(l.tags, tags...) }
}

// WithEnv replaces the environment of the go command.
func WithEnv(env []string) Option {
	return func(l *Loader) { l.env = env }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader for patterns, "./..." if none are given.
func New(patterns []string, opts ...Option) *Loader {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	l := &Loader{
		patterns: patterns,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) config(ctx context.Context, mode packages.LoadMode) *packages.Config {
	tags := append([]string{generator.BuildTag}, l.tags...)
	env := l.env
	if env == nil {
		env = os.Environ()
	}
	return &packages.Config{
		Context:    ctx,
		Mode:       mode,
		Dir:        l.dir,
		Env:        env,
		BuildFlags: []string{"-tags=" + strings.Join(tags, ",")},
	}
}

// Markers implements engine.MarkerSource.
func (l *Loader) Markers(ctx context.Context) (*engine.Markers, error) {
	pkgs, err := packages.Load(l.config(ctx, loadMode), l.patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	m := &engine.Markers{Files: make(map[string]string)}
	for _, pkg := range pkgs {
		usable := true
		for _, e := range pkg.Errors {
			switch e.Kind {
			case packages.ListError, packages.ParseError:
				m.Diagnostics = append(m.Diagnostics, fmt.Errorf("%s: %s", pkg.PkgPath, e))
				usable = usable && len(pkg.Syntax) > 0
			default:
				// the generated acceptors are missing until the first run
				l.logger.Debug("ignoring type error", "package", pkg.PkgPath, "error", e.Msg)
			}
		}
		if !usable {
			continue
		}
		l.collect(pkg, m)
	}
	l.logger.Info("markers loaded",
		"packages", len(pkgs),
		"roots", len(m.Roots),
		"leaves", len(m.Leaves))
	return m, nil
}

func (l *Loader) collect(pkg *packages.Package, m *engine.Markers) {
	scope := hierarchy.Scope{Path: pkg.PkgPath, Name: pkg.Name}
	if len(pkg.GoFiles) > 0 {
		scope.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	if pkg.Module != nil && pkg.Module.GoVersion != "" {
		scope.GoVersion = pkg.Module.GoVersion
		if !strings.HasPrefix(scope.GoVersion, "go") {
			scope.GoVersion = "go" + scope.GoVersion
		}
	}

	decls := newPkgDecls(pkg, scope)
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				groups := []*ast.CommentGroup{ts.Doc}
				if !gd.Lparen.IsValid() {
					groups = append(groups, gd.Doc)
				}
				found := directives(groups...)
				if len(found) == 0 {
					continue
				}

				t := decls.declaredType(file, ts)
				m.Files[t.QualifiedName()] = pkg.Fset.Position(ts.Pos()).Filename
				for _, d := range found {
					switch d.kind {
					case rootKind:
						root, diags := rootMarker(t, d)
						m.Roots = append(m.Roots, root)
						m.Diagnostics = append(m.Diagnostics, diags...)
					case leafKind:
						leaf, diags := leafMarker(t, d)
						m.Leaves = append(m.Leaves, leaf)
						m.Diagnostics = append(m.Diagnostics, diags...)
					}
				}
			}
		}
	}
}

// Dirs returns the directories of the packages matched by the patterns.
func (l *Loader) Dirs(ctx context.Context) ([]string, error) {
	pkgs, err := packages.Load(l.config(ctx, packages.NeedName|packages.NeedFiles), l.patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	var dirs []string
	for _, pkg := range pkgs {
		for _, f := range pkg.GoFiles {
			if dir := filepath.Dir(f); !slices.Contains(dirs, dir) {
				dirs = append(dirs, dir)
			}
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

var _ engine.MarkerSource = (*Loader)(nil)
