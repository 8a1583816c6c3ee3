package loader

import (
	"fmt"
	"go/ast"
	"strconv"
	"strings"

	"martianoff/visitorgen/internal/engine"
	"martianoff/visitorgen/internal/hierarchy"
	"martianoff/visitorgen/internal/naming"
	"martianoff/visitorgen/visitorerr"
)

// Directive prefixes recognized in the doc comment of a type declaration.
const (
	RootDirective = "//visitor:root"
	LeafDirective = "//visitor:leaf"
)

type directiveKind int

const (
	rootKind directiveKind = iota
	leafKind
)

// directive is one marker comment. Arguments are "key=value" or a bare key,
// which stands for "key=true".
type directive struct {
	kind directiveKind
	args []directiveArg
}

type directiveArg struct {
	key   string
	value string
}

// directives returns the markers found in groups, in source order.
func directives(groups ...*ast.CommentGroup) []directive {
	var out []directive
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			if d, ok := parseDirective(c.Text); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

func parseDirective(text string) (directive, bool) {
	var d directive
	var rest string
	switch {
	case hasDirective(text, RootDirective):
		d.kind, rest = rootKind, text[len(RootDirective):]
	case hasDirective(text, LeafDirective):
		d.kind, rest = leafKind, text[len(LeafDirective):]
	default:
		return d, false
	}
	for _, field := range strings.Fields(rest) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			v = "true"
		}
		d.args = append(d.args, directiveArg{key: k, value: v})
	}
	return d, true
}

func hasDirective(text, prefix string) bool {
	if !strings.HasPrefix(text, prefix) {
		return false
	}
	rest := text[len(prefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// rootMarker interprets a root directive. Unknown keys are reported and
// ignored.
func rootMarker(t *hierarchy.Type, d directive) (engine.RootMarker, []error) {
	m := engine.RootMarker{Type: t}
	var diags []error
	for _, a := range d.args {
		if a.key == "order" {
			m.Order = splitList(a.value)
			continue
		}
		key, ok := naming.ParseKey(a.key)
		if !ok {
			diags = append(diags, visitorerr.NewInvalidMarkerWarning(t,
				fmt.Sprintf("unknown key %q in %s on %s", a.key, RootDirective, t.Name)))
			continue
		}
		if m.Overrides == nil {
			m.Overrides = make(map[naming.Key]string)
		}
		m.Overrides[key] = a.value
	}
	return m, diags
}

// leafMarker interprets a leaf directive. Malformed values fall back to the
// defaults with a warning.
func leafMarker(t *hierarchy.Type, d directive) (engine.LeafMarker, []error) {
	m := engine.LeafMarker{Type: t}
	var diags []error
	warn := func(format string, args ...any) {
		diags = append(diags, visitorerr.NewInvalidMarkerWarning(t, fmt.Sprintf(format, args...)))
	}
	for _, a := range d.args {
		switch a.key {
		case "root":
			m.Roots = append(m.Roots, splitList(a.value)...)
		case "weight":
			w, err := strconv.Atoi(a.value)
			if err != nil {
				warn("weight of %s must be an integer, got %q", t.Name, a.value)
				continue
			}
			m.Weight = w
		case "receiver":
			switch strings.ToLower(a.value) {
			case "pointer":
				m.Receiver = hierarchy.PointerReceiver
			case "value":
				m.Receiver = hierarchy.ValueReceiver
			default:
				warn("receiver of %s must be value or pointer, got %q", t.Name, a.value)
			}
		default:
			warn("unknown key %q in %s on %s", a.key, LeafDirective, t.Name)
		}
	}
	return m, diags
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
