package hierarchy

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"

	"martianoff/visitorgen/internal/naming"
	"martianoff/visitorgen/visitorerr"
)

// ErrSealed is returned when registering after Snapshot.
var ErrSealed = errors.New("hierarchy registry is sealed")

// Registry accumulates the roots and leaves of one round.
//
// Thread-safe: all methods can be called concurrently.
type Registry struct {
	mu sync.RWMutex

	policy     *naming.Policy
	rootPolicy RootPolicy

	// roots maps qualified name to record
	roots map[string]*RootRecord

	sealed bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithRootPolicy replaces the FirstDeclared root inference.
func WithRootPolicy(p RootPolicy) Option {
	return func(r *Registry) {
		if p != nil {
			r.rootPolicy = p
		}
	}
}

// NewRegistry creates an empty registry resolving root configuration with policy.
func NewRegistry(policy *naming.Policy, opts ...Option) *Registry {
	if policy == nil {
		policy = naming.NewPolicy(nil, nil)
	}
	r := &Registry{
		policy:     policy,
		rootPolicy: FirstDeclared,
		roots:      make(map[string]*RootRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterRoot records t as a visitable root and resolves its configuration.
// Registering the same root twice returns the first record together with a
// DuplicateRootError.
func (r *Registry) RegisterRoot(t DeclaredType, orderHint []string) (*RootRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, ErrSealed
	}
	if !t.IsInterface() {
		return nil, visitorerr.NewInvalidMarkerError(t, t.QualifiedName()+" cannot be a visitable root: only interface types can declare the accept method")
	}

	name := t.QualifiedName()
	if existing, ok := r.roots[name]; ok {
		return existing, visitorerr.NewDuplicateRootError(t)
	}

	rec := &RootRecord{
		Type:      t,
		OrderHint: slices.Clone(orderHint),
		Config:    r.policy.Resolve(naming.Location{Type: name, Dir: t.Scope().Dir}),
	}
	r.roots[name] = rec
	return rec, nil
}

// LeafOption configures a leaf registration.
type LeafOption func(*leafOptions)

type leafOptions struct {
	receiver Receiver
}

// WithReceiver selects the receiver kind of the leaf's accept method.
func WithReceiver(recv Receiver) LeafOption {
	return func(o *leafOptions) {
		o.receiver = recv
	}
}

// RegisterLeaf attaches t to every root named in rootNames. With no names the
// root is inferred with the registry's RootPolicy. A name containing a dot is
// looked up as qualified; other names are resolved in t's package.
//
// Attachment is all or nothing: if any name fails to resolve, or any resolved
// root rejects the leaf, t joins no hierarchy and the failures are returned.
func (r *Registry) RegisterLeaf(t DeclaredType, rootNames []string, weight int, opts ...LeafOption) error {
	var o leafOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	if t.IsInterface() {
		return visitorerr.NewInvalidMarkerError(t, t.QualifiedName()+" cannot be a leaf: methods cannot be declared on interface types")
	}

	if len(rootNames) == 0 {
		ref, err := r.rootPolicy.InferRoot(t)
		if err != nil {
			return err
		}
		rootNames = []string{refName(ref)}
	}

	var (
		targets    []*RootRecord
		unresolved []string
	)
	for _, name := range rootNames {
		rec := r.lookupLocked(name, t.Scope())
		if rec == nil {
			unresolved = append(unresolved, name)
			continue
		}
		if !slices.Contains(targets, rec) {
			targets = append(targets, rec)
		}
	}
	if len(unresolved) > 0 {
		return visitorerr.NewUnresolvedRootError(t, unresolved, r.knownLocked())
	}

	var errs []error
	for _, rec := range targets {
		if err := checkLeaf(rec, t); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
	case 1:
		return errs[0]
	default:
		return &visitorerr.MultiError{Errors: errs}
	}

	for _, rec := range targets {
		if rec.hasLeaf(t.QualifiedName()) {
			continue
		}
		rec.leaves = append(rec.leaves, newLeafRecord(t, weight, o.receiver, rec.Config))
	}
	return nil
}

// checkLeaf reports why t cannot be a leaf of rec.
func checkLeaf(rec *RootRecord, t DeclaredType) error {
	root := rec.Type
	if t.Scope().Path != root.Scope().Path {
		return visitorerr.NewScopeMismatchError(t, t.Scope().Path, root.Scope().Path)
	}
	want, got := TypeParamNames(root), TypeParamNames(t)
	if !slices.Equal(want, got) {
		return visitorerr.NewTypeParameterMismatchError(t, want, got)
	}
	return nil
}

func (r *Registry) lookupLocked(name string, scope Scope) *RootRecord {
	if rec, ok := r.roots[name]; ok {
		return rec
	}
	if rec, ok := r.roots[qualify(name, scope)]; ok {
		return rec
	}
	// "shapes.Shape" style references: unique match on the last path element.
	if strings.Contains(name, ".") {
		var found *RootRecord
		for q, rec := range r.roots {
			if strings.HasSuffix(q, "/"+name) {
				if found != nil {
					return nil
				}
				found = rec
			}
		}
		return found
	}
	return nil
}

func (r *Registry) knownLocked() []string {
	known := make([]string, 0, len(r.roots))
	for name := range r.roots {
		known = append(known, name)
	}
	sort.Strings(known)
	return known
}

// Root returns the root registered under a qualified name.
func (r *Registry) Root(qualified string) (*RootRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.roots[qualified]
	return rec, ok
}

// Roots returns the qualified names of all registered roots, sorted.
func (r *Registry) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knownLocked()
}

// Snapshot seals the registry and returns every hierarchy, sorted by root
// qualified name, with leaves in emission order.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
	names := r.knownLocked()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		rec := r.roots[name]
		out = append(out, Snapshot{
			Root:   rec,
			Leaves: Order(rec.Leaves(), rec.OrderHint),
		})
	}
	return out
}
