package hierarchy

import (
	"martianoff/visitorgen/internal/naming"
)

// Receiver selects how a leaf's accept method receives the leaf.
type Receiver int

const (
	PointerReceiver Receiver = iota
	ValueReceiver
)

func (r Receiver) String() string {
	if r == ValueReceiver {
		return "value"
	}
	return "pointer"
}

// RootRecord identifies one hierarchy.
type RootRecord struct {
	Type      DeclaredType
	OrderHint []string
	Config    naming.DispatchConfig

	leaves []*LeafRecord
}

// QualifiedName returns the qualified name of the root type.
func (r *RootRecord) QualifiedName() string {
	return r.Type.QualifiedName()
}

// Leaves returns the leaves attached so far, in registration order.
func (r *RootRecord) Leaves() []LeafRecord {
	out := make([]LeafRecord, len(r.leaves))
	for i, l := range r.leaves {
		out[i] = *l
	}
	return out
}

func (r *RootRecord) hasLeaf(qualified string) bool {
	for _, l := range r.leaves {
		if l.Type.QualifiedName() == qualified {
			return true
		}
	}
	return false
}

// LeafRecord is one leaf as seen by a particular root. The derived names
// depend on the root's configuration.
type LeafRecord struct {
	Type       DeclaredType
	Weight     int
	CaseMethod string
	Binding    string
	Receiver   Receiver
}

// SimpleName returns the simple name of the leaf type.
func (l LeafRecord) SimpleName() string {
	return l.Type.SimpleName()
}

func newLeafRecord(t DeclaredType, weight int, recv Receiver, cfg naming.DispatchConfig) *LeafRecord {
	// the binding shares a parameter list with the visitor and the argument
	binding := naming.Binding(t.SimpleName())
	for binding == cfg.VisitorArgName || binding == cfg.ArgumentName {
		binding += "_"
	}
	return &LeafRecord{
		Type:       t,
		Weight:     weight,
		CaseMethod: cfg.CaseMethodName(t.SimpleName()),
		Binding:    binding,
		Receiver:   recv,
	}
}

// Snapshot is a root together with its ordered leaves; the input of every
// synthesis step.
type Snapshot struct {
	Root   *RootRecord
	Leaves []LeafRecord
}

// Config returns the root's resolved configuration.
func (s Snapshot) Config() naming.DispatchConfig {
	return s.Root.Config
}

// Types returns the root followed by every leaf type.
func (s Snapshot) Types() []DeclaredType {
	out := make([]DeclaredType, 0, len(s.Leaves)+1)
	out = append(out, s.Root.Type)
	for _, l := range s.Leaves {
		out = append(out, l.Type)
	}
	return out
}
