package engine

import (
	"context"

	"martianoff/visitorgen/internal/hierarchy"
	"martianoff/visitorgen/internal/naming"
)

// RootMarker marks a type as a visitable root.
type RootMarker struct {
	Type hierarchy.DeclaredType
	// Order lists leaves that go first, by qualified or simple name.
	Order []string
	// Overrides are configuration keys set on the marker itself.
	Overrides map[naming.Key]string
}

// LeafMarker marks a type as a leaf of one or more roots.
type LeafMarker struct {
	Type hierarchy.DeclaredType
	// Roots names the roots to join; empty means infer.
	Roots    []string
	Weight   int
	Receiver hierarchy.Receiver
}

// Markers is everything a MarkerSource found for one round.
type Markers struct {
	Roots  []RootMarker
	Leaves []LeafMarker
	// Files maps the qualified name of every marked type to its source file.
	Files map[string]string
	// Diagnostics are problems found while reading markers.
	Diagnostics []error
}

// MarkerSource enumerates the marked types of a round.
type MarkerSource interface {
	Markers(ctx context.Context) (*Markers, error)
}

// MarkerSourceFunc adapts a function to MarkerSource.
type MarkerSourceFunc func(ctx context.Context) (*Markers, error)

func (f MarkerSourceFunc) Markers(ctx context.Context) (*Markers, error) {
	return f(ctx)
}

// Unit is one generated file, ready for a Sink.
type Unit struct {
	Root        hierarchy.DeclaredType
	Path        string
	Source      []byte
	Fingerprint string
}

// Sink receives generated files.
type Sink interface {
	Emit(ctx context.Context, unit Unit) error
}

// Reporter receives every diagnostic of a round as it is produced.
type Reporter interface {
	Report(diag error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(diag error)

func (f ReporterFunc) Report(diag error) { f(diag) }
