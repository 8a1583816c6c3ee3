package naming

// Location identifies the hierarchy a lookup is made for.
type Location struct {
	// Type is the qualified name of the root type.
	Type string
	// Dir is the directory of the package declaring the root.
	Dir string
}

// Source is a read-only configuration lookup. Absence is a normal outcome.
// Implementations must answer deterministically within a round.
type Source interface {
	Lookup(key Key, scope Location) (string, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(key Key, scope Location) (string, bool)

func (f SourceFunc) Lookup(key Key, scope Location) (string, bool) {
	return f(key, scope)
}

// MapSource answers the same values for every scope.
type MapSource map[Key]string

func (m MapSource) Lookup(key Key, _ Location) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// DirectiveSource holds per-root overrides taken from root markers, keyed by
// the root's qualified name.
type DirectiveSource map[string]map[Key]string

func (d DirectiveSource) Lookup(key Key, scope Location) (string, bool) {
	overrides, ok := d[scope.Type]
	if !ok {
		return "", false
	}
	v, ok := overrides[key]
	return v, ok
}

// Sources chains lookups; the first source that has the key wins.
type Sources []Source

func (s Sources) Lookup(key Key, scope Location) (string, bool) {
	for _, src := range s {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key, scope); ok {
			return v, true
		}
	}
	return "", false
}

// Empty is a Source with no keys.
var Empty Source = MapSource(nil)
