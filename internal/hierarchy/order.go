package hierarchy

import "sort"

// Order returns leaves in emission order. Leaves named in hint come first, in
// hint order; the rest follow by ascending weight, then simple name, then
// qualified name. A hint entry matches a leaf's qualified or simple name. The
// input slice is not modified.
func Order(leaves []LeafRecord, hint []string) []LeafRecord {
	index := hintIndex(hint)

	type ranked struct {
		leaf LeafRecord
		pos  int // position in hint, -1 when not named
	}
	items := make([]ranked, len(leaves))
	for i, l := range leaves {
		items[i] = ranked{leaf: l, pos: position(index, l)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.pos >= 0 && b.pos >= 0 && a.pos != b.pos:
			return a.pos < b.pos
		case a.pos >= 0 && b.pos < 0:
			return true
		case b.pos >= 0 && a.pos < 0:
			return false
		}
		if a.leaf.Weight != b.leaf.Weight {
			return a.leaf.Weight < b.leaf.Weight
		}
		if an, bn := a.leaf.SimpleName(), b.leaf.SimpleName(); an != bn {
			return an < bn
		}
		return a.leaf.Type.QualifiedName() < b.leaf.Type.QualifiedName()
	})

	out := make([]LeafRecord, len(items))
	for i, it := range items {
		out[i] = it.leaf
	}
	return out
}

// UnmatchedHints returns the hint entries that name none of leaves.
func UnmatchedHints(leaves []LeafRecord, hint []string) []string {
	var out []string
	for _, h := range hint {
		matched := false
		for _, l := range leaves {
			if h == l.Type.QualifiedName() || h == l.SimpleName() {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, h)
		}
	}
	return out
}

func hintIndex(hint []string) map[string]int {
	index := make(map[string]int, len(hint))
	for i, h := range hint {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	return index
}

func position(index map[string]int, l LeafRecord) int {
	q, okQ := index[l.Type.QualifiedName()]
	s, okS := index[l.SimpleName()]
	switch {
	case okQ && okS:
		return min(q, s)
	case okQ:
		return q
	case okS:
		return s
	}
	return -1
}
