// Package party assigns and sorts DKG/FROST participant indices: indices
// are assigned by ascending sort of participant pubkeys.
package party

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// Index is a participant's 1-based position, assigned by sorted ascending
// order of participant pubkeys. Index 0 is reserved and never assigned.
type Index uint32

// AssignIndices sorts pubkeys lexicographically by compressed encoding and
// returns each one's 1-based Index, plus the sorted pubkey list itself
// (callers need both: the list for broadcast participants, the map to find
// "my" index).
func AssignIndices(pubkeys []*curve.Point) ([]*curve.Point, map[string]Index, error) {
	if len(pubkeys) == 0 {
		return nil, nil, fmt.Errorf("party: no participants")
	}
	sorted := make([]*curve.Point, len(pubkeys))
	copy(sorted, pubkeys)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Bytes(), sorted[j].Bytes()) < 0
	})

	indices := make(map[string]Index, len(sorted))
	for i, p := range sorted {
		key := p.Hex()
		if _, dup := indices[key]; dup {
			return nil, nil, fmt.Errorf("party: duplicate participant pubkey %s", key)
		}
		indices[key] = Index(i + 1)
	}
	return sorted, indices, nil
}

// Scalar returns the curve scalar representation of this index, used as the
// polynomial evaluation point for the participant it identifies.
func (idx Index) Scalar() *curve.Scalar {
	return curve.ScalarFromUint32(uint32(idx))
}

// Valid reports whether idx is in the valid range [1, maxSigners].
func (idx Index) Valid(maxSigners uint32) bool {
	return idx >= 1 && uint32(idx) <= maxSigners
}

// SortIndices returns a sorted copy of a slice of indices, used to build
// deterministic interpolation domains for Lagrange coefficients.
func SortIndices(indices []Index) []Index {
	out := make([]Index, len(indices))
	copy(out, indices)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ToUint32 converts a slice of Index into the []uint32 the polynomial
// package's Lagrange routines operate on.
func ToUint32(indices []Index) []uint32 {
	out := make([]uint32, len(indices))
	for i, idx := range indices {
		out[i] = uint32(idx)
	}
	return out
}
