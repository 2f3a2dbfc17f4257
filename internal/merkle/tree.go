package merkle

import (
	"fmt"
)

// Tree is a Merkle tree over a fixed list of catalog entries.
// Used to derive catalog roots and generate membership proofs; verification
// only needs the root and is handled by Verify.
type Tree struct {
	levels [][]Digest // levels[0] is the leaf row, last level holds the root
}

// NewTree builds a tree over the given entries in order.
func NewTree(entries []Entry) (*Tree, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty entry list")
	}

	leaves := make([]Digest, len(entries))
	for i, e := range entries {
		leaves[i] = LeafDigest(e)
	}

	levels := [][]Digest{leaves}

	// Fold pairs upward; an unpaired last node is promoted unchanged.
	for current := leaves; len(current) > 1; {
		next := make([]Digest, 0, (len(current)+1)/2)

		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, nodeDigest(current[i], current[i+1]))
			} else {
				next = append(next, current[i])
			}
		}

		levels = append(levels, next)
		current = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the committed root digest.
func (t *Tree) Root() Digest {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.levels[0])
}

// Prove returns the membership proof for leaf i: the sibling digests from
// the leaf row up to (excluding) the root. Levels where the node was
// promoted without a sibling contribute nothing to the proof.
func (t *Tree) Prove(i int) ([]Digest, error) {
	if i < 0 || i >= t.Len() {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", i, t.Len())
	}

	var proof []Digest

	idx := i
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		idx /= 2
	}

	return proof, nil
}
