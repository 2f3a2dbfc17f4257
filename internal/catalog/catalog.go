package catalog

import (
	"fmt"

	"Chisel/internal/merkle"
)

// Catalog is a fixed, ordered list of catalog entries with a Merkle
// commitment over them. Entries are immutable once built; the registry only
// ever sees the root, proofs are generated off-system from the full catalog.
type Catalog struct {
	entries []merkle.Entry
	tree    *merkle.Tree
}

// New builds a catalog, validating that entry indices are dense [0, n) and
// every attribute id is in [0, maxAttributes).
func New(entries []merkle.Entry, maxAttributes uint32) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}

	for i, e := range entries {
		if e.Index != uint64(i) {
			return nil, fmt.Errorf("entry %d has index %d, want %d", i, e.Index, i)
		}

		if len(e.Attributes) == 0 {
			return nil, fmt.Errorf("entry %d has no attributes", i)
		}

		for _, attr := range e.Attributes {
			if attr >= maxAttributes {
				return nil, fmt.Errorf("entry %d: attribute %d out of range [0,%d)", i, attr, maxAttributes)
			}
		}
	}

	tree, err := merkle.NewTree(entries)
	if err != nil {
		return nil, err
	}

	return &Catalog{entries: entries, tree: tree}, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entry returns the entry at the given index.
func (c *Catalog) Entry(index uint64) (merkle.Entry, error) {
	if index >= uint64(len(c.entries)) {
		return merkle.Entry{}, fmt.Errorf("index %d out of range [0,%d)", index, len(c.entries))
	}

	return c.entries[index], nil
}

// Root returns the committed root digest.
func (c *Catalog) Root() merkle.Digest {
	return c.tree.Root()
}

// Prove returns the membership proof for the entry at the given index.
func (c *Catalog) Prove(index uint64) ([]merkle.Digest, error) {
	if index >= uint64(len(c.entries)) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", index, len(c.entries))
	}

	return c.tree.Prove(int(index))
}

// Singletons builds one entry per attribute id: entry i carries exactly
// attribute i. Every combinations catalog needs this section so any token
// can be split down to single attributes.
func Singletons(maxAttributes uint32, uriFor func(attr uint32) string) []merkle.Entry {
	entries := make([]merkle.Entry, maxAttributes)

	for a := uint32(0); a < maxAttributes; a++ {
		entries[a] = merkle.Entry{
			Index:      uint64(a),
			URI:        uriFor(a),
			Attributes: []uint32{a},
		}
	}

	return entries
}
