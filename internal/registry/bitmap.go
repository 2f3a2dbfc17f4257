package registry

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"Chisel/internal/storage"
)

// keyClaims is the Pebble key holding the serialized claim bitmap.
var keyClaims = []byte("m:claims")

// ClaimSet tracks which genesis indices have been minted, one bit per index.
// Bits only transition 0→1. The word-packed bitmap is persisted as a single
// value and rides in the same atomic batch as the mint it records.
type ClaimSet struct {
	bits *bitset.BitSet
}

// loadClaimSet restores the claim bitmap from storage.
// A missing record yields an empty set.
func loadClaimSet(db *storage.Storage) (*ClaimSet, error) {
	value, err := db.Get(keyClaims)
	if err != nil {
		return nil, fmt.Errorf("load claim bitmap:\n%w", err)
	}

	bits := bitset.New(0)
	if len(value) > 0 {
		if err := bits.UnmarshalBinary(value); err != nil {
			return nil, fmt.Errorf("decode claim bitmap:\n%w", err)
		}
	}

	return &ClaimSet{bits: bits}, nil
}

// IsClaimed returns true if the genesis index has been minted.
func (c *ClaimSet) IsClaimed(index uint64) bool {
	return c.bits.Test(uint(index))
}

// Count returns the number of claimed indices.
func (c *ClaimSet) Count() uint64 {
	return uint64(c.bits.Count())
}

// stageClaim stages the bitmap with the given bit set into the batch.
// The in-memory set is untouched until the batch commits; call setClaimed
// after a successful commit.
func (c *ClaimSet) stageClaim(b *storage.Batch, index uint64) error {
	next := c.bits.Clone()
	next.Set(uint(index))

	data, err := next.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode claim bitmap:\n%w", err)
	}

	b.Set(keyClaims, data)

	return nil
}

// setClaimed marks the index claimed in memory.
// Only called from the genesis mint path after its batch committed.
func (c *ClaimSet) setClaimed(index uint64) {
	c.bits.Set(uint(index))
}
