package merkle

import (
	"fmt"
	"testing"
)

// testEntries builds n distinct catalog entries.
func testEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Index:      uint64(i),
			URI:        fmt.Sprintf("ipfs://catalog/%d", i),
			Attributes: []uint32{uint32(i), uint32(i + 1)},
		}
	}
	return entries
}

func TestLeafDigestDeterministic(t *testing.T) {
	e := Entry{Index: 7, URI: "ipfs://x", Attributes: []uint32{1, 2, 3}}

	if LeafDigest(e) != LeafDigest(e) {
		t.Error("leaf digest not deterministic")
	}
}

func TestLeafDigestSensitivity(t *testing.T) {
	base := Entry{Index: 7, URI: "ipfs://x", Attributes: []uint32{1, 2, 3}}
	ref := LeafDigest(base)

	variants := []Entry{
		{Index: 8, URI: "ipfs://x", Attributes: []uint32{1, 2, 3}},
		{Index: 7, URI: "ipfs://y", Attributes: []uint32{1, 2, 3}},
		{Index: 7, URI: "ipfs://x", Attributes: []uint32{1, 2}},
		{Index: 7, URI: "ipfs://x", Attributes: []uint32{3, 2, 1}},
	}

	for i, v := range variants {
		if LeafDigest(v) == ref {
			t.Errorf("variant %d collides with base entry", i)
		}
	}
}

func TestNodeDigestOrderIndependent(t *testing.T) {
	a := LeafDigest(Entry{Index: 0})
	b := LeafDigest(Entry{Index: 1})

	if nodeDigest(a, b) != nodeDigest(b, a) {
		t.Error("node digest depends on argument order")
	}
}

func TestLeafDomainSeparation(t *testing.T) {
	// An internal node digest must never equal the leaf digest of any entry
	// whose canonical encoding could be confused with node input. The double
	// leaf hash guarantees the domains differ for identical input bytes.
	e := Entry{Index: 0, URI: "a", Attributes: []uint32{1}}

	a := LeafDigest(e)
	if nodeDigest(a, a) == a {
		t.Error("node digest equals child digest")
	}
}

func TestVerifySingleLeaf(t *testing.T) {
	entries := testEntries(1)

	tree, err := NewTree(entries)
	if err != nil {
		t.Fatalf("NewTree failed: %v", err)
	}

	proof, err := tree.Prove(0)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}

	if len(proof) != 0 {
		t.Errorf("expected empty proof for single leaf, got %d elements", len(proof))
	}

	if !Verify(tree.Root(), proof, entries[0]) {
		t.Error("single-leaf proof rejected")
	}

	// An empty proof against a multi-leaf root must fail
	multi, _ := NewTree(testEntries(4))
	if Verify(multi.Root(), nil, entries[0]) {
		t.Error("empty proof accepted against multi-leaf root")
	}
}

func TestVerifyAllLeaves(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8, 13, 64} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			entries := testEntries(n)

			tree, err := NewTree(entries)
			if err != nil {
				t.Fatalf("NewTree failed: %v", err)
			}

			for i, e := range entries {
				proof, err := tree.Prove(i)
				if err != nil {
					t.Fatalf("Prove(%d) failed: %v", i, err)
				}

				if !Verify(tree.Root(), proof, e) {
					t.Errorf("proof for leaf %d rejected", i)
				}
			}
		})
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	entries := testEntries(8)
	tree, _ := NewTree(entries)
	root := tree.Root()

	proof, _ := tree.Prove(3)
	good := entries[3]

	// Wrong entry fields
	wrongIndex := good
	wrongIndex.Index = 4
	if Verify(root, proof, wrongIndex) {
		t.Error("accepted proof for wrong index")
	}

	wrongURI := good
	wrongURI.URI = "ipfs://tampered"
	if Verify(root, proof, wrongURI) {
		t.Error("accepted proof for wrong URI")
	}

	wrongAttrs := good
	wrongAttrs.Attributes = []uint32{99}
	if Verify(root, proof, wrongAttrs) {
		t.Error("accepted proof for wrong attributes")
	}

	// Corrupted proof element
	corrupted := make([]Digest, len(proof))
	copy(corrupted, proof)
	corrupted[0][0] ^= 0x01
	if Verify(root, corrupted, good) {
		t.Error("accepted corrupted proof")
	}

	// Truncated proof
	if Verify(root, proof[:len(proof)-1], good) {
		t.Error("accepted truncated proof")
	}

	// Wrong root
	other, _ := NewTree(testEntries(9))
	if Verify(other.Root(), proof, good) {
		t.Error("accepted proof against wrong root")
	}
}

func TestProveOutOfRange(t *testing.T) {
	tree, _ := NewTree(testEntries(4))

	if _, err := tree.Prove(-1); err == nil {
		t.Error("expected error for negative index")
	}

	if _, err := tree.Prove(4); err == nil {
		t.Error("expected error for index past end")
	}
}

func TestNewTreeEmpty(t *testing.T) {
	if _, err := NewTree(nil); err == nil {
		t.Error("expected error for empty entry list")
	}
}

func TestParseDigestRoundTrip(t *testing.T) {
	d := LeafDigest(Entry{Index: 42, URI: "x"})

	parsed, err := ParseDigest(d.String())
	if err != nil {
		t.Fatalf("ParseDigest failed: %v", err)
	}

	if parsed != d {
		t.Error("digest round trip mismatch")
	}

	if _, err := ParseDigest("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}

	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("expected error for short digest")
	}
}
