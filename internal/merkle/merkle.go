package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Digest is a 32-byte blake3 hash.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a hex-encoded 32-byte digest.
func ParseDigest(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("decode digest: %w", err)
	}

	if len(raw) != 32 {
		return Digest{}, fmt.Errorf("invalid digest length: %d", len(raw))
	}

	var d Digest
	copy(d[:], raw)

	return d, nil
}

// Entry is a catalog record committed into a Merkle root.
// Integer keys keep the canonical encoding compact and stable.
type Entry struct {
	Index      uint64   `cbor:"1,keyasint"`
	URI        string   `cbor:"2,keyasint"`
	Attributes []uint32 `cbor:"3,keyasint"`
}

// entryEnc is the canonical (core deterministic) CBOR encoder for entries.
var entryEnc = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// LeafDigest computes the leaf hash of an entry: blake3(blake3(canonical CBOR)).
// Hashing twice separates the leaf domain from internal nodes, so a proof
// element can never be reinterpreted as a leaf.
func LeafDigest(e Entry) Digest {
	data, _ := entryEnc.Marshal(e) // fixed field types, cannot fail

	first := blake3.Sum256(data)

	return blake3.Sum256(first[:])
}

// nodeDigest hashes a pair of child digests in sorted byte order.
// Sorting removes the need for left/right position bits in proofs.
func nodeDigest(a, b Digest) Digest {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	hasher := blake3.New()
	hasher.Write(a[:])
	hasher.Write(b[:])

	var d Digest
	copy(d[:], hasher.Sum(nil))

	return d
}

// Verify checks that entry is a member of the catalog committed to root.
// The proof is the ordered sequence of sibling digests from leaf to root.
// Pure and deterministic; a zero-length proof only matches a single-leaf
// catalog whose root is the leaf digest itself.
func Verify(root Digest, proof []Digest, e Entry) bool {
	current := LeafDigest(e)

	for _, sibling := range proof {
		current = nodeDigest(current, sibling)
	}

	return current == root
}
