package api

import (
	"encoding/json"
	"fmt"

	"Chisel/internal/merkle"
)

// Envelope wraps a mutating request with the caller's identity and an
// Ed25519 signature over the blake3 digest of the payload bytes exactly as
// transmitted.
type Envelope struct {
	Payload   json.RawMessage `json:"payload"`
	Caller    string          `json:"caller"`    // hex Ed25519 public key
	Signature string          `json:"signature"` // hex Ed25519 signature
}

// MintRequest is the payload of POST /mint.
type MintRequest struct {
	To         string   `json:"to"`
	Proof      []string `json:"proof"`
	Index      uint64   `json:"index"`
	URI        string   `json:"uri"`
	Attributes []uint32 `json:"attributes"`
}

// SplitRequest is the payload of POST /split.
type SplitRequest struct {
	To      string     `json:"to"`
	Source  uint64     `json:"source"`
	Proofs  [][]string `json:"proofs"`
	Indices []uint64   `json:"indices"`
	URIs    []string   `json:"uris"`
}

// CombineRequest is the payload of POST /combine.
type CombineRequest struct {
	To         string   `json:"to"`
	Tokens     []uint64 `json:"tokens"`
	Proof      []string `json:"proof"`
	Index      uint64   `json:"index"`
	URI        string   `json:"uri"`
	Attributes []uint32 `json:"attributes"`
}

// MintResponse is returned by POST /mint and POST /combine.
type MintResponse struct {
	Token uint64 `json:"token"`
}

// SplitResponse is returned by POST /split.
type SplitResponse struct {
	Tokens []uint64 `json:"tokens"`
}

// TokenResponse is returned by GET /tokens/{id}.
type TokenResponse struct {
	ID         uint64   `json:"id"`
	Owner      string   `json:"owner"`
	URI        string   `json:"uri"`
	Attributes []uint32 `json:"attributes"`
}

// ClaimedResponse is returned by GET /claimed/{index}.
type ClaimedResponse struct {
	Index   uint64 `json:"index"`
	Claimed bool   `json:"claimed"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	GenesisRoot      string `json:"genesisRoot"`
	CombinationsRoot string `json:"combinationsRoot"`
	MaxAttributes    uint32 `json:"maxAttributes"`
	NextToken        uint64 `json:"nextToken"`
	Claimed          uint64 `json:"claimed"`
}

// EncodeProof hex-encodes a membership proof for the wire.
func EncodeProof(proof []merkle.Digest) []string {
	encoded := make([]string, len(proof))
	for i, d := range proof {
		encoded[i] = d.String()
	}
	return encoded
}

// DecodeProof parses a hex-encoded membership proof.
func DecodeProof(encoded []string) ([]merkle.Digest, error) {
	proof := make([]merkle.Digest, len(encoded))

	for i, s := range encoded {
		d, err := merkle.ParseDigest(s)
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		proof[i] = d
	}

	return proof, nil
}
