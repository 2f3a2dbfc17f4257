package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"Chisel/internal/token"
)

const (
	// callerSize is the expected size of an Ed25519 public key.
	callerSize = 32

	// signatureSize is the expected size of an Ed25519 signature.
	signatureSize = 64
)

// verifyEnvelope checks the envelope signature and returns the caller
// address. The signature covers blake3(payload bytes), so the payload cannot
// be reshaped in transit without invalidating it.
func verifyEnvelope(env *Envelope) (token.Address, error) {
	if len(env.Payload) == 0 {
		return token.Address{}, fmt.Errorf("empty payload")
	}

	pub, err := hex.DecodeString(env.Caller)
	if err != nil || len(pub) != callerSize {
		return token.Address{}, fmt.Errorf("invalid caller key")
	}

	sig, err := hex.DecodeString(env.Signature)
	if err != nil || len(sig) != signatureSize {
		return token.Address{}, fmt.Errorf("invalid signature encoding")
	}

	digest := blake3.Sum256(env.Payload)

	if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
		return token.Address{}, fmt.Errorf("signature verification failed")
	}

	var caller token.Address
	copy(caller[:], pub)

	return caller, nil
}
