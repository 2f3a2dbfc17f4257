package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"Chisel/internal/token"
)

// Client connects to a Chisel registry node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// Wallet holds an Ed25519 keypair used to sign registry operations.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
	pubKey  ed25519.PublicKey  // pubKey is the Ed25519 public key
}

// New creates a client connected to a registry node.
func New(nodeAddr string) *Client {
	return &Client{nodeAddr: nodeAddr}
}

// NewWallet generates a fresh keypair.
func NewWallet() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair:\n%w", err)
	}

	return &Wallet{privKey: priv, pubKey: pub}, nil
}

// LoadWallet restores a wallet from a hex-encoded private key seed.
func LoadWallet(seedHex string) (*Wallet, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed:\n%w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &Wallet{
		privKey: priv,
		pubKey:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// Address returns the wallet's registry address.
func (w *Wallet) Address() token.Address {
	var addr token.Address
	copy(addr[:], w.pubKey)
	return addr
}
