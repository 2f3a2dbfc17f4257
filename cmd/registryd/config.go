package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
)

// Config holds the registry node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// Name is the registry's display name.
	Name string

	// Symbol is the registry's ticker symbol.
	Symbol string

	// GenesisCatalogPath is the path to the genesis catalog file.
	GenesisCatalogPath string

	// CombinationsCatalogPath is the path to the combinations catalog file.
	CombinationsCatalogPath string

	// GenesisRoot is the hex genesis root, used when no catalog file is given.
	GenesisRoot string

	// CombinationsRoot is the hex combinations root, used when no catalog file is given.
	CombinationsRoot string

	// MaxAttributes bounds valid attribute identifiers. Required with -genesis-root;
	// derived from the catalog files otherwise.
	MaxAttributes uint64

	// KeyPath is the path to the node's Ed25519 private key file.
	KeyPath string

	// PrivateKey is the node's Ed25519 identity key.
	PrivateKey ed25519.PrivateKey

	// Debug enables debug-level logging.
	Debug bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.StringVar(&cfg.Name, "name", "Chisel", "Registry name")
	flag.StringVar(&cfg.Symbol, "symbol", "CHSL", "Registry symbol")
	flag.StringVar(&cfg.GenesisCatalogPath, "genesis-catalog", "", "Genesis catalog file path")
	flag.StringVar(&cfg.CombinationsCatalogPath, "combinations-catalog", "", "Combinations catalog file path")
	flag.StringVar(&cfg.GenesisRoot, "genesis-root", "", "Genesis root (hex, alternative to -genesis-catalog)")
	flag.StringVar(&cfg.CombinationsRoot, "combinations-root", "", "Combinations root (hex, alternative to -combinations-catalog)")
	flag.Uint64Var(&cfg.MaxAttributes, "max-attributes", 0, "Attribute id bound (required with -genesis-root)")
	flag.StringVar(&cfg.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that the flags describe exactly one way to obtain
// the catalog roots.
func (c *Config) validate() error {
	haveCatalogs := c.GenesisCatalogPath != "" && c.CombinationsCatalogPath != ""
	haveRoots := c.GenesisRoot != "" && c.CombinationsRoot != ""

	switch {
	case haveCatalogs && haveRoots:
		return fmt.Errorf("pass catalog files or roots, not both")
	case haveCatalogs:
		return nil
	case haveRoots:
		if c.MaxAttributes == 0 {
			return fmt.Errorf("-max-attributes is required with -genesis-root")
		}
		return nil
	default:
		return fmt.Errorf("either -genesis-catalog/-combinations-catalog or -genesis-root/-combinations-root is required")
	}
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
