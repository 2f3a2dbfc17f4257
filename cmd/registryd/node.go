package main

import (
	"fmt"

	"Chisel/internal/api"
	"Chisel/internal/catalog"
	"Chisel/internal/logger"
	"Chisel/internal/merkle"
	"Chisel/internal/registry"
	"Chisel/internal/storage"
	"Chisel/internal/token"
)

// Node wires storage, the registry and the HTTP API together.
type Node struct {
	db     *storage.Storage   // db is the pebble-backed store
	reg    *registry.Registry // reg is the token registry
	server *api.Server        // server is the HTTP API server
}

// NewNode opens storage and builds the registry from the configuration.
func NewNode(cfg *Config) (*Node, error) {
	regCfg, err := resolveRoots(cfg)
	if err != nil {
		return nil, err
	}
	regCfg.Name = cfg.Name
	regCfg.Symbol = cfg.Symbol

	db, err := storage.New(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}

	tokens := token.NewStore(db)

	reg, err := registry.Open(db, tokens, regCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open registry:\n%w", err)
	}

	return &Node{
		db:     db,
		reg:    reg,
		server: api.New(cfg.HTTPAddress, reg, tokens),
	}, nil
}

// resolveRoots derives the registry configuration from catalog files
// or from the roots passed directly on the command line.
func resolveRoots(cfg *Config) (registry.Config, error) {
	if cfg.GenesisCatalogPath != "" {
		genesis, genMax, err := catalog.Load(cfg.GenesisCatalogPath)
		if err != nil {
			return registry.Config{}, fmt.Errorf("load genesis catalog:\n%w", err)
		}

		combos, comboMax, err := catalog.Load(cfg.CombinationsCatalogPath)
		if err != nil {
			return registry.Config{}, fmt.Errorf("load combinations catalog:\n%w", err)
		}

		if genMax != comboMax {
			return registry.Config{}, fmt.Errorf("catalog attribute bounds disagree: %d vs %d", genMax, comboMax)
		}

		logger.Info("catalogs loaded",
			"genesis_entries", genesis.Len(),
			"combination_entries", combos.Len(),
			"max_attributes", genMax,
		)

		return registry.Config{
			GenesisRoot:      genesis.Root(),
			CombinationsRoot: combos.Root(),
			MaxAttributes:    genMax,
		}, nil
	}

	genRoot, err := merkle.ParseDigest(cfg.GenesisRoot)
	if err != nil {
		return registry.Config{}, fmt.Errorf("parse genesis root:\n%w", err)
	}

	comboRoot, err := merkle.ParseDigest(cfg.CombinationsRoot)
	if err != nil {
		return registry.Config{}, fmt.Errorf("parse combinations root:\n%w", err)
	}

	return registry.Config{
		GenesisRoot:      genRoot,
		CombinationsRoot: comboRoot,
		MaxAttributes:    uint32(cfg.MaxAttributes),
	}, nil
}

// Start launches the HTTP API.
func (n *Node) Start() error {
	return n.server.Start()
}

// Close shuts down the API and storage.
func (n *Node) Close() error {
	if err := n.server.Stop(); err != nil {
		logger.Error("failed to stop http server", "error", err)
	}

	return n.db.Close()
}
