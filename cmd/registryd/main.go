package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"Chisel/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger.Init(level)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg)

	if err := node.Start(); err != nil {
		node.Close()
		return fmt.Errorf("start node:\n%w", err)
	}

	waitForShutdown()

	return node.Close()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *Config) {
	pubKey := cfg.PrivateKey.Public().(ed25519.PublicKey)

	logger.Info("starting Chisel registry node",
		"pubkey", hex.EncodeToString(pubKey),
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"name", cfg.Name,
		"symbol", cfg.Symbol,
	)
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutdown signal received")
}
