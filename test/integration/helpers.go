package integration

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"Chisel/client"
	"Chisel/internal/api"
	"Chisel/internal/catalog"
	"Chisel/internal/merkle"
	"Chisel/internal/registry"
	"Chisel/internal/storage"
	"Chisel/internal/token"
)

const maxAttributes = 16

// testNode is a registry node running in-process.
type testNode struct {
	addr    string
	db      *storage.Storage
	reg     *registry.Registry
	server  *api.Server
	genesis *catalog.Catalog
	combos  *catalog.Catalog
	dataDir string
}

// genesisEntries is the fixture catalog: a few multi-attribute assets.
func genesisEntries() []merkle.Entry {
	return []merkle.Entry{
		{Index: 0, URI: "ipfs://genesis/0", Attributes: []uint32{1, 2}},
		{Index: 1, URI: "ipfs://genesis/1", Attributes: []uint32{3}},
		{Index: 2, URI: "ipfs://genesis/2", Attributes: []uint32{4, 5, 6}},
	}
}

// combinationEntries is singletons for every attribute plus a few
// multi-attribute recombinations.
func combinationEntries() []merkle.Entry {
	entries := catalog.Singletons(maxAttributes, func(attr uint32) string {
		return fmt.Sprintf("ipfs://single/%d", attr)
	})
	next := uint64(len(entries))
	entries = append(entries,
		merkle.Entry{Index: next, URI: "ipfs://combo/0", Attributes: []uint32{1, 2}},
		merkle.Entry{Index: next + 1, URI: "ipfs://combo/1", Attributes: []uint32{1, 2, 3}},
	)
	return entries
}

// freeAddr reserves a loopback port for the HTTP server.
func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	return addr
}

// startNode boots a registry node on a loopback port and waits for it
// to answer health checks.
func startNode(t *testing.T, dataDir string) *testNode {
	t.Helper()

	genesis, err := catalog.New(genesisEntries(), maxAttributes)
	if err != nil {
		t.Fatalf("failed to build genesis catalog: %v", err)
	}
	combos, err := catalog.New(combinationEntries(), maxAttributes)
	if err != nil {
		t.Fatalf("failed to build combinations catalog: %v", err)
	}

	db, err := storage.New(dataDir)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	tokens := token.NewStore(db)

	reg, err := registry.Open(db, tokens, registry.Config{
		Name:             "Chisel",
		Symbol:           "CHSL",
		GenesisRoot:      genesis.Root(),
		CombinationsRoot: combos.Root(),
		MaxAttributes:    maxAttributes,
	})
	if err != nil {
		db.Close()
		t.Fatalf("failed to open registry: %v", err)
	}

	addr := freeAddr(t)
	server := api.New(addr, reg, tokens)
	if err := server.Start(); err != nil {
		db.Close()
		t.Fatalf("failed to start server: %v", err)
	}

	n := &testNode{
		addr:    addr,
		db:      db,
		reg:     reg,
		server:  server,
		genesis: genesis,
		combos:  combos,
		dataDir: dataDir,
	}
	n.waitReady(t)

	return n
}

// waitReady polls /health until the server answers.
func (n *testNode) waitReady(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + n.addr + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatal("node did not become ready")
}

// stop shuts the node down.
func (n *testNode) stop(t *testing.T) {
	t.Helper()

	if err := n.server.Stop(); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}
	if err := n.db.Close(); err != nil {
		t.Fatalf("failed to close storage: %v", err)
	}
}

// client returns a client pointed at this node.
func (n *testNode) client() *client.Client {
	return client.New(n.addr)
}

// proveGenesis returns the membership proof for a genesis entry.
func (n *testNode) proveGenesis(t *testing.T, index uint64) []merkle.Digest {
	t.Helper()

	proof, err := n.genesis.Prove(index)
	if err != nil {
		t.Fatalf("failed to prove genesis entry %d: %v", index, err)
	}
	return proof
}

// proveCombo returns the membership proof for a combinations entry.
func (n *testNode) proveCombo(t *testing.T, index uint64) []merkle.Digest {
	t.Helper()

	proof, err := n.combos.Prove(index)
	if err != nil {
		t.Fatalf("failed to prove combinations entry %d: %v", index, err)
	}
	return proof
}

// comboEntry returns a combinations catalog entry by index.
func (n *testNode) comboEntry(t *testing.T, index uint64) merkle.Entry {
	t.Helper()

	e, err := n.combos.Entry(index)
	if err != nil {
		t.Fatalf("failed to read combinations entry %d: %v", index, err)
	}
	return e
}

// newWallet generates a wallet or fails the test.
func newWallet(t *testing.T) *client.Wallet {
	t.Helper()

	w, err := client.NewWallet()
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}
	return w
}
