package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"Chisel/internal/storage"
	"Chisel/internal/token"
)

// prefixAttrs is the Pebble key prefix for attribute ledger entries.
var prefixAttrs = []byte("a:")

// ledger maps each live token to its ordered attribute list.
// Entries are written once at token creation and deleted at burn, always in
// the same atomic batch as the ownership mutation, so no reader can observe
// stale attributes for a burned token.
type ledger struct {
	db *storage.Storage
}

// newLedger creates an attribute ledger backed by the given storage.
func newLedger(db *storage.Storage) *ledger {
	return &ledger{db: db}
}

// get returns the attribute list of a live token.
func (l *ledger) get(id uint64) ([]uint32, error) {
	value, err := l.db.Get(l.makeKey(id))
	if err != nil {
		return nil, fmt.Errorf("read ledger entry:\n%w", err)
	}

	if value == nil {
		return nil, fmt.Errorf("%w: ledger entry for token %d", token.ErrNotFound, id)
	}

	var attrs []uint32
	if err := cbor.Unmarshal(value, &attrs); err != nil {
		return nil, fmt.Errorf("decode ledger entry:\n%w", err)
	}

	return attrs, nil
}

// stageSet stages the attribute list for a newly created token.
func (l *ledger) stageSet(b *storage.Batch, id uint64, attrs []uint32) error {
	value, err := cbor.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode ledger entry:\n%w", err)
	}

	b.Set(l.makeKey(id), value)

	return nil
}

// stageClear stages removal of a token's ledger entry at burn time.
func (l *ledger) stageClear(b *storage.Batch, id uint64) {
	b.Delete(l.makeKey(id))
}

// makeKey builds the Pebble key for a token's attribute list.
func (l *ledger) makeKey(id uint64) []byte {
	key := make([]byte, len(prefixAttrs)+8)
	copy(key, prefixAttrs)
	binary.BigEndian.PutUint64(key[len(prefixAttrs):], id)

	return key
}
