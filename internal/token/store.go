package token

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"Chisel/internal/storage"
)

// ErrNotFound is returned for tokens that were never minted or already burned.
var ErrNotFound = errors.New("token not found")

// Pebble key prefixes for ownership records.
var (
	prefixOwner    = []byte("o:")  // o:<id8> -> owner address
	prefixURI      = []byte("u:")  // u:<id8> -> metadata URI
	prefixApproved = []byte("ap:") // ap:<id8> -> approved address
	prefixOperator = []byte("op:") // op:<owner32><operator32> -> 0x01
)

// Address identifies a token owner (an Ed25519 public key).
type Address [32]byte

// ZeroAddress is the empty address; it can never own tokens.
var ZeroAddress Address

// String returns the hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAddress decodes a hex-encoded 32-byte address.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}

	if len(raw) != 32 {
		return Address{}, fmt.Errorf("invalid address length: %d", len(raw))
	}

	var a Address
	copy(a[:], raw)

	return a, nil
}

// Store tracks token ownership, approvals, and metadata URIs in Pebble.
// Mutations that must be atomic with registry state changes are staged into
// a caller-supplied batch; standalone approval operations commit directly.
type Store struct {
	db *storage.Storage
}

// NewStore creates an ownership store backed by the given storage.
func NewStore(db *storage.Storage) *Store {
	return &Store{db: db}
}

// OwnerOf returns the owner of a token, or ErrNotFound.
func (s *Store) OwnerOf(id uint64) (Address, error) {
	value, err := s.db.Get(ownerKey(id))
	if err != nil || len(value) != 32 {
		return Address{}, ErrNotFound
	}

	var owner Address
	copy(owner[:], value)

	return owner, nil
}

// Exists returns true if the token is live (minted and not burned).
func (s *Store) Exists(id uint64) bool {
	_, err := s.OwnerOf(id)
	return err == nil
}

// BalanceOf counts the live tokens held by an address. Computed by
// scanning the owner records, so reads never contend with staged batches.
func (s *Store) BalanceOf(owner Address) (uint64, error) {
	var count uint64

	err := s.db.IteratePrefix(prefixOwner, func(key, value []byte) error {
		if len(value) == 32 && bytes.Equal(value, owner[:]) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan owner records:\n%w", err)
	}

	return count, nil
}

// TokenURI returns the metadata URI of a token, or ErrNotFound.
func (s *Store) TokenURI(id uint64) (string, error) {
	if !s.Exists(id) {
		return "", ErrNotFound
	}

	value, err := s.db.Get(uriKey(id))
	if err != nil {
		return "", ErrNotFound
	}

	return string(value), nil
}

// Approved returns the single approved address for a token, if any.
func (s *Store) Approved(id uint64) (Address, bool) {
	value, err := s.db.Get(approvedKey(id))
	if err != nil || len(value) != 32 {
		return Address{}, false
	}

	var addr Address
	copy(addr[:], value)

	return addr, true
}

// IsApprovedForAll returns true if operator may act for every token of owner.
func (s *Store) IsApprovedForAll(owner, operator Address) bool {
	value, err := s.db.Get(operatorKey(owner, operator))
	return err == nil && len(value) == 1 && value[0] == 1
}

// IsApprovedOrOwner returns true if caller is the token's owner, its
// approved address, or an operator for the owner. ErrNotFound if the token
// does not exist.
func (s *Store) IsApprovedOrOwner(caller Address, id uint64) (bool, error) {
	owner, err := s.OwnerOf(id)
	if err != nil {
		return false, err
	}

	if caller == owner {
		return true, nil
	}

	if approved, ok := s.Approved(id); ok && approved == caller {
		return true, nil
	}

	return s.IsApprovedForAll(owner, caller), nil
}

// Approve sets the approved address for a token. Caller must be the owner
// or an operator for the owner. Approving ZeroAddress clears the approval.
func (s *Store) Approve(caller, approved Address, id uint64) error {
	owner, err := s.OwnerOf(id)
	if err != nil {
		return err
	}

	if caller != owner && !s.IsApprovedForAll(owner, caller) {
		return fmt.Errorf("caller %s is not owner or operator", caller)
	}

	if approved == ZeroAddress {
		return s.db.Delete(approvedKey(id))
	}

	return s.db.Set(approvedKey(id), approved[:])
}

// SetApprovalForAll grants or revokes operator rights over all of owner's tokens.
func (s *Store) SetApprovalForAll(owner, operator Address, approved bool) error {
	if approved {
		return s.db.Set(operatorKey(owner, operator), []byte{1})
	}

	return s.db.Delete(operatorKey(owner, operator))
}

// SetTokenURI replaces the metadata URI of a live token.
// Caller must be owner or approved.
func (s *Store) SetTokenURI(caller Address, id uint64, uri string) error {
	ok, err := s.IsApprovedOrOwner(caller, id)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("caller %s may not modify token %d", caller, id)
	}

	return s.db.Set(uriKey(id), []byte(uri))
}

// StageMint stages the creation of a token in the batch.
// Fails if the token already exists or the recipient is the zero address.
func (s *Store) StageMint(b *storage.Batch, to Address, id uint64, uri string) error {
	if to == ZeroAddress {
		return fmt.Errorf("mint to zero address")
	}

	if s.Exists(id) {
		return fmt.Errorf("token %d already exists", id)
	}

	b.Set(ownerKey(id), to[:])
	b.Set(uriKey(id), []byte(uri))

	return nil
}

// StageBurn stages the destruction of a token in the batch: owner record,
// URI, and any single-token approval are removed together.
func (s *Store) StageBurn(b *storage.Batch, id uint64) error {
	if !s.Exists(id) {
		return ErrNotFound
	}

	b.Delete(ownerKey(id))
	b.Delete(uriKey(id))
	b.Delete(approvedKey(id))

	return nil
}

// ownerKey builds the Pebble key for a token's owner record.
func ownerKey(id uint64) []byte {
	return idKey(prefixOwner, id)
}

// uriKey builds the Pebble key for a token's URI record.
func uriKey(id uint64) []byte {
	return idKey(prefixURI, id)
}

// approvedKey builds the Pebble key for a token's approval record.
func approvedKey(id uint64) []byte {
	return idKey(prefixApproved, id)
}

// idKey builds prefix + big-endian token id.
func idKey(prefix []byte, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)

	return key
}

// operatorKey builds the Pebble key for an operator approval.
func operatorKey(owner, operator Address) []byte {
	key := make([]byte, len(prefixOperator)+64)
	copy(key, prefixOperator)
	copy(key[len(prefixOperator):], owner[:])
	copy(key[len(prefixOperator)+32:], operator[:])

	return key
}
