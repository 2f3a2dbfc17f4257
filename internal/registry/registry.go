package registry

import (
	"encoding/binary"
	"fmt"
	"sync"

	"Chisel/internal/logger"
	"Chisel/internal/merkle"
	"Chisel/internal/storage"
	"Chisel/internal/token"
)

// keyNextID is the Pebble key holding the monotonic token id counter.
var keyNextID = []byte("m:next")

// Config holds the immutable registry parameters fixed at construction.
type Config struct {
	// Name is the collection name.
	Name string

	// Symbol is the collection symbol.
	Symbol string

	// GenesisRoot commits the genesis allocation catalog.
	GenesisRoot merkle.Digest

	// CombinationsRoot commits the catalog of legal attribute combinations.
	CombinationsRoot merkle.Digest

	// MaxAttributes bounds attribute ids to [0, MaxAttributes).
	MaxAttributes uint32
}

// Registry is the mint/split/combine façade. It exclusively owns the claim
// bitmap, the attribute ledger, and the token id counter; operations execute
// strictly sequentially and commit all of their mutations in one atomic
// batch, or none of them.
type Registry struct {
	mu     sync.Mutex
	db     *storage.Storage
	tokens *token.Store
	claims *ClaimSet
	attrs  *ledger
	cfg    Config
	nextID uint64
}

// Open restores registry state from storage.
func Open(db *storage.Storage, tokens *token.Store, cfg Config) (*Registry, error) {
	if cfg.MaxAttributes == 0 {
		return nil, fmt.Errorf("max attributes must be positive")
	}

	claims, err := loadClaimSet(db)
	if err != nil {
		return nil, err
	}

	nextID, err := loadNextID(db)
	if err != nil {
		return nil, err
	}

	logger.Info("registry opened",
		"name", cfg.Name,
		"next_token", nextID,
		"claimed", claims.Count(),
	)

	return &Registry{
		db:     db,
		tokens: tokens,
		claims: claims,
		attrs:  newLedger(db),
		cfg:    cfg,
		nextID: nextID,
	}, nil
}

// Config returns the immutable registry parameters.
func (r *Registry) Config() Config {
	return r.cfg
}

// IsClaimed returns true if the genesis index has been minted.
func (r *Registry) IsClaimed(index uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.claims.IsClaimed(index)
}

// ClaimedCount returns the number of minted genesis indices.
func (r *Registry) ClaimedCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.claims.Count()
}

// Attributes returns the attribute list of a live token.
func (r *Registry) Attributes(id uint64) ([]uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.attrs.get(id)
}

// NextTokenID returns the id the next created token will receive.
func (r *Registry) NextTokenID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.nextID
}

// Mint claims a genesis allocation entry. The proof must show that
// (index, uri, attributes) is a member of the genesis catalog, and the index
// must not have been claimed before. Returns the new token id.
func (r *Registry) Mint(to token.Address, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claims.IsClaimed(index) {
		return 0, fmt.Errorf("%w: index %d", ErrAlreadyClaimed, index)
	}

	b := r.db.NewBatch()
	defer b.Close()

	next := r.nextID

	id, err := r.stageMint(b, &next, to, r.cfg.GenesisRoot, proof, index, uri, attributes)
	if err != nil {
		return 0, err
	}

	if err := r.claims.stageClaim(b, index); err != nil {
		return 0, err
	}

	r.stageNextID(b, next)

	if err := b.Commit(); err != nil {
		return 0, fmt.Errorf("commit mint:\n%w", err)
	}

	r.nextID = next
	r.claims.setClaimed(index)

	logger.Info("minted genesis token", "token", id, "index", index, "to", to)

	return id, nil
}

// Split consumes a multi-attribute token and creates one singleton token per
// attribute, in attribute order. proofs[i], indices[i], and uris[i] must
// prove that (indices[i], uris[i], [attr_i]) is a member of the combinations
// catalog; positional correspondence between the source attributes and the
// proof arrays is the caller's responsibility. Returns the new token ids.
//
// All mutations land in one atomic batch that only commits after every
// output proof verifies: a failed split leaves the source token untouched.
func (r *Registry) Split(caller, to token.Address, sourceID uint64, proofs [][]merkle.Digest, indices []uint64, uris []string) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.tokens.IsApprovedOrOwner(caller, sourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: token %d", ErrNotAuthorized, sourceID)
	}

	sourceAttrs, err := r.attrs.get(sourceID)
	if err != nil {
		return nil, err
	}

	if len(sourceAttrs) <= 1 {
		return nil, fmt.Errorf("%w: token %d", ErrCannotSplitSingleton, sourceID)
	}

	if len(proofs) != len(sourceAttrs) || len(indices) != len(sourceAttrs) || len(uris) != len(sourceAttrs) {
		return nil, fmt.Errorf("%w: %d attributes, %d proofs, %d indices, %d uris",
			ErrLengthMismatch, len(sourceAttrs), len(proofs), len(indices), len(uris))
	}

	b := r.db.NewBatch()
	defer b.Close()

	if err := r.stageBurn(b, sourceID); err != nil {
		return nil, err
	}

	next := r.nextID
	ids := make([]uint64, len(sourceAttrs))

	// Each output is one element of the source taken positionally; the
	// catalog proof guarantees it is a legitimate singleton combination.
	for i, attr := range sourceAttrs {
		id, err := r.stageMint(b, &next, to, r.cfg.CombinationsRoot, proofs[i], indices[i], uris[i], []uint32{attr})
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		ids[i] = id
	}

	r.stageNextID(b, next)

	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("commit split:\n%w", err)
	}

	r.nextID = next

	logger.Info("split token", "source", sourceID, "outputs", len(ids), "to", to)

	return ids, nil
}

// Combine consumes the input tokens and creates a single token carrying the
// claimed attribute list, which must be a member of the combinations catalog
// and must equal, as a multiset, the concatenation of the inputs' attribute
// lists. Returns the new token id.
//
// All mutations land in one atomic batch that only commits after the
// conservation check and the catalog proof pass: a failed combine leaves
// every input token untouched.
func (r *Registry) Combine(caller, to token.Address, tokenIDs []uint64, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateAttributes(attributes); err != nil {
		return 0, err
	}

	// Remaining units of the claimed result not yet matched by an input.
	counts := make(map[uint32]int, len(attributes))
	for _, attr := range attributes {
		counts[attr]++
	}

	seen := make(map[uint64]bool, len(tokenIDs))

	for _, id := range tokenIDs {
		if seen[id] {
			return 0, fmt.Errorf("%w: duplicate input token %d", ErrAttributeMismatch, id)
		}
		seen[id] = true

		ok, err := r.tokens.IsApprovedOrOwner(caller, id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: token %d", ErrNotAuthorized, id)
		}

		inputAttrs, err := r.attrs.get(id)
		if err != nil {
			return 0, err
		}

		for _, attr := range inputAttrs {
			if counts[attr] == 0 {
				return 0, fmt.Errorf("%w: attribute %d of token %d not in claimed result", ErrAttributeMismatch, attr, id)
			}
			counts[attr]--
		}
	}

	// Conservation must hold in both directions: every claimed unit has to
	// be consumed from some input.
	for attr, remaining := range counts {
		if remaining != 0 {
			return 0, fmt.Errorf("%w: claimed attribute %d not covered by inputs", ErrAttributeMismatch, attr)
		}
	}

	b := r.db.NewBatch()
	defer b.Close()

	for _, id := range tokenIDs {
		if err := r.stageBurn(b, id); err != nil {
			return 0, err
		}
	}

	next := r.nextID

	id, err := r.stageMint(b, &next, to, r.cfg.CombinationsRoot, proof, index, uri, attributes)
	if err != nil {
		return 0, err
	}

	r.stageNextID(b, next)

	if err := b.Commit(); err != nil {
		return 0, fmt.Errorf("commit combine:\n%w", err)
	}

	r.nextID = next

	logger.Info("combined tokens", "inputs", len(tokenIDs), "token", id, "to", to)

	return id, nil
}

// stageMint verifies catalog membership and stages the creation of one
// token: ownership record, URI, and ledger entry. The root parameter selects
// the catalog, so the same path serves genesis mints and combination mints.
func (r *Registry) stageMint(b *storage.Batch, next *uint64, to token.Address, root merkle.Digest, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	if err := r.validateAttributes(attributes); err != nil {
		return 0, err
	}

	entry := merkle.Entry{Index: index, URI: uri, Attributes: attributes}
	if !merkle.Verify(root, proof, entry) {
		return 0, fmt.Errorf("%w: index %d", ErrInvalidProof, index)
	}

	id := *next
	*next++

	if err := r.tokens.StageMint(b, to, id, uri); err != nil {
		return 0, err
	}

	if err := r.attrs.stageSet(b, id, attributes); err != nil {
		return 0, err
	}

	return id, nil
}

// stageBurn stages the destruction of one token: ownership record and
// ledger entry go in the same batch.
func (r *Registry) stageBurn(b *storage.Batch, id uint64) error {
	if err := r.tokens.StageBurn(b, id); err != nil {
		return err
	}

	r.attrs.stageClear(b, id)

	return nil
}

// validateAttributes checks that the list is non-empty and every id is in
// the configured range.
func (r *Registry) validateAttributes(attributes []uint32) error {
	if len(attributes) == 0 {
		return fmt.Errorf("%w: empty attribute list", ErrInvalidAttribute)
	}

	for _, attr := range attributes {
		if attr >= r.cfg.MaxAttributes {
			return fmt.Errorf("%w: id %d out of range [0,%d)", ErrInvalidAttribute, attr, r.cfg.MaxAttributes)
		}
	}

	return nil
}

// stageNextID stages the persisted token id counter.
func (r *Registry) stageNextID(b *storage.Batch, next uint64) {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, next)
	b.Set(keyNextID, value)
}

// loadNextID restores the token id counter. Ids start at 1.
func loadNextID(db *storage.Storage) (uint64, error) {
	value, err := db.Get(keyNextID)
	if err != nil {
		return 0, fmt.Errorf("load token counter:\n%w", err)
	}

	if len(value) != 8 {
		return 1, nil
	}

	return binary.BigEndian.Uint64(value), nil
}
