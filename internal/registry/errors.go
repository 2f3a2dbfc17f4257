package registry

import (
	"errors"

	"Chisel/internal/token"
)

// Failure kinds surfaced by registry operations. Callers classify with
// errors.Is; every failure aborts the whole operation with no state change.
var (
	// ErrInvalidProof means catalog membership verification failed.
	ErrInvalidProof = errors.New("membership proof verification failed")

	// ErrAlreadyClaimed means the genesis index was minted before.
	ErrAlreadyClaimed = errors.New("genesis index already claimed")

	// ErrNotAuthorized means the caller is neither owner nor approved.
	ErrNotAuthorized = errors.New("caller is not owner or approved")

	// ErrCannotSplitSingleton means the split source has a single attribute.
	ErrCannotSplitSingleton = errors.New("cannot split single-attribute token")

	// ErrLengthMismatch means split input arrays have unequal lengths.
	ErrLengthMismatch = errors.New("split input lengths do not match")

	// ErrInvalidAttribute means an attribute id is out of the configured range
	// or an attribute list is empty.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrAttributeMismatch means the claimed attribute multiset does not
	// exactly match the attributes of the consumed tokens.
	ErrAttributeMismatch = errors.New("attribute multiset mismatch")

	// ErrTokenNotFound is the ownership store's not-found error, re-exported
	// so registry callers need a single error vocabulary.
	ErrTokenNotFound = token.ErrNotFound
)
