package api

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeebo/blake3"

	"Chisel/internal/merkle"
	"Chisel/internal/registry"
	"Chisel/internal/token"
)

// stubRegistry records calls and returns canned results.
type stubRegistry struct {
	mintID    uint64
	splitIDs  []uint64
	err       error
	lastTo    token.Address
	lastAttrs []uint32
}

func (s *stubRegistry) Mint(to token.Address, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	s.lastTo = to
	s.lastAttrs = attributes
	return s.mintID, s.err
}

func (s *stubRegistry) Split(caller, to token.Address, sourceID uint64, proofs [][]merkle.Digest, indices []uint64, uris []string) ([]uint64, error) {
	s.lastTo = to
	return s.splitIDs, s.err
}

func (s *stubRegistry) Combine(caller, to token.Address, tokenIDs []uint64, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	s.lastTo = to
	return s.mintID, s.err
}

func (s *stubRegistry) IsClaimed(index uint64) bool { return index == 7 }

func (s *stubRegistry) Attributes(id uint64) ([]uint32, error) {
	if id == 1 {
		return []uint32{2, 5}, nil
	}
	return nil, token.ErrNotFound
}

func (s *stubRegistry) NextTokenID() uint64  { return 42 }
func (s *stubRegistry) ClaimedCount() uint64 { return 3 }

func (s *stubRegistry) Config() registry.Config {
	return registry.Config{
		Name:          "Chisel",
		Symbol:        "CHSL",
		MaxAttributes: 16,
	}
}

type stubTokens struct {
	owner token.Address
}

func (s *stubTokens) OwnerOf(id uint64) (token.Address, error) {
	if id != 1 {
		return token.Address{}, token.ErrNotFound
	}
	return s.owner, nil
}

func (s *stubTokens) TokenURI(id uint64) (string, error) {
	if id != 1 {
		return "", token.ErrNotFound
	}
	return "ipfs://one", nil
}

// newTestServer builds a server with stubs and returns its mux handler.
func newTestServer(t *testing.T, reg *stubRegistry) http.Handler {
	t.Helper()

	s := New("127.0.0.1:0", reg, &stubTokens{owner: token.Address{1}})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /mint", s.handleMint)
	mux.HandleFunc("POST /split", s.handleSplit)
	mux.HandleFunc("POST /combine", s.handleCombine)
	mux.HandleFunc("GET /tokens/{id}", s.handleToken)
	mux.HandleFunc("GET /claimed/{index}", s.handleClaimed)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// signEnvelope wraps a payload in a signed envelope.
func signEnvelope(t *testing.T, payload any) ([]byte, token.Address) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	digest := blake3.Sum256(raw)
	sig := ed25519.Sign(priv, digest[:])

	env := Envelope{
		Payload:   raw,
		Caller:    hex.EncodeToString(pub),
		Signature: hex.EncodeToString(sig),
	}

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	var caller token.Address
	copy(caller[:], pub)
	return body, caller
}

func TestHandleHealth(t *testing.T) {
	mux := newTestServer(t, &stubRegistry{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	mux := newTestServer(t, &stubRegistry{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Chisel" || resp.NextToken != 42 || resp.Claimed != 3 {
		t.Fatalf("unexpected status response: %+v", resp)
	}
}

func TestHandleMint(t *testing.T) {
	reg := &stubRegistry{mintID: 9}
	mux := newTestServer(t, reg)

	to := token.Address{7}
	body, _ := signEnvelope(t, MintRequest{
		To:         to.String(),
		Proof:      []string{merkle.Digest{1}.String()},
		Index:      3,
		URI:        "ipfs://x",
		Attributes: []uint32{1, 2},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/mint", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp MintResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != 9 {
		t.Fatalf("expected token 9, got %d", resp.Token)
	}
	if reg.lastTo != to {
		t.Fatal("recipient not forwarded to registry")
	}
}

func TestHandleMintBadSignature(t *testing.T) {
	mux := newTestServer(t, &stubRegistry{})

	body, _ := signEnvelope(t, MintRequest{To: token.Address{7}.String()})

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	env.Payload = json.RawMessage(`{"to":"tampered"}`)
	tampered, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/mint", bytes.NewReader(tampered)))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleSplit(t *testing.T) {
	reg := &stubRegistry{splitIDs: []uint64{10, 11}}
	mux := newTestServer(t, reg)

	body, _ := signEnvelope(t, SplitRequest{
		To:      token.Address{7}.String(),
		Source:  1,
		Proofs:  [][]string{{merkle.Digest{1}.String()}, {merkle.Digest{2}.String()}},
		Indices: []uint64{0, 1},
		URIs:    []string{"ipfs://a", "ipfs://b"},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/split", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SplitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Tokens) != 2 || resp.Tokens[0] != 10 {
		t.Fatalf("unexpected split response: %+v", resp)
	}
}

func TestHandleCombine(t *testing.T) {
	reg := &stubRegistry{mintID: 20}
	mux := newTestServer(t, reg)

	body, _ := signEnvelope(t, CombineRequest{
		To:         token.Address{7}.String(),
		Tokens:     []uint64{1, 2},
		Proof:      []string{merkle.Digest{1}.String()},
		Index:      16,
		URI:        "ipfs://c",
		Attributes: []uint32{1, 2},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/combine", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{registry.ErrNotAuthorized, http.StatusForbidden},
		{registry.ErrAlreadyClaimed, http.StatusConflict},
		{registry.ErrTokenNotFound, http.StatusNotFound},
		{registry.ErrInvalidProof, http.StatusUnprocessableEntity},
		{registry.ErrAttributeMismatch, http.StatusUnprocessableEntity},
		{registry.ErrCannotSplitSingleton, http.StatusUnprocessableEntity},
	}

	for _, c := range cases {
		mux := newTestServer(t, &stubRegistry{err: c.err})

		body, _ := signEnvelope(t, MintRequest{To: token.Address{7}.String()})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/mint", bytes.NewReader(body)))

		if rec.Code != c.code {
			t.Fatalf("error %v: expected %d, got %d", c.err, c.code, rec.Code)
		}
	}
}

func TestHandleToken(t *testing.T) {
	mux := newTestServer(t, &stubRegistry{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/tokens/1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 1 || resp.URI != "ipfs://one" || len(resp.Attributes) != 2 {
		t.Fatalf("unexpected token response: %+v", resp)
	}
}

func TestHandleTokenNotFound(t *testing.T) {
	mux := newTestServer(t, &stubRegistry{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/tokens/99", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleClaimed(t *testing.T) {
	mux := newTestServer(t, &stubRegistry{})

	for _, c := range []struct {
		index   string
		claimed bool
	}{
		{"7", true},
		{"8", false},
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/claimed/"+c.index, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp ClaimedResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Claimed != c.claimed {
			t.Fatalf("index %s: expected claimed=%v", c.index, c.claimed)
		}
	}
}
