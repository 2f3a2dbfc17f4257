package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"Chisel/internal/logger"
	"Chisel/internal/merkle"
	"Chisel/internal/registry"
	"Chisel/internal/token"
)

const (
	// maxRequestSize is the maximum request body size in bytes.
	maxRequestSize = 1 << 20 // 1 MB
)

// Registry is the mutating and reading surface the server exposes.
type Registry interface {
	Mint(to token.Address, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error)
	Split(caller, to token.Address, sourceID uint64, proofs [][]merkle.Digest, indices []uint64, uris []string) ([]uint64, error)
	Combine(caller, to token.Address, tokenIDs []uint64, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error)
	IsClaimed(index uint64) bool
	Attributes(id uint64) ([]uint32, error)
	NextTokenID() uint64
	ClaimedCount() uint64
	Config() registry.Config
}

// TokenReader exposes ownership records for the read endpoints.
type TokenReader interface {
	OwnerOf(id uint64) (token.Address, error)
	TokenURI(id uint64) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	addr   string       // addr is the HTTP listen address
	reg    Registry     // reg handles mint/split/combine and reads
	tokens TokenReader  // tokens provides ownership lookups
	server *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, reg Registry, tokens TokenReader) *Server {
	return &Server{
		addr:   addr,
		reg:    reg,
		tokens: tokens,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mint", s.handleMint)
	mux.HandleFunc("POST /split", s.handleSplit)
	mux.HandleFunc("POST /combine", s.handleCombine)
	mux.HandleFunc("GET /tokens/{id}", s.handleToken)
	mux.HandleFunc("GET /claimed/{index}", s.handleClaimed)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// readEnvelope reads the body and verifies the envelope signature.
func readEnvelope(w http.ResponseWriter, r *http.Request) (*Envelope, token.Address, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, token.Address{}, false
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid envelope")
		return nil, token.Address{}, false
	}

	caller, err := verifyEnvelope(&env)
	if err != nil {
		writeError(w, http.StatusForbidden, fmt.Sprintf("unauthorized: %v", err))
		return nil, token.Address{}, false
	}

	return &env, caller, true
}

// handleMint handles POST /mint requests.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	env, _, ok := readEnvelope(w, r)
	if !ok {
		return
	}

	var req MintRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid mint payload")
		return
	}

	to, err := token.ParseAddress(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid recipient: %v", err))
		return
	}

	proof, err := DecodeProof(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid proof: %v", err))
		return
	}

	id, err := s.reg.Mint(to, proof, req.Index, req.URI, req.Attributes)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MintResponse{Token: id})
}

// handleSplit handles POST /split requests.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	env, caller, ok := readEnvelope(w, r)
	if !ok {
		return
	}

	var req SplitRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid split payload")
		return
	}

	to, err := token.ParseAddress(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid recipient: %v", err))
		return
	}

	proofs := make([][]merkle.Digest, len(req.Proofs))
	for i, p := range req.Proofs {
		proofs[i], err = DecodeProof(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid proof %d: %v", i, err))
			return
		}
	}

	ids, err := s.reg.Split(caller, to, req.Source, proofs, req.Indices, req.URIs)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SplitResponse{Tokens: ids})
}

// handleCombine handles POST /combine requests.
func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	env, caller, ok := readEnvelope(w, r)
	if !ok {
		return
	}

	var req CombineRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid combine payload")
		return
	}

	to, err := token.ParseAddress(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid recipient: %v", err))
		return
	}

	proof, err := DecodeProof(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid proof: %v", err))
		return
	}

	id, err := s.reg.Combine(caller, to, req.Tokens, proof, req.Index, req.URI, req.Attributes)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MintResponse{Token: id})
}

// handleToken handles GET /tokens/{id} requests.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	owner, err := s.tokens.OwnerOf(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "token not found")
		return
	}

	uri, err := s.tokens.TokenURI(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "token not found")
		return
	}

	attrs, err := s.reg.Attributes(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "token not found")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		ID:         id,
		Owner:      owner.String(),
		URI:        uri,
		Attributes: attrs,
	})
}

// handleClaimed handles GET /claimed/{index} requests.
func (s *Server) handleClaimed(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	writeJSON(w, http.StatusOK, ClaimedResponse{
		Index:   index,
		Claimed: s.reg.IsClaimed(index),
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.reg.Config()

	writeJSON(w, http.StatusOK, StatusResponse{
		Name:             cfg.Name,
		Symbol:           cfg.Symbol,
		GenesisRoot:      cfg.GenesisRoot.String(),
		CombinationsRoot: cfg.CombinationsRoot.String(),
		MaxAttributes:    cfg.MaxAttributes,
		NextToken:        s.reg.NextTokenID(),
		Claimed:          s.reg.ClaimedCount(),
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// writeRegistryError maps registry failure kinds to HTTP status codes.
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrInvalidProof),
		errors.Is(err, registry.ErrCannotSplitSingleton),
		errors.Is(err, registry.ErrLengthMismatch),
		errors.Is(err, registry.ErrInvalidAttribute),
		errors.Is(err, registry.ErrAttributeMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
