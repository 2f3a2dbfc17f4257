package client

import (
	"strconv"

	"Chisel/internal/api"
	"Chisel/internal/merkle"
	"Chisel/internal/token"
)

// Mint claims a catalog entry and returns the new token's ID.
func (c *Client) Mint(w *Wallet, to token.Address, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	req := api.MintRequest{
		To:         to.String(),
		Proof:      api.EncodeProof(proof),
		Index:      index,
		URI:        uri,
		Attributes: attributes,
	}

	var resp api.MintResponse
	if err := c.postSigned("/mint", w, req, &resp); err != nil {
		return 0, err
	}
	return resp.Token, nil
}

// Split burns a source token and mints one singleton per attribute.
// Proofs, indices and URIs are positional: entry i describes the token
// minted for the source's i-th attribute.
func (c *Client) Split(w *Wallet, to token.Address, sourceID uint64, proofs [][]merkle.Digest, indices []uint64, uris []string) ([]uint64, error) {
	encoded := make([][]string, len(proofs))
	for i, p := range proofs {
		encoded[i] = api.EncodeProof(p)
	}

	req := api.SplitRequest{
		To:      to.String(),
		Source:  sourceID,
		Proofs:  encoded,
		Indices: indices,
		URIs:    uris,
	}

	var resp api.SplitResponse
	if err := c.postSigned("/split", w, req, &resp); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// Combine burns the input tokens and mints a token whose attribute set
// is exactly the union of the inputs' attributes.
func (c *Client) Combine(w *Wallet, to token.Address, tokenIDs []uint64, proof []merkle.Digest, index uint64, uri string, attributes []uint32) (uint64, error) {
	req := api.CombineRequest{
		To:         to.String(),
		Tokens:     tokenIDs,
		Proof:      api.EncodeProof(proof),
		Index:      index,
		URI:        uri,
		Attributes: attributes,
	}

	var resp api.MintResponse
	if err := c.postSigned("/combine", w, req, &resp); err != nil {
		return 0, err
	}
	return resp.Token, nil
}

// Token fetches a token's owner, URI and attributes.
func (c *Client) Token(id uint64) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.getJSON("/tokens/"+strconv.FormatUint(id, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Claimed reports whether a genesis catalog entry has been claimed.
func (c *Client) Claimed(index uint64) (bool, error) {
	var resp api.ClaimedResponse
	if err := c.getJSON("/claimed/"+strconv.FormatUint(index, 10), &resp); err != nil {
		return false, err
	}
	return resp.Claimed, nil
}

// Status fetches the registry's configuration and counters.
func (c *Client) Status() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.getJSON("/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
