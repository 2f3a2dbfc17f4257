package client

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zeebo/blake3"

	"Chisel/internal/api"
)

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(path string, out any) error {
	resp, err := http.Get("http://" + c.nodeAddr + path)
	if err != nil {
		return fmt.Errorf("request failed:\n%w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response:\n%w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response:\n%w", err)
	}
	return nil
}

// postSigned signs the payload with the wallet key and posts the envelope.
func (c *Client) postSigned(path string, w *Wallet, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload:\n%w", err)
	}

	digest := blake3.Sum256(raw)
	sig := ed25519.Sign(w.privKey, digest[:])

	env := api.Envelope{
		Payload:   raw,
		Caller:    hex.EncodeToString(w.pubKey),
		Signature: hex.EncodeToString(sig),
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope:\n%w", err)
	}

	resp, err := http.Post("http://"+c.nodeAddr+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed:\n%w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response:\n%w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decodeError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response:\n%w", err)
		}
	}
	return nil
}

// decodeError extracts the error message from a failed response.
func decodeError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return fmt.Errorf("node returned %d: %s", status, e.Error)
	}
	return fmt.Errorf("node returned %d", status)
}
