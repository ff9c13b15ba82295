// Package client is the ParkPass SDK: a thin gateway over the backend HTTP
// contract plus the client-side reservation lifecycle, payment confirmation
// polling, QR display derivation and voucher filtering.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// APIError is the single failure shape every gateway call collapses into.
// Status is the HTTP status code, or 0 for transport failures and responses
// that could not be decoded.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

func apiStatus(err error) (int, bool) {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Status, true
	}
	return 0, false
}

// IsAuthError reports a 401: credentials are stale and the user must sign in
// again.
func IsAuthError(err error) bool {
	status, ok := apiStatus(err)
	return ok && status == http.StatusUnauthorized
}

// IsForbidden reports a 403.
func IsForbidden(err error) bool {
	status, ok := apiStatus(err)
	return ok && status == http.StatusForbidden
}

// IsNotReady reports a 400, which during payment confirmation polling means
// "not yet confirmed" rather than a real failure.
func IsNotReady(err error) bool {
	status, ok := apiStatus(err)
	return ok && status == http.StatusBadRequest
}

// IsNetworkError reports a transport failure or an undecodable response.
func IsNetworkError(err error) bool {
	status, ok := apiStatus(err)
	return ok && status == 0
}

// Client issues typed requests against the backend. All failures are
// normalized into *APIError; it never retries on its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      *CredentialStore
}

func New(baseURL string, creds *CredentialStore) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		creds:      creds,
	}
}

// Credentials exposes the store backing this client.
func (c *Client) Credentials() *CredentialStore {
	return c.creds
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Status: 0, Message: fmt.Sprintf("encoding request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &APIError{Status: 0, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.creds.Token(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Status: 0, Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: 0, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			// A 401 anywhere means the stored credentials are dead.
			if err := c.creds.Clear(); err != nil {
				log.Printf("Could not clear credentials: %v", err)
			}
		}
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp, data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{Status: 0, Message: fmt.Sprintf("malformed response: %v", err)}
		}
	}
	return nil
}

// errorMessage extracts a human-readable message from an error response.
// Backends behind proxies sometimes answer with HTML error pages; those are
// detected by sniffing rather than trusting the content type alone.
func errorMessage(resp *http.Response, data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") || strings.HasPrefix(trimmed, "<") {
		return fmt.Sprintf("unexpected HTML response from server (status %d)", resp.StatusCode)
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if trimmed != "" {
		return trimmed
	}
	return http.StatusText(resp.StatusCode)
}
