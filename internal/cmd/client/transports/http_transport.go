// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rzbill/zkhook/internal/subscription"
)

// Encoding selects the registration body codec.
type Encoding int

const (
	EncodingCBOR Encoding = iota
	EncodingJSON
)

// HTTPTransport implements RegistrationTransport against the registration API.
type HTTPTransport struct {
	baseURL  string
	client   *http.Client
	encoding Encoding
}

// NewHTTPTransport constructs an HTTPTransport for baseURL.
func NewHTTPTransport(baseURL string, enc Encoding) *HTTPTransport {
	return &HTTPTransport{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		encoding: enc,
	}
}

// Register posts batch and expects 204.
func (t *HTTPTransport) Register(ctx context.Context, batch []Registration) error {
	var (
		body []byte
		ct   string
		err  error
	)
	switch t.encoding {
	case EncodingJSON:
		body, err = json.Marshal(batch)
		ct = "application/json"
	default:
		body, err = subscription.Marshal(batch)
		ct = "application/cbor"
	}
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ct)
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return statusError(res)
	}
	return nil
}

// ListFilters fetches the filter listing, optionally narrowed to one kind.
func (t *HTTPTransport) ListFilters(ctx context.Context, kind string) ([]FilterCount, error) {
	u := t.baseURL + "/v1/filters"
	if kind != "" {
		u += "?kind=" + url.QueryEscape(kind)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, statusError(res)
	}
	var out struct {
		Filters []FilterCount `json:"filters"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return out.Filters, nil
}

// statusError reports a non-success reply. Registration errors carry no
// body, so the status is all there is to show.
func statusError(res *http.Response) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	return fmt.Errorf("server returned %s", res.Status)
}
