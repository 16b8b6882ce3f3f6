package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/rzbill/zkhook/internal/killmail"
	"github.com/rzbill/zkhook/internal/subscription"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "zkhook"
	// maxDrainBytes caps how much of a response body is read before close.
	maxDrainBytes = 64 << 10
)

// HTTPDoer is the part of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	// HTTP overrides the transport. Defaults to a fresh *http.Client.
	HTTP HTTPDoer
	// Timeout bounds one delivery including reading the response status.
	Timeout   time.Duration
	UserAgent string
}

// Client posts killmails to webhook subscribers.
type Client struct {
	http      HTTPDoer
	timeout   time.Duration
	userAgent string
}

// New returns a Client with defaults applied.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}
	return &Client{http: opts.HTTP, timeout: opts.Timeout, userAgent: opts.UserAgent}
}

// Failure is a delivery that did not get a 2xx response. Error never
// includes URL: webhook URLs carry credentials and callers log them redacted.
type Failure struct {
	URL string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("delivery: status %d", f.StatusCode)
	}
	return fmt.Sprintf("delivery: %v", f.Err)
}

// withoutURL drops the request URL that net/http and net/url quote into
// their errors.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func (f *Failure) Unwrap() error { return f.Err }

type discordBody struct {
	Content string `json:"content"`
}

// Body renders the request body for sub's format.
func Body(sub subscription.Subscription, km *killmail.Killmail) ([]byte, error) {
	switch sub.Format {
	case subscription.Discord:
		return json.Marshal(discordBody{Content: km.Zkb.URL})
	case subscription.Raw:
		return km.JSON()
	default:
		return nil, fmt.Errorf("delivery: unknown format %s", sub.Format)
	}
}

// Deliver posts km to sub once. Any transport error, timeout or non-2xx
// status is returned as *Failure.
func (c *Client) Deliver(ctx context.Context, sub subscription.Subscription, km *killmail.Killmail) error {
	body, err := Body(sub, km)
	if err != nil {
		return &Failure{URL: sub.WebhookURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return &Failure{URL: sub.WebhookURL, Err: withoutURL(err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return &Failure{URL: sub.WebhookURL, Err: withoutURL(err)}
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxDrainBytes))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &Failure{URL: sub.WebhookURL, StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected status %s", res.Status)}
	}
	return nil
}
