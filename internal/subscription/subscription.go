package subscription

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Format selects the outbound payload shape.
type Format uint8

const (
	// Raw posts the full killmail JSON.
	Raw Format = iota
	// Discord posts {"content": <killmail url>}.
	Discord
)

func (f Format) String() string {
	switch f {
	case Raw:
		return "raw"
	case Discord:
		return "discord"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat accepts "raw" or "discord".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "raw":
		return Raw, nil
	case "discord":
		return Discord, nil
	default:
		return 0, fmt.Errorf("subscription: unknown format %q", s)
	}
}

func (f Format) MarshalText() ([]byte, error) {
	if f != Raw && f != Discord {
		return nil, fmt.Errorf("subscription: unknown format %d", uint8(f))
	}
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

var ErrEmptyWebhook = errors.New("subscription: empty webhook url")

// Subscription is one registered delivery target. Identity is structural.
type Subscription struct {
	WebhookURL string `json:"webhook_url" cbor:"webhook_url"`
	Format     Format `json:"format" cbor:"format"`
}

// Validate rejects an empty or non-http(s) URL and unknown formats.
func (s Subscription) Validate() error {
	if strings.TrimSpace(s.WebhookURL) == "" {
		return ErrEmptyWebhook
	}
	u, err := url.Parse(s.WebhookURL)
	if err != nil {
		return fmt.Errorf("subscription: bad webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("subscription: webhook url must be http(s), got %q", u.Scheme)
	}
	if s.Format != Raw && s.Format != Discord {
		return fmt.Errorf("subscription: unknown format %d", uint8(s.Format))
	}
	return nil
}

// Set is an unordered set of subscriptions. The zero value and nil are empty sets.
type Set map[Subscription]struct{}

// NewSet returns a set holding subs.
func NewSet(subs ...Subscription) Set {
	s := make(Set, len(subs))
	for _, sub := range subs {
		s[sub] = struct{}{}
	}
	return s
}

func (s Set) Add(sub Subscription) { s[sub] = struct{}{} }
func (s Set) Len() int             { return len(s) }

func (s Set) Has(sub Subscription) bool {
	_, ok := s[sub]
	return ok
}

// Union returns a new set with members of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for sub := range s {
		out[sub] = struct{}{}
	}
	for sub := range other {
		out[sub] = struct{}{}
	}
	return out
}

// Difference returns a new set with the members of s not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for sub := range s {
		if _, ok := other[sub]; !ok {
			out[sub] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for sub := range s {
		if _, ok := other[sub]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members ordered by URL, then format.
func (s Set) Sorted() []Subscription {
	out := make([]Subscription, 0, len(s))
	for sub := range s {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WebhookURL != out[j].WebhookURL {
			return out[i].WebhookURL < out[j].WebhookURL
		}
		return out[i].Format < out[j].Format
	})
	return out
}
