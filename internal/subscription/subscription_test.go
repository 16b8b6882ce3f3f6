package subscription

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

var (
	hookA = Subscription{WebhookURL: "https://hook/a", Format: Discord}
	hookB = Subscription{WebhookURL: "https://hook/b", Format: Raw}
	hookC = Subscription{WebhookURL: "https://hook/a", Format: Raw}
)

func TestSetIdempotentAdd(t *testing.T) {
	s := NewSet(hookA)
	s.Add(hookA)
	if s.Len() != 1 {
		t.Fatalf("want 1 member, got %d", s.Len())
	}
	// same url, different format is a different subscription
	s.Add(hookC)
	if s.Len() != 2 {
		t.Fatalf("want 2 members, got %d", s.Len())
	}
}

func TestUnionDifference(t *testing.T) {
	a := NewSet(hookA, hookB)
	b := NewSet(hookB, hookC)

	u := a.Union(b)
	if !u.Equal(NewSet(hookA, hookB, hookC)) {
		t.Fatalf("union: %v", u.Sorted())
	}
	d := a.Difference(b)
	if !d.Equal(NewSet(hookA)) {
		t.Fatalf("difference: %v", d.Sorted())
	}
	// inputs untouched
	if a.Len() != 2 || b.Len() != 2 {
		t.Fatalf("inputs mutated")
	}
	if !NewSet(hookA).Difference(NewSet(hookB)).Equal(NewSet(hookA)) {
		t.Fatalf("removing an absent member must be a no-op")
	}
	var empty Set
	if empty.Union(nil).Len() != 0 || empty.Difference(a).Len() != 0 {
		t.Fatalf("nil sets should behave as empty")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	sets := []Set{
		nil,
		NewSet(),
		NewSet(hookA),
		NewSet(hookA, hookB, hookC),
	}
	for _, s := range sets {
		b, err := Encode(s)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !got.Equal(s) {
			t.Fatalf("round trip: got %v want %v", got.Sorted(), s.Sorted())
		}
	}
}

func TestCodecDeterministic(t *testing.T) {
	first, _ := Encode(NewSet(hookC, hookB, hookA))
	for i := 0; i < 20; i++ {
		b, _ := Encode(NewSet(hookA, hookB, hookC))
		if !bytes.Equal(first, b) {
			t.Fatalf("encoding not deterministic")
		}
	}
	if !bytes.Contains(first, []byte("discord")) {
		t.Fatalf("format should be encoded as text: %x", first)
	}
}

func TestDecodeEmptyAndGarbage(t *testing.T) {
	s, err := Decode(nil)
	if err != nil || s.Len() != 0 {
		t.Fatalf("empty input: %v %v", s, err)
	}
	if _, err := Decode([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected error on garbage")
	}
}

func TestValidate(t *testing.T) {
	if err := hookA.Validate(); err != nil {
		t.Fatalf("valid: %v", err)
	}
	if err := (Subscription{Format: Raw}).Validate(); !errors.Is(err, ErrEmptyWebhook) {
		t.Fatalf("empty url: %v", err)
	}
	if err := (Subscription{WebhookURL: "ftp://x"}).Validate(); err == nil {
		t.Fatalf("non-http scheme should fail")
	}
	if err := (Subscription{WebhookURL: "https://x", Format: 7}).Validate(); err == nil {
		t.Fatalf("unknown format should fail")
	}
}

func TestFormatJSON(t *testing.T) {
	b, err := json.Marshal(hookA)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"webhook_url":"https://hook/a","format":"discord"}` {
		t.Fatalf("json: %s", b)
	}
	var s Subscription
	if err := json.Unmarshal([]byte(`{"webhook_url":"https://x","format":"Raw"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Format != Raw {
		t.Fatalf("format: %v", s.Format)
	}
}
