package subscription

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) and writes Format
// as its text name, so one logical Set always encodes to the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	if encMode, err = opts.EncMode(); err != nil {
		panic("subscription: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("subscription: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v with the package's deterministic CBOR mode.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes CBOR produced by Marshal (or any standard encoder).
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// Encode returns the stored form of s: a CBOR array of subscriptions in
// Sorted order. An empty set encodes as an empty array.
func Encode(s Set) ([]byte, error) {
	b, err := encMode.Marshal(s.Sorted())
	if err != nil {
		return nil, fmt.Errorf("subscription: encode: %w", err)
	}
	return b, nil
}

// Decode parses the stored form. Empty input decodes to an empty set.
func Decode(b []byte) (Set, error) {
	if len(b) == 0 {
		return Set{}, nil
	}
	var subs []Subscription
	if err := decMode.Unmarshal(b, &subs); err != nil {
		return nil, fmt.Errorf("subscription: decode: %w", err)
	}
	return NewSet(subs...), nil
}
