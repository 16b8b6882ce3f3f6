package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Keyspace helpers for the webhooks table.
//
// Layout (byte-wise, lexicographically sortable):
// - wh/{kind_u8}                          all
// - wh/{kind_u8}{id_be8}                  system
// - wh/{kind_u8}{id_be8}{role_u8}         character, corporation, alliance, ship

var tablePrefix = []byte("wh/")

// ErrInvalidKey is returned by DecodeKey for bytes that are not a filter key.
var ErrInvalidKey = errors.New("filter: invalid key")

// Prefix returns the key prefix shared by every filter key. Callers must not modify it.
func Prefix() []byte { return tablePrefix }

// KindPrefix returns the prefix shared by all keys of one kind.
func KindPrefix(k Kind) []byte {
	p := make([]byte, 0, len(tablePrefix)+1)
	p = append(p, tablePrefix...)
	return append(p, byte(k))
}

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// EncodeKey returns the canonical storage key for f. Equal filters always
// produce identical bytes.
func EncodeKey(f Filter) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f = f.Canonical()
	k := make([]byte, 0, len(tablePrefix)+10)
	k = append(k, tablePrefix...)
	k = append(k, byte(f.Kind))
	if f.Kind.HasID() {
		k = appendBE8(k, f.ID)
	}
	if f.Kind.HasRole() {
		k = append(k, byte(f.Role))
	}
	return k, nil
}

// DecodeKey parses a key produced by EncodeKey.
func DecodeKey(key []byte) (Filter, error) {
	if !bytes.HasPrefix(key, tablePrefix) || len(key) < len(tablePrefix)+1 {
		return Filter{}, fmt.Errorf("%w: %x", ErrInvalidKey, key)
	}
	rest := key[len(tablePrefix):]
	f := Filter{Kind: Kind(rest[0])}
	if !f.Kind.valid() {
		return Filter{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidKey, rest[0])
	}
	rest = rest[1:]

	want := 0
	if f.Kind.HasID() {
		want += 8
	}
	if f.Kind.HasRole() {
		want++
	}
	if len(rest) != want {
		return Filter{}, fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrInvalidKey, f.Kind, len(rest), want)
	}
	if f.Kind.HasID() {
		f.ID = binary.BigEndian.Uint64(rest[:8])
		rest = rest[8:]
	}
	if f.Kind.HasRole() {
		f.Role = Role(rest[0])
		if !f.Role.valid() {
			return Filter{}, fmt.Errorf("%w: unknown role %d", ErrInvalidKey, rest[0])
		}
	}
	return f, nil
}
