// Package filter defines the Filter sum type that keys the webhook registry
// and its canonical byte encoding.
//
// A Filter is one of: All, System(id), or an entity involvement
// Character/Corporation/Alliance/Ship(id, role). Keys are laid out as
// "wh/" + kind byte + fixed big-endian payload, so equal filters always map to
// the same Pebble key and keys of one kind sort together.
//
//	key, _ := filter.EncodeKey(filter.System(30000142))
//	f, _ := filter.DecodeKey(key) // f == filter.System(30000142)
package filter
