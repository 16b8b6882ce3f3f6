// Package registry is the persistent Filter to Subscription Set table.
//
// Every filter is one Pebble key under the "wh/" prefix whose value is the
// deterministic CBOR encoding of its subscriber set. MergeAdd and Prune are
// read-modify-write operations: the key's stripe lock is held while the
// current value is re-read, the change applied and a one-key batch committed,
// so concurrent updates of the same filter never lose a write. A set that
// becomes empty deletes its key.
package registry
