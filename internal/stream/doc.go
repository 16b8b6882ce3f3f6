// Package stream maintains the WebSocket subscription to zKillboard's
// killstream and hands decoded killmails to a Handler.
//
// A Session moves Disconnected -> Connecting -> Subscribed and back to
// Disconnected when the connection drops, then reconnects after a bounded
// exponential backoff. Undecodable messages are logged and skipped without
// dropping the connection.
package stream
