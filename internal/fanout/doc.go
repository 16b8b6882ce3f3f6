// Package fanout delivers each killmail to the subscribers of every filter it
// matches, concurrently per filter, and prunes subscribers whose delivery
// failed.
package fanout
