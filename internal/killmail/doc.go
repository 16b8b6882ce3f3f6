// Package killmail decodes killstream events and derives the registry
// filters each event matches.
package killmail
