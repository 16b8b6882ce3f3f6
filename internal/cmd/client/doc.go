// Package client provides the zkhook command-line client.
//
// The commands talk to a running zkhook server's registration API.
//
// # Address configuration
//
// The server base URL comes from --server, then the embedding application's
// BaseURLFunc. The standalone binary reads ZKHOOK_SERVER and defaults to
// http://127.0.0.1:3000.
//
// Usage
//
//	zkhook register --url https://discord.com/api/webhooks/ID/TOKEN --filter system:30000142
//	zkhook register --url https://example.com/hook --format raw \
//	    --filter character:93265215:victim --filter alliance:99005338
//	zkhook register --json ...   # send JSON instead of CBOR
//
//	zkhook filters
//	zkhook filters --kind ship --json
//
// Filters are written kind[:id[:role]]; role is attacker (default) or victim
// and applies to character, corporation, alliance and ship.
package client
