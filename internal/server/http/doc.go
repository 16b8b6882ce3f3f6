// Package httpserver serves the webhook registration API.
//
//	POST /            register a batch of {filter, subscriptions} (CBOR or JSON); 204 on success
//	GET  /healthz     store health
//	GET  /v1/filters  stored filters with subscriber counts
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data/store", Fsync: pebblestore.FsyncModeInterval})
//	s := httpserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":3000")
package httpserver
