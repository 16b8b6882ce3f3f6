// Package pebblestore wraps Pebble with an fsync policy, batches, snapshot
// prefix scans and a small metrics hook. The registry keeps its filter keys
// here.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set(key, value, nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
//
//	_ = db.ScanPrefix(ctx, filter.Prefix(), func(k, v []byte) error { return nil })
package pebblestore
