// Package runtime opens the Pebble store for a zkhook instance and builds the
// subscription registry on top of it.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data/store", Fsync: pebblestore.FsyncModeInterval})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	_ = rt.Registry().MergeAdd(ctx, filter.System(30000142), subs)
package runtime
