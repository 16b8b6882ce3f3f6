// Package serverrun exposes the Run entrypoint used by the CLI to start a
// zkhook instance: the Pebble-backed registry, the killstream session, the
// fan-out engine and the registration API, with ordered shutdown.
//
// Example:
//
//	cfg := config.Default()
//	config.FromEnv(&cfg)
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg})
package serverrun
