// Package serverrun exposes a shared Run entrypoint used by the CLI to
// start the Grace runtime with its HTTP server, handling lifecycle,
// signals, and shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
