// Package log provides zkhook's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records flow through log/slog via a
// bridge handler into a Formatter (text or JSON) and one or more Outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("fanout"))
//	l.Warn("delivery failed", log.Str("webhook", url), log.Err(err))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config: level, text or JSON
// format, console/file/null outputs, key redaction and per-message sampling.
// Sampling is useful when a large prune emits one warning per failed webhook.
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by Pebble and
// net/http) through a Logger. ToStdLogger returns a *log.Logger for APIs such
// as http.Server.ErrorLog.
package log
