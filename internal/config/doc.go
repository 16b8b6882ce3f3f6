// Package config provides loading and environment overlay for zkhook
// runtime configuration. It exposes a Default() baseline, file loading
// (JSON, or YAML by extension) and an environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/zkhook.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg) // PORT, ZKHOOK_*
//	if err := cfg.Validate(); err != nil { /* fatal */ }
package config
