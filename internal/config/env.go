package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays PORT and ZKHOOK_* environment variables onto cfg.
// ZKHOOK_PORT wins over PORT when both are set.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("ZKHOOK_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("ZKHOOK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ZKHOOK_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("ZKHOOK_STREAM_URL"); v != "" {
		cfg.Stream.URL = v
	}
	if v := os.Getenv("ZKHOOK_STREAM_CHANNEL"); v != "" {
		cfg.Stream.Channel = v
	}
	if v := os.Getenv("ZKHOOK_STREAM_READ_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.Stream.ReadTimeout = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
	if v := os.Getenv("ZKHOOK_DELIVERY_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.Delivery.Timeout = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
	if v := os.Getenv("ZKHOOK_DELIVERY_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Delivery.MaxConcurrent = n
		}
	}
	if v := os.Getenv("ZKHOOK_RECONNECT_TYPE"); v != "" {
		cfg.Reconnect.Type = v
	}
	if v := os.Getenv("ZKHOOK_RECONNECT_BASE_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			cfg.Reconnect.Base = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
	if v := os.Getenv("ZKHOOK_RECONNECT_CAP_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			cfg.Reconnect.Cap = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
	if v := os.Getenv("ZKHOOK_RECONNECT_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Reconnect.Factor = f
		}
	}
	if v := os.Getenv("ZKHOOK_TAG_VICTIM_ROLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TagVictimRole = b
		}
	}
	if v := os.Getenv("ZKHOOK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ZKHOOK_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
