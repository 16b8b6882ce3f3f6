package client

import (
	"io"
	"os"

	"github.com/goccy/go-json"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// BaseURLFromEnv returns ZKHOOK_SERVER or the local default.
func BaseURLFromEnv() string {
	if v := os.Getenv("ZKHOOK_SERVER"); v != "" {
		return v
	}
	return "http://127.0.0.1:3000"
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
