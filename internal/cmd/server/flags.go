package serverrun

import (
	"os"
	"time"

	"github.com/spf13/pflag"

	cfgpkg "github.com/rzbill/zkhook/internal/config"
)

// AddFlags registers the `server start` flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", os.Getenv("ZKHOOK_CONFIG"), "Path to a JSON or YAML config file")
	fs.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	fs.Int("port", 3000, "Registration API port")
	fs.String("fsync", "interval", "Fsync mode: always|interval|never")
	fs.Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	fs.String("stream-url", "", "Killstream websocket URL")
	fs.Int("max-concurrent", 64, "Maximum in-flight webhook deliveries")
	fs.String("reconnect-type", "", "Stream reconnect backoff: none|fixed|exp|exp-jitter")
	fs.Bool("tag-victim-role", false, "Tag filters derived from the victim with the victim role")
	fs.String("log-level", "", "Log level: debug|info|warn|error")
	fs.String("log-format", "", "Log format: text|json")
}

// OptionsFromFlags loads the config file named by --config, overlays the
// environment and then every flag the user set explicitly.
func OptionsFromFlags(fs *pflag.FlagSet) (Options, error) {
	path, _ := fs.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return Options{}, err
	}
	cfgpkg.FromEnv(&cfg)

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir, _ = fs.GetString(f.Name)
		case "port":
			cfg.Port, _ = fs.GetInt(f.Name)
		case "fsync":
			cfg.Fsync, _ = fs.GetString(f.Name)
		case "stream-url":
			cfg.Stream.URL, _ = fs.GetString(f.Name)
		case "max-concurrent":
			cfg.Delivery.MaxConcurrent, _ = fs.GetInt(f.Name)
		case "reconnect-type":
			cfg.Reconnect.Type, _ = fs.GetString(f.Name)
		case "tag-victim-role":
			cfg.TagVictimRole, _ = fs.GetBool(f.Name)
		case "log-level":
			cfg.Log.Level, _ = fs.GetString(f.Name)
		case "log-format":
			cfg.Log.Format, _ = fs.GetString(f.Name)
		}
	})

	ms, _ := fs.GetInt("fsync-interval-ms")
	return Options{Config: cfg, FsyncInterval: time.Duration(ms) * time.Millisecond}, nil
}
