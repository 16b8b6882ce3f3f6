package serverrun

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	cfgpkg "github.com/rzbill/zkhook/internal/config"
	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/runtime"
	pebblestore "github.com/rzbill/zkhook/internal/storage/pebble"
	"github.com/rzbill/zkhook/internal/subscription"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

func quietLogger() logpkg.Logger {
	return logpkg.NewNopLogger()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Fsync = "sometimes"
	if err := Run(context.Background(), Options{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestBuildLoggerFallsBack(t *testing.T) {
	l := buildLogger(logpkg.Config{Level: "debug", Format: "xml", Outputs: []logpkg.OutputConfig{{Type: "null"}}})
	if l == nil {
		t.Fatalf("nil logger")
	}
	if l.GetLevel() != logpkg.DebugLevel {
		t.Fatalf("fallback level: %v", l.GetLevel())
	}
}

// Seeds a registration, serves one killmail over a local websocket and
// checks the webhook receives it, then that registration over HTTP works
// while running.
func TestRunEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	var (
		mu   sync.Mutex
		hits []string
	)
	got := make(chan struct{}, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		hits = append(hits, string(b))
		mu.Unlock()
		select {
		case got <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	rt, err := runtime.Open(runtime.Options{DataDir: filepath.Join(dataDir, "store"), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("seed open: %v", err)
	}
	sub := subscription.Subscription{WebhookURL: hook.URL, Format: subscription.Discord}
	if err := rt.Registry().MergeAdd(ctx, filter.System(30000142), subscription.NewSet(sub)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = rt.Close()

	hold := make(chan struct{})
	up := websocket.Upgrader{}
	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"killmail_id":5,"solar_system_id":30000142,"victim":{"corporation_id":1,"ship_type_id":2},"attackers":[],"zkb":{"url":"https://zkillboard.com/kill/5/"}}`))
		select {
		case <-hold:
		case <-r.Context().Done():
		}
	}))
	defer ws.Close()
	defer close(hold)

	cfg := cfgpkg.Default()
	cfg.DataDir = dataDir
	cfg.Fsync = "always"
	cfg.Stream.URL = "ws" + strings.TrimPrefix(ws.URL, "http")
	addr := freeAddr(t)

	runCtx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- Run(runCtx, Options{Config: cfg, HTTPAddr: addr, Logger: quietLogger()}) }()

	select {
	case <-got:
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatalf("webhook never called")
	}

	// registration endpoint is live
	deadline := time.Now().Add(5 * time.Second)
	for {
		res, err := http.Post("http://"+addr+"/", "application/json",
			strings.NewReader(`[{"filter":{"type":"all"},"subscriptions":[{"webhook_url":"https://hook/new","format":"raw"}]}]`))
		if err == nil {
			res.Body.Close()
			if res.StatusCode != http.StatusNoContent {
				t.Fatalf("register status: %d", res.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("registration API not reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(hits) != 1 || hits[0] != `{"content":"https://zkillboard.com/kill/5/"}` {
		t.Fatalf("webhook hits: %q", hits)
	}
}
