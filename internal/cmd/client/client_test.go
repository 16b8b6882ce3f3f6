package client

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/server/http/controllers"
	"github.com/rzbill/zkhook/internal/subscription"
)

type recorder struct {
	mu           sync.Mutex
	contentTypes []string
	batches      [][]controllers.Registration
}

func newRegistrationServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/":
			body, _ := io.ReadAll(r.Body)
			batch, err := controllers.DecodeRegistrations(r.Header.Get("Content-Type"), body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			rec.mu.Lock()
			rec.contentTypes = append(rec.contentTypes, r.Header.Get("Content-Type"))
			rec.batches = append(rec.batches, batch)
			rec.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/filters":
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("kind") == "ship" {
				_, _ = w.Write([]byte(`{"filters":[{"key":"ship:587:attacker","subscribers":2}],"total":2}`))
				return
			}
			_, _ = w.Write([]byte(`{"filters":[{"key":"all","subscribers":1},{"key":"ship:587:attacker","subscribers":2}],"total":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegisterSendsCBOR(t *testing.T) {
	rec := &recorder{}
	srv := newRegistrationServer(t, rec)

	cmd := NewRoot(func() string { return srv.URL })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"register",
		"--url", "https://hook/a",
		"--filter", "system:30000142",
		"--filter", "character:7:victim",
		"--filter", "system:30000142",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v (%s)", err, out.String())
	}

	if len(rec.batches) != 1 || rec.contentTypes[0] != "application/cbor" {
		t.Fatalf("requests: %v", rec.contentTypes)
	}
	batch := rec.batches[0]
	if len(batch) != 2 {
		t.Fatalf("duplicate filters should collapse: %+v", batch)
	}
	if batch[0].Filter != filter.System(30000142) || batch[1].Filter != filter.Character(7, filter.Victim) {
		t.Fatalf("filters: %+v", batch)
	}
	want := subscription.Subscription{WebhookURL: "https://hook/a", Format: subscription.Discord}
	if len(batch[0].Subscriptions) != 1 || batch[0].Subscriptions[0] != want {
		t.Fatalf("subscriptions: %+v", batch[0].Subscriptions)
	}
	if !strings.Contains(out.String(), "registered 1 webhook(s) for 2 filter(s)") {
		t.Fatalf("output: %s", out.String())
	}
}

func TestRegisterJSONWithServerFlag(t *testing.T) {
	rec := &recorder{}
	srv := newRegistrationServer(t, rec)

	cmd := NewRoot(func() string { return "http://unused.invalid" })
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"register", "--server", srv.URL, "--json", "--format", "raw", "--url", "https://hook/b", "--filter", "all"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rec.contentTypes[0] != "application/json" {
		t.Fatalf("content type: %s", rec.contentTypes[0])
	}
	if rec.batches[0][0].Subscriptions[0].Format != subscription.Raw {
		t.Fatalf("format not sent")
	}
}

func TestRegisterValidatesLocally(t *testing.T) {
	cases := [][]string{
		{"register", "--filter", "all"},
		{"register", "--url", "https://x"},
		{"register", "--url", "https://x", "--filter", "moon:1"},
		{"register", "--url", "ftp://x", "--filter", "all"},
		{"register", "--url", "https://x", "--filter", "all", "--format", "slack"},
	}
	for _, args := range cases {
		cmd := NewRoot(func() string { return "http://127.0.0.1:1" })
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestRegisterSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cmd := NewRoot(func() string { return srv.URL })
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"register", "--url", "https://x", "--filter", "all"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "500 Internal Server Error") {
		t.Fatalf("error: %v", err)
	}
}

func TestFiltersCommand(t *testing.T) {
	srv := newRegistrationServer(t, &recorder{})

	cmd := NewRoot(func() string { return srv.URL })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"filters"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "ship:587:attacker") || !strings.Contains(out.String(), "all") {
		t.Fatalf("output: %s", out.String())
	}

	out.Reset()
	cmd = NewRoot(func() string { return srv.URL })
	cmd.SetOut(out)
	cmd.SetArgs([]string{"filters", "--kind", "ship", "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out.String(), `"all"`) || !strings.Contains(out.String(), `"subscribers": 2`) {
		t.Fatalf("json output: %s", out.String())
	}
}

func TestBaseURLFromEnv(t *testing.T) {
	t.Setenv("ZKHOOK_SERVER", "http://example:9000")
	if got := BaseURLFromEnv(); got != "http://example:9000" {
		t.Fatalf("got %s", got)
	}
	t.Setenv("ZKHOOK_SERVER", "")
	if got := BaseURLFromEnv(); got != "http://127.0.0.1:3000" {
		t.Fatalf("default: %s", got)
	}
}
