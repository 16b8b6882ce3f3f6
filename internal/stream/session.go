package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/rzbill/zkhook/internal/backoff"
	"github.com/rzbill/zkhook/internal/killmail"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

const (
	DefaultURL         = "wss://zkillboard.com/websocket/"
	DefaultChannel     = "killstream"
	defaultReadTimeout = 2 * time.Minute
	writeWait          = 10 * time.Second
)

// State is the connection state of a Session.
type State int32

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler receives every decoded killmail. Dispatch must not block the read
// loop for long.
type Handler interface {
	Dispatch(ctx context.Context, km *killmail.Killmail)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, km *killmail.Killmail)

func (f HandlerFunc) Dispatch(ctx context.Context, km *killmail.Killmail) { f(ctx, km) }

// Options configures a Session.
type Options struct {
	URL     string
	Channel string
	// ReadTimeout closes a session that receives no frame for this long.
	ReadTimeout time.Duration
	Backoff     backoff.Policy
	Dialer      *websocket.Dialer
	Logger      logpkg.Logger
}

// Session keeps one subscription to the killstream alive for the life of Run.
type Session struct {
	url         string
	channel     string
	readTimeout time.Duration
	backoff     backoff.Policy
	dialer      *websocket.Dialer
	handler     Handler
	logger      logpkg.Logger

	state    atomic.Int32
	sessions atomic.Uint64
	messages atomic.Uint64
	rejected atomic.Uint64
}

// New returns a Session that hands killmails to h.
func New(opts Options, h Handler) *Session {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.Backoff.Base <= 0 && opts.Backoff.Type == "" {
		opts.Backoff = backoff.Default()
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	return &Session{
		url:         opts.URL,
		channel:     opts.Channel,
		readTimeout: opts.ReadTimeout,
		backoff:     opts.Backoff,
		dialer:      opts.Dialer,
		handler:     h,
		logger:      opts.Logger,
	}
}

// State returns the current connection state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	if prev := State(s.state.Swap(int32(st))); prev != st {
		s.logger.Debug("stream state changed", logpkg.Str("from", prev.String()), logpkg.Str("to", st.String()))
	}
}

// Stats reports counters since the Session was created.
type Stats struct {
	Sessions uint64 `json:"sessions"`
	Messages uint64 `json:"messages"`
	Rejected uint64 `json:"rejected"`
	State    string `json:"state"`
}

func (s *Session) Stats() Stats {
	return Stats{
		Sessions: s.sessions.Load(),
		Messages: s.messages.Load(),
		Rejected: s.rejected.Load(),
		State:    s.State().String(),
	}
}

type subscribeMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// Run connects, subscribes and reads until ctx is cancelled, reconnecting
// with bounded exponential backoff whenever a session ends. The backoff
// resets once a session has delivered at least one message. Run returns
// ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(Disconnected)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		received, err := s.runOnce(ctx)
		s.setState(Disconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received > 0 {
			attempt = 0
		}
		attempt++

		delay := s.backoff.Delay(attempt)
		s.logger.Warn("stream session ended; reconnecting",
			logpkg.Int("attempt", attempt),
			logpkg.Int("received", received),
			logpkg.Dur("delay", delay),
			logpkg.Err(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// runOnce runs a single connection and returns how many killmails it handed
// to the handler.
func (s *Session) runOnce(ctx context.Context) (int, error) {
	s.setState(Connecting)
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("stream: dial %s: %w", s.url, err)
	}
	defer conn.Close()
	s.sessions.Add(1)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = conn.Close()
		case <-done:
		}
	}()

	sub, err := json.Marshal(subscribeMessage{Action: "sub", Channel: s.channel})
	if err != nil {
		return 0, err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return 0, fmt.Errorf("stream: subscribe: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})
	s.setState(Subscribed)
	s.logger.Info("subscribed to killstream", logpkg.Str("url", s.url), logpkg.Str("channel", s.channel))

	refresh := func() { _ = conn.SetReadDeadline(time.Now().Add(s.readTimeout)) }
	refresh()
	conn.SetPingHandler(func(appData string) error {
		refresh()
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		refresh()
		return nil
	})

	received := 0
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		refresh()
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		km, err := killmail.Decode(data)
		if err != nil {
			s.rejected.Add(1)
			var de *killmail.DecodeError
			if errors.As(err, &de) && de.Field == "killmail_id" {
				// status frames such as tqStatus share the socket
				s.logger.Debug("ignoring non-killmail message", logpkg.Int("bytes", len(data)))
			} else {
				s.logger.Warn("dropping undecodable message", logpkg.Err(err), logpkg.Int("bytes", len(data)))
			}
			continue
		}
		s.messages.Add(1)
		received++
		s.handler.Dispatch(ctx, km)
	}
}
