package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/apperror"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 30 * time.Second
)

// Event is one decoded feed message. Seq is the server's distribution
// sequence number, used to request a resync of anything missed while
// disconnected.
type Event struct {
	Kind enum.EventKind
	Type string
	Seq  int64
	Data json.RawMessage
}

// Handler consumes decoded feed events. Events arrive on the feed's reader
// goroutine, one at a time.
type Handler interface {
	HandleEvent(ctx context.Context, evt *Event)
}

// Config carries the feed's connection parameters. Token and LastSeq are
// read at each (re)connect so a renewed session token and the latest
// sequence are always used.
type Config struct {
	URL        string
	Token      func() string
	LastSeq    func() int64
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// envelope is the wire shape of one inbound message.
type envelope struct {
	A    string          `json:"a"`
	Type string          `json:"type,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Feed is a persistent websocket subscription to the server's realtime
// distribution channel. It reconnects on its own with exponential backoff;
// a drop is additionally reported through the OnDrop callback so the
// connectivity state machine can react.
type Feed struct {
	cfg     Config
	handler Handler
	log     zerolog.Logger
	onDrop  func(error)

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
	kick      chan struct{}
}

// NewFeed creates a feed client. Start must be called to connect.
func NewFeed(cfg Config, handler Handler, log zerolog.Logger) *Feed {
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = cfg.Backoff * 30
	}
	return &Feed{
		cfg:     cfg,
		handler: handler,
		log:     log.With().Str("component", "feed").Logger(),
		kick:    make(chan struct{}, 1),
	}
}

// SetOnDrop installs the connection-loss callback.
func (f *Feed) SetOnDrop(fn func(error)) {
	f.onDrop = fn
}

// Connected reports whether the subscription is currently live.
func (f *Feed) Connected() bool {
	return f.connected.Load()
}

// Kick asks a waiting reconnect loop to retry immediately.
func (f *Feed) Kick() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Start runs the connect/read/reconnect loop until ctx is cancelled.
func (f *Feed) Start(ctx context.Context) {
	go f.run(ctx)
}

func (f *Feed) run(ctx context.Context) {
	backoff := f.cfg.Backoff
	for {
		if ctx.Err() != nil {
			return
		}

		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("feed disconnected")
			if f.onDrop != nil {
				f.onDrop(err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-f.kick:
			backoff = f.cfg.Backoff
		case <-time.After(backoff):
			if backoff *= 2; backoff > f.cfg.MaxBackoff {
				backoff = f.cfg.MaxBackoff
			}
		}
	}
}

// connectAndRead dials, requests a resync of everything missed, then reads
// until the connection drops.
func (f *Feed) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	if f.cfg.Token != nil {
		if token := f.cfg.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("feed dial rejected with status %d: %w", resp.StatusCode, err)
		}
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.connected.Store(true)
	f.log.Info().Msg("feed connected")

	defer func() {
		f.connected.Store(false)
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
		conn.Close()
	}()

	if f.cfg.LastSeq != nil {
		if since := f.cfg.LastSeq(); since > 0 {
			resync := map[string]any{"a": "resync", "data": map[string]int64{"since": since}}
			if err := f.write(conn, resync); err != nil {
				return fmt.Errorf("resync request failed: %w", err)
			}
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go f.pingLoop(pingCtx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			f.log.Warn().Err(err).Msg("unparseable feed message")
			continue
		}

		kind, ok := enum.ParseEventKind(env.A)
		if !ok {
			f.log.Debug().Str("a", env.A).Msg("ignoring unknown feed message kind")
			continue
		}

		f.handler.HandleEvent(ctx, &Event{Kind: kind, Type: env.Type, Seq: env.Seq, Data: env.Data})
	}
}

func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			f.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Send writes one JSON message to the feed. Fails with a connection error
// when the subscription is down.
func (f *Feed) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return apperror.NewConnectionError("feed not connected", nil)
	}
	return f.write(f.conn, v)
}

func (f *Feed) write(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
