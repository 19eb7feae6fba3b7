// Package bus connects the assistant to a websocket hub shared with other
// shards. Commands addressed to this shard are dispatched and answered.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	KindCommand = "command"
	KindReply   = "reply"
	KindError   = "error"

	// Broadcast is the recipient every shard accepts.
	Broadcast = "ALL"
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Handler runs a command and returns the reply text.
type Handler func(ctx context.Context, text string) (string, error)

type Config struct {
	URL    string
	Shard  string
	Reconn time.Duration
}

type Bus struct {
	url    string
	shard  string
	reconn time.Duration
	dialer *ws.Dialer

	mu   sync.Mutex
	conn *ws.Conn
}

func New(cfg Config) *Bus {
	if cfg.Reconn <= 0 {
		cfg.Reconn = 3 * time.Second
	}
	return &Bus{
		url:    cfg.URL,
		shard:  cfg.Shard,
		reconn: cfg.Reconn,
		dialer: ws.DefaultDialer,
	}
}

func (b *Bus) dial(ctx context.Context) error {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	log.Info("Connected to bus", "url", b.url, "shard", b.shard)
	return nil
}

func (b *Bus) Write(m Message) error {
	m.From = b.shard
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return errors.New("bus not connected")
	}
	return b.conn.WriteMessage(ws.TextMessage, data)
}

func (b *Bus) accepts(m Message) bool {
	return m.Kind == KindCommand && (m.To == b.shard || m.To == Broadcast)
}

// Run keeps the connection alive until ctx is done, reconnecting after a
// fixed delay whenever the hub goes away.
func (b *Bus) Run(ctx context.Context, handler Handler) error {
	for {
		if err := b.dial(ctx); err != nil {
			log.Warn("Bus dial failed", "url", b.url, "err", err)
		} else {
			b.serve(ctx, handler)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.reconn):
			log.Info("Trying to reconnect", "url", b.url)
		}
	}
}

func (b *Bus) serve(ctx context.Context, handler Handler) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()
	defer func() {
		b.mu.Lock()
		b.conn = nil
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				if isClosed(err) {
					log.Warn("Bus connection closed", "err", err)
				} else {
					log.Error("Bus read failed", "err", err)
				}
			}
			return
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Warn("Failed to parse bus message", "msg", string(data), "err", err)
			continue
		}
		if !b.accepts(m) {
			continue
		}

		// Replies go out in arrival order; the agent serializes anyway.
		b.reply(ctx, handler, m)
	}
}

func (b *Bus) reply(ctx context.Context, handler Handler, m Message) {
	log.Info("Bus command", "from", m.From, "content", m.Content)

	resp := Message{To: m.From, Kind: KindReply}
	out, err := handler(ctx, m.Content)
	if err != nil {
		resp.Kind = KindError
		resp.Content = fmt.Sprintf("%v", err)
	} else {
		resp.Content = out
	}

	if err := b.Write(resp); err != nil {
		log.Error("Failed to send bus reply", "to", m.From, "err", err)
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
