package present

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"emovox/internal/emotion"
)

const (
	busFrom      = "emovox"
	busTo        = "avatar"
	writeTimeout = 5 * time.Second
)

// BusMessage is the JSON frame sent to the avatar renderer.
type BusMessage struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Kind        Kind            `json:"kind"`
	ID          string          `json:"id"`
	Content     string          `json:"content"`
	Emotion     *int            `json:"emotion,omitempty"`
	EmotionName string          `json:"emotion_name,omitempty"`
	Vector      *emotion.Vector `json:"vector,omitempty"`
}

func newBusMessage(ev Event) BusMessage {
	m := BusMessage{
		From:    busFrom,
		To:      busTo,
		Kind:    ev.Kind,
		ID:      ev.ID,
		Content: ev.Text,
	}
	if ev.Kind == KindReply {
		idx := int(ev.Emotion)
		m.Emotion = &idx
		m.EmotionName = ev.Emotion.String()
		m.Vector = ev.Vector
	}
	return m
}

// Bus publishes events over a websocket. It dials lazily and redials once
// after a failed write, so the avatar renderer may start after the assistant.
type Bus struct {
	url    string
	dialer *websocket.Dialer
	log    *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewBus(url string, logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		url:    url,
		dialer: websocket.DefaultDialer,
		log:    logger.With("component", "bus"),
	}
}

func (b *Bus) Present(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(newBusMessage(ev))
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.write(ctx, payload)
	if err == nil {
		return nil
	}

	b.log.Debug("Bus write failed, redialing", "err", err)
	b.drop()
	return b.write(ctx, payload)
}

func (b *Bus) write(ctx context.Context, payload []byte) error {
	if b.conn == nil {
		conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
		if err != nil {
			return fmt.Errorf("bus dial %s: %w", b.url, err)
		}
		b.log.Info("Connected to bus", "url", b.url)
		b.conn = conn
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	b.conn.SetWriteDeadline(deadline)

	return b.conn.WriteMessage(websocket.TextMessage, payload)
}

func (b *Bus) drop() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Close sends a close frame and releases the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := b.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	b.drop()
	return err
}
