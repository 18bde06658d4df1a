package control

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Alia5/viistream/input"
	"github.com/Alia5/viistream/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// Message types exchanged over the websocket.
const (
	TypeOpenOverlay = "open_overlay"
	TypeInterrupted = "interrupted"
	TypeButton      = "button"
	TypeAxis        = "axis"
	TypeError       = "error"
)

// Message is one websocket frame in either direction.
type Message struct {
	Type    string                  `json:"type"`
	Device  int32                   `json:"device,omitempty"`
	Button  string                  `json:"button,omitempty"`
	Pressed bool                    `json:"pressed,omitempty"`
	Axis    string                  `json:"axis,omitempty"`
	Value   int16                   `json:"value,omitempty"`
	Reason  string                  `json:"reason,omitempty"`
	Error   *session.StreamingError `json:"error,omitempty"`
	Detail  string                  `json:"detail,omitempty"`
}

// Event converts an inbound button or axis message into an input event.
func (m Message) Event() (input.Event, error) {
	switch m.Type {
	case TypeButton:
		b, err := input.ParseButton(m.Button)
		if err != nil {
			return nil, err
		}
		return input.ButtonEvent{Device: input.DeviceID(m.Device), Button: b, Pressed: m.Pressed}, nil
	case TypeAxis:
		a, err := input.ParseAxis(m.Axis)
		if err != nil {
			return nil, err
		}
		return input.AxisEvent{Device: input.DeviceID(m.Device), Axis: a, Value: m.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported message type %q", m.Type)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local UI only; the listener address is the access control.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans session notifications out to every websocket client and funnels
// their input messages into one channel.
type Hub struct {
	events chan<- input.Event
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	done    chan struct{}
	closed  bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	addr string
}

// NewHub returns a hub delivering input events to events.
func NewHub(events chan<- input.Event, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		events:  events,
		logger:  logger.With("component", "ws"),
		clients: map[*client]struct{}{},
		done:    make(chan struct{}),
	}
}

// RequestOverlay tells every client to open the overlay. It never blocks.
func (h *Hub) RequestOverlay() {
	h.Broadcast(Message{Type: TypeOpenOverlay})
}

// NotifyInterrupted broadcasts the end of the session.
func (h *Hub) NotifyInterrupted(reason session.Reason, err *session.StreamingError) {
	h.Broadcast(Message{Type: TypeInterrupted, Reason: reason.String(), Error: err})
}

// Broadcast queues msg for every client; slow clients are dropped.
func (h *Hub) Broadcast(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warn("dropping slow client", "addr", c.addr)
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and stops accepting input.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the request to a websocket client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 64), addr: r.RemoteAddr}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", "addr", c.addr, "clients", n)

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.mu.Lock()
		c.hub.removeLocked(c)
		c.hub.mu.Unlock()
		_ = c.conn.Close()
		c.hub.logger.Info("client disconnected", "addr", c.addr)
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("read error", "addr", c.addr, "error", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(Message{Type: TypeError, Detail: "invalid json"})
			continue
		}
		ev, err := msg.Event()
		if err != nil {
			c.reply(Message{Type: TypeError, Detail: err.Error()})
			continue
		}
		select {
		case c.hub.events <- ev:
		case <-c.hub.done:
			return
		}
	}
}

func (c *client) reply(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
