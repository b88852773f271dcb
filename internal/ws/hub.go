package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"coiportal/internal/model"
	"coiportal/internal/pubsub"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub manages WebSocket connections and channel subscriptions
type Hub struct {
	mu         sync.RWMutex
	conns      map[*Conn]bool
	subs       map[string]map[*Conn]bool // channel -> connections
	publish    chan Event
	log        *zap.Logger
	cmdHandler *CommandHandler
	ctx        context.Context
}

// Conn represents a WebSocket connection
type Conn struct {
	ws    *websocket.Conn
	send  chan []byte
	hub   *Hub
	actor model.Actor
	subs  map[string]bool // subscribed channels
	ctx   context.Context

	// closed is guarded by hub.mu
	closed bool
}

// Event represents a message to be published
type Event struct {
	Channel string
	Message map[string]interface{}
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		conns:   make(map[*Conn]bool),
		subs:    make(map[string]map[*Conn]bool),
		publish: make(chan Event, 256),
		log:     log,
		ctx:     context.Background(),
	}
}

// SetCommandHandler sets the command handler for processing WebSocket commands
func (h *Hub) SetCommandHandler(handler *CommandHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cmdHandler = handler
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for event := range h.publish {
		h.deliver(event)
	}
}

func (h *Hub) deliver(event Event) {
	msg, err := json.Marshal(map[string]interface{}{
		"type":    "event",
		"channel": event.Channel,
		"data":    event.Message,
	})
	if err != nil {
		h.log.Error("Failed to encode event", zap.String("channel", event.Channel), zap.Error(err))
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel mid-send
	var slow []*Conn
	h.mu.RLock()
	for conn := range h.subs[event.Channel] {
		if !conn.sendLocked(msg) {
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		h.log.Warn("Dropping slow WebSocket connection", zap.String("user_id", conn.actor.ID))
		h.unregister(conn)
	}
}

// Register adds a new connection to the hub and subscribes it to the
// channels its actor may always read
func (h *Hub) Register(conn *Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	h.Subscribe(conn, pubsub.UserChannel(conn.actor.ID))
	if conn.actor.CanReview() {
		h.Subscribe(conn, pubsub.ReviewersChannel)
	}
}

func (h *Hub) unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.closed = true
		close(conn.send)
		for channel := range conn.subs {
			if subs := h.subs[channel]; subs != nil {
				delete(subs, conn)
				if len(subs) == 0 {
					delete(h.subs, channel)
				}
			}
		}
	}
}

// CanSubscribe reports whether actor may read channel
func CanSubscribe(actor model.Actor, channel string) bool {
	if channel == pubsub.ReviewersChannel {
		return actor.CanReview()
	}
	return actor.ID != "" && channel == pubsub.UserChannel(actor.ID)
}

// Subscribe adds a connection to a channel
func (h *Hub) Subscribe(conn *Conn, channel string) bool {
	if !CanSubscribe(conn.actor, channel) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Conn]bool)
	}
	h.subs[channel][conn] = true
	conn.subs[channel] = true
	return true
}

// Unsubscribe removes a connection from a channel
func (h *Hub) Unsubscribe(conn *Conn, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subs[channel]; subs != nil {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.subs, channel)
		}
	}
	delete(conn.subs, channel)
}

// Publish sends an event to all subscribers of a channel
func (h *Hub) Publish(channel string, message map[string]interface{}) {
	select {
	case h.publish <- Event{Channel: channel, Message: message}:
	default:
		h.log.Warn("Hub publish channel full, dropping event", zap.String("channel", channel))
	}
}

// NewConn creates a new connection
func NewConn(ws *websocket.Conn, hub *Hub, actor model.Actor) *Conn {
	return &Conn{
		ws:    ws,
		send:  make(chan []byte, 256),
		hub:   hub,
		actor: actor,
		subs:  make(map[string]bool),
		ctx:   hub.ctx,
	}
}

// ReadPump handles reading from the WebSocket connection
func (c *Conn) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(1 << 20)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		var msg map[string]json.RawMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Warn("Failed to parse message", zap.Error(err))
			continue
		}

		c.handleMessage(msg)
	}
}

// WritePump handles writing to the WebSocket connection
func (c *Conn) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) handleMessage(msg map[string]json.RawMessage) {
	var msgType, channel string
	_ = json.Unmarshal(msg["type"], &msgType)
	_ = json.Unmarshal(msg["channel"], &channel)

	switch msgType {
	case "subscribe":
		if channel == "" {
			return
		}
		if c.hub.Subscribe(c, channel) {
			c.sendAck("subscribed", channel)
		} else {
			c.sendJSON(map[string]interface{}{"type": "error", "code": "forbidden", "channel": channel})
		}
	case "unsubscribe":
		if channel != "" {
			c.hub.Unsubscribe(c, channel)
			c.sendAck("unsubscribed", channel)
		}
	case "cmd":
		if c.hub.cmdHandler != nil {
			c.hub.cmdHandler.HandleCommand(c.ctx, c, msg)
		} else {
			c.hub.log.Warn("Command handler not set")
		}
	case "ping":
		c.sendAck("pong", "")
	default:
		c.hub.log.Warn("Unknown message type", zap.String("type", msgType))
	}
}

func (c *Conn) sendAck(msgType, channel string) {
	ack := map[string]interface{}{
		"type": "ack",
		"ack":  msgType,
	}
	if channel != "" {
		ack["channel"] = channel
	}
	c.sendJSON(ack)
}

func (c *Conn) sendJSON(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		c.hub.log.Error("Failed to encode WebSocket message", zap.Error(err))
		return
	}
	c.trySend(msg)
}

// trySend queues msg without blocking and reports whether it was queued
func (c *Conn) trySend(msg []byte) bool {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.sendLocked(msg)
}

// sendLocked requires hub.mu held. A closed connection swallows msg.
func (c *Conn) sendLocked(msg []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}
