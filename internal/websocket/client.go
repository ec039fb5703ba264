package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chat-core/internal/bus"
	"chat-core/internal/database"
	"chat-core/internal/models"
	"chat-core/internal/pipeline"
	"chat-core/internal/registry"
	"chat-core/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// clientFrame is one inbound frame from the browser.
type clientFrame struct {
	Type   string `json:"type"` // subscribe | unsubscribe | chat | typing
	RoomID int    `json:"room_id"`
	Body   string `json:"body,omitempty"`
}

// serverFrame is a reply to the sending connection only: acks, warnings and
// failure reasons. Broadcast traffic uses envelopes instead.
type serverFrame struct {
	Type      string `json:"type"` // ack | warning | error
	RoomID    int    `json:"room_id,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	userID   int
	username string
	registry *registry.Registry
	pipeline *pipeline.Pipeline
	presence presenceHeartbeater
	members  database.MembershipRepository
}

// presenceHeartbeater is the slice of the presence tracker a connection
// needs: every inbound frame is a liveness signal.
type presenceHeartbeater interface {
	Heartbeat(ctx context.Context, userID int) error
}

func NewClient(
	conn *websocket.Conn,
	userID int,
	username string,
	reg *registry.Registry,
	pipe *pipeline.Pipeline,
	presence presenceHeartbeater,
	members database.MembershipRepository,
	sendBufferSize int,
) *Client {
	return &Client{
		id:       uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		userID:   userID,
		username: username,
		registry: reg,
		pipeline: pipe,
		presence: presence,
		members:  members,
	}
}

func (c *Client) ID() string  { return c.id }
func (c *Client) UserID() int { return c.userID }

// Send queues a payload without blocking. False means the buffer is full or
// the connection is shutting down; the registry drops us in that case.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) ReadPump() {
	defer func() {
		// Unsubscribe from everything before the write side shuts
		// down, so no broadcast can target a dead connection.
		roomIDs := c.registry.Drop(c)
		for _, roomID := range roomIDs {
			c.announceMembership(models.EventLeave, roomID)
		}
		close(c.done)
		c.conn.Close()
		logger.Debug("Connection %s closed for user %s", c.id, c.username)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.id, err)
			}
			return
		}

		// Any inbound frame proves the user is alive.
		if err := c.presence.Heartbeat(context.Background(), c.userID); err != nil {
			logger.Error("Presence heartbeat failed for user %d: %v", c.userID, err)
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.reply(serverFrame{Type: "error", Reason: "malformed frame"})
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame clientFrame) {
	ctx := context.Background()

	switch frame.Type {
	case "subscribe":
		ok, err := c.members.IsMember(ctx, c.userID, frame.RoomID)
		if err != nil {
			logger.Error("Membership lookup failed for user %d room %d: %v", c.userID, frame.RoomID, err)
			c.reply(serverFrame{Type: "error", RoomID: frame.RoomID, Reason: "room lookup failed"})
			return
		}
		if !ok {
			c.reply(serverFrame{Type: "error", RoomID: frame.RoomID, Reason: "not a participant of this room"})
			return
		}
		c.registry.Subscribe(c, frame.RoomID)
		c.announceMembership(models.EventJoin, frame.RoomID)
		c.reply(serverFrame{Type: "ack", RoomID: frame.RoomID})

	case "unsubscribe":
		c.registry.Unsubscribe(c, frame.RoomID)
		c.announceMembership(models.EventLeave, frame.RoomID)
		c.reply(serverFrame{Type: "ack", RoomID: frame.RoomID})

	case "chat":
		if !c.registry.Contains(c, frame.RoomID) {
			c.reply(serverFrame{Type: "error", RoomID: frame.RoomID, Reason: "subscribe to the room before sending"})
			return
		}
		env, err := c.pipeline.HandleIncoming(ctx, frame.RoomID, c.userID, c.username, frame.Body)
		switch {
		case errors.Is(err, pipeline.ErrInvalidMessage):
			c.reply(serverFrame{Type: "error", RoomID: frame.RoomID, Reason: err.Error()})
		case errors.Is(err, pipeline.ErrPersistence):
			c.reply(serverFrame{Type: "error", RoomID: frame.RoomID, Reason: "message could not be stored"})
		case errors.Is(err, bus.ErrBusUnavailable):
			// Stored, but other participants may not see it until
			// the bus recovers.
			c.reply(serverFrame{Type: "warning", RoomID: frame.RoomID, MessageID: env.MessageID, Reason: "delivery degraded"})
		case err != nil:
			c.reply(serverFrame{Type: "error", RoomID: frame.RoomID, Reason: "message handling failed"})
		default:
			c.reply(serverFrame{Type: "ack", RoomID: frame.RoomID, MessageID: env.MessageID})
		}

	case "typing":
		if !c.registry.Contains(c, frame.RoomID) {
			return
		}
		err := c.pipeline.HandleEphemeral(models.TypingEnvelope{
			RoomID:     frame.RoomID,
			SenderID:   c.userID,
			SenderName: c.username,
		})
		if err != nil && !errors.Is(err, bus.ErrBusUnavailable) {
			logger.Error("Typing event failed for room %d: %v", frame.RoomID, err)
		}

	default:
		c.reply(serverFrame{Type: "error", Reason: "unknown frame type"})
	}
}

func (c *Client) announceMembership(event models.EventType, roomID int) {
	err := c.pipeline.HandleEphemeral(models.MembershipEnvelope{
		Event:     event,
		RoomID:    roomID,
		UserID:    c.userID,
		Username:  c.username,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil && !errors.Is(err, bus.ErrBusUnavailable) {
		logger.Error("Membership announcement failed for room %d: %v", roomID, err)
	}
}

func (c *Client) reply(frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Error marshaling server frame: %v", err)
		return
	}
	c.Send(data)
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
