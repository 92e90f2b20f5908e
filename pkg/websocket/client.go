package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly in production
	},
}

const (
	RoleAmbulance  = "ambulance"
	RoleHospital   = "hospital"
	RoleDispatcher = "dispatcher"
)

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	EntityID string
	Role     string
	rooms    map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, entityID, role string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		EntityID: entityID,
		Role:     role,
		rooms:    make(map[string]bool),
	}
}

// Channel names the client's own scoped channel, derived from its
// identity: hospital-<id> or ambulance-<id>.
func (c *Client) Channel() string {
	switch c.Role {
	case RoleHospital:
		return "hospital-" + c.EntityID
	case RoleAmbulance:
		return "ambulance-" + c.EntityID
	default:
		return "dispatcher-" + c.EntityID
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages if any
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling client message: %v", err)
		return
	}

	msg.Timestamp = getCurrentTimestamp()

	data, _ := msg.Data.(map[string]interface{})

	switch msg.Type {
	case "join_channel":
		// Hospitals may watch additional channels (e.g. a dispatcher
		// console); ambulances stay on their own.
		if channel, ok := data["channel"].(string); ok && c.Role != RoleAmbulance {
			c.hub.mutex.Lock()
			c.hub.joinRoom(c, channel)
			c.hub.mutex.Unlock()
		}

	case "leave_channel":
		if channel, ok := data["channel"].(string); ok {
			c.hub.LeaveRoom(c, channel)
		}

	default:
		// Inbound traffic other than channel management is ignored;
		// state changes go through the REST API.
	}
}
