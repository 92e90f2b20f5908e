package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub fans dispatch decisions out to scoped channels. One room per
// hospital, one per ambulance, plus a global room every connection
// joins. Delivery is at most once: a slow or absent subscriber misses
// the event, nothing is queued or replayed.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Message struct {
	Type      string      `json:"type"`
	Channel   string      `json:"channel,omitempty"`
	Degraded  bool        `json:"degraded,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	log.Printf("Client registered: %s (%s)", client.EntityID, client.Role)

	// Every connection lands in its own entity channel.
	h.joinRoom(client, client.Channel())

	welcomeMsg := Message{
		Type:      "welcome",
		Channel:   client.Channel(),
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	}

	h.sendToClient(client, welcomeMsg)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		h.dropClient(client)
		log.Printf("Client unregistered: %s (%s)", client.EntityID, client.Role)
	}
}

// dropClient removes a subscriber and closes its send channel. Caller
// holds the write lock. The channel closes exactly once because the
// client leaves h.clients in the same critical section.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Channel != "" {
		h.sendToRoom(msg.Channel, msg)
	} else {
		h.sendToAll(msg)
	}
}

// Publish delivers a message to every subscriber of one channel.
func (h *Hub) Publish(channel string, message Message) {
	message.Channel = channel
	if message.Timestamp == 0 {
		message.Timestamp = getCurrentTimestamp()
	}
	h.sendToRoom(channel, message)
}

// PublishGlobal delivers a message to every connected client,
// regardless of channel membership.
func (h *Hub) PublishGlobal(message Message) {
	if message.Timestamp == 0 {
		message.Timestamp = getCurrentTimestamp()
	}
	h.sendToAll(message)
}

// SubscriberCount reports how many clients currently listen on a
// channel. Zero means a publish there would reach nobody.
func (h *Hub) SubscriberCount(channel string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[channel])
}

// ConnectedClients reports the total live connection count.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// sendToAll and sendToRoom run on publisher goroutines, not just the
// hub loop, so they take the write lock to fan out.
func (h *Hub) sendToAll(message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, _ := json.Marshal(message)
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Subscriber cannot keep up; drop it rather than block the
			// dispatch path.
			h.dropClient(client)
		}
	}
}

func (h *Hub) sendToRoom(roomID string, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		select {
		case client.send <- data:
		default:
			h.dropClient(client)
		}
	}
}

// sendToClient delivers to a single subscriber. Caller holds the write
// lock.
func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	select {
	case client.send <- data:
	default:
		h.dropClient(client)
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
