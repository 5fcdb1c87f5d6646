// Package trace streams emulator step snapshots to websocket viewers.
package trace

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Control is an incoming JSON control message from a viewer.
type Control struct {
	Type string `json:"type"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte
}

// readPump pumps control messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("trace: %v", err)
			}
			break
		}

		var msg Control
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("trace: bad control message: %v", err)
			continue
		}

		switch msg.Type {
		case "pause", "resume":
			select {
			case c.hub.Control <- msg.Type:
			default:
				// Control channel is full; drop the message.
			}
		default:
			log.Printf("trace: unknown control type %q", msg.Type)
		}
	}
}

// writePump pumps snapshots from the hub to the websocket connection.
// A goroutine running writePump is started per connection; it is the only
// writer on the connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("trace: write error, closing connection: %v", err)
			return
		}
	}

	// The hub closed the channel.
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub maintains the set of active viewers and broadcasts snapshots to them.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	Control    chan string
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    map[*Client]bool{},
		Broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Control:    make(chan string, 8),
	}
}

// Run starts the hub's message-handling loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop the snapshot rather than stall
					// the machine. A dead connection is caught by the
					// writePump deadline.
				}
			}
		}
	}
}

// Send marshals a snapshot and broadcasts it; full buffers drop.
func (h *Hub) Send(snap any) {
	message, err := json.Marshal(snap)
	if err != nil {
		log.Printf("trace: marshal: %v", err)
		return
	}

	select {
	case h.Broadcast <- message:
	default:
	}
}

// Handler upgrades HTTP connections to websocket viewers of this hub.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("trace: upgrade: %v", err)
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
		client.hub.Register <- client

		go client.writePump()
		go client.readPump()
	})
}
