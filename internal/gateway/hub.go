package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/erazemk/cvetlicarna/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sendBuffer is the per-client outbound queue length. A client that falls
// this far behind is disconnected rather than allowed to stall the engine.
const sendBuffer = 64

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts outbound messages to every connected connector. Each
// connector filters for the users it serves, so the hub implements
// engine.Sender directly.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]bool)}
}

// Send implements engine.Sender by broadcasting the message as JSON.
func (h *Hub) Send(ctx context.Context, msg engine.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return fmt.Errorf("no connector is connected")
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client; drop it so the rest keep receiving.
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

// ServeWS handles GET /ws, upgrading the connection and streaming outbound
// messages until the connector disconnects.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	g.Hub.add(client)

	go func() {
		defer conn.Close()
		for data := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	// Inbound frames carry events, same shape as POST /events. Malformed
	// frames are logged and skipped; read errors end the connection.
	go func() {
		defer g.Hub.remove(client)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev inboundEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("websocket: malformed event frame: %v", err)
				continue
			}
			if err := g.validate.Struct(ev); err != nil {
				log.Printf("websocket: invalid event frame: %v", err)
				continue
			}
			g.Dispatcher.Enqueue(engine.Event{
				Type:    engine.EventType(ev.Type),
				UserID:  ev.UserID,
				Payload: ev.Payload,
			})
		}
	}()
}
