package devbackend

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/push"
)

const (
	wsReadBufferSize    = 1024
	wsWriteBufferSize   = 1024
	clientSendQueueSize = 32
	writeWait           = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  wsReadBufferSize,
	WriteBufferSize: wsWriteBufferSize,
	Subprotocols:    []string{push.Subprotocol},
	CheckOrigin: func(r *http.Request) bool {
		return true
	}, // local development only
}

// pushClient is one connected push subscriber.
type pushClient struct {
	ID        string
	conn      *websocket.Conn
	sendQueue chan []byte
}

// Hub fans push messages out to every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*pushClient
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*pushClient)}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msgs for every client. A client whose queue is full is
// dropped rather than stalling the others.
func (h *Hub) Broadcast(msgs ...[]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		for _, m := range msgs {
			select {
			case c.sendQueue <- m:
			default:
				logging.Warnf("push client %s is not keeping up, dropping it", id)
				delete(h.clients, id)
				close(c.sendQueue)
			}
			if _, ok := h.clients[id]; !ok {
				break
			}
		}
	}
}

func (h *Hub) upgrade(w http.ResponseWriter, r *http.Request) (*pushClient, error) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &pushClient{ID: xid.New().String(), conn: conn}, nil
}

// attach primes c with initial and registers it, so initial reaches the client
// before any later broadcast.
func (h *Hub) attach(c *pushClient, initial [][]byte) {
	c.sendQueue = make(chan []byte, clientSendQueueSize+len(initial))
	for _, m := range initial {
		c.sendQueue <- m
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// run pumps c until its connection closes, then unregisters it.
func (h *Hub) run(c *pushClient) {
	go c.handleSend()
	c.handleRecv()
	h.remove(c)
}

func (h *Hub) remove(c *pushClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
		close(c.sendQueue)
		logging.Infof("push client %s disconnected", c.ID)
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.sendQueue)
	}
}

// handleRecv drains inbound frames until the connection closes. Clients
// never send anything meaningful; reading keeps control frames flowing.
func (c *pushClient) handleRecv() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debugf("push client %s closed unexpectedly: %v", c.ID, err)
			}
			return
		}
	}
}

func (c *pushClient) handleSend() {
	defer c.conn.Close()
	for msg := range c.sendQueue {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
