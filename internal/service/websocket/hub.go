package websocket

import (
	"context"
	"sync"
	"time"

	"plateserver/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 64
	clientBuffer    = 16
	writeWait       = 5 * time.Second
)

// Client is the subset of *websocket.Conn the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// viewer owns the queue feeding one client. Only its writer goroutine touches
// the client.
type viewer struct {
	client Client
	send   chan []byte
}

// HubService fans recognition events out to connected viewers. Each viewer
// has its own writer, so a stalled connection never holds up the others.
type HubService struct {
	clients    map[Client]*viewer
	broadcast  chan []byte
	register   chan Client
	unregister chan Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[Client]*viewer),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan Client),
		unregister: make(chan Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every remaining client.
func (h *HubService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client, v := range h.clients {
				close(v.send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			if _, ok := h.clients[client]; !ok {
				v := &viewer{client: client, send: make(chan []byte, clientBuffer)}
				h.clients[client] = v
				go h.writePump(v)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if v, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(v.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client, v := range h.clients {
				select {
				case v.send <- message:
				default:
					h.logger.Warning("Dropping viewer that fell %d events behind", clientBuffer)
					delete(h.clients, client)
					close(v.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// writePump delivers queued events to one client and closes it once the hub
// closes the queue.
func (h *HubService) writePump(v *viewer) {
	defer v.client.Close()

	for message := range v.send {
		v.client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := v.client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warning("Dropping viewer after failed write: %v", err)
			h.Unregister(v.client)
			for range v.send {
			}
			return
		}
	}
}

// Register adds client. It returns false once the hub has stopped.
func (h *HubService) Register(client Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and closes it. Once the hub has stopped the client
// is closed directly.
func (h *HubService) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// Broadcast queues message for every viewer. It never blocks: when the queue
// is full the message is dropped and false is returned.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Warning("Broadcast queue full, dropping event")
		return false
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
