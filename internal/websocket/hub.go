package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"kb-console/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "kb_console_events"

type Hub struct {
	// Registered clients: console id -> open sockets (several tabs share a console)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	// Closed when Run returns; pending joins and leaves give up.
	stopped chan struct{}

	mu sync.RWMutex

	// Optional. When set, events are mirrored to other console instances.
	rdb        *redis.Client
	instanceId string

	logger logger.ILogger
}

type clusterPayload struct {
	Origin    string          `json:"origin"`
	ConsoleId string          `json:"console_id"`
	Message   json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ConsoleId] = append(h.clients[client.ConsoleId], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"console_id": client.ConsoleId})

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// join registers client. It reports false when the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.ConsoleId]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.ConsoleId] = append(clients[:i:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.ConsoleId]) == 0 {
		delete(h.clients, client.ConsoleId)
		h.logger.Info("Hub", "Console has no open sockets", map[string]interface{}{"console_id": client.ConsoleId})
	}
}

// Send delivers data to every socket of consoleId on this instance and,
// when Redis is configured, to the other instances.
func (h *Hub) Send(ctx context.Context, consoleId string, data []byte) {
	h.deliverLocal(consoleId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterPayload{
			Origin:    h.instanceId,
			ConsoleId: consoleId,
			Message:   data,
		})
		if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to mirror event to Redis", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Connected reports how many sockets are open for consoleId on this instance.
func (h *Hub) Connected(consoleId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[consoleId])
}

func (h *Hub) deliverLocal(consoleId string, data []byte) {
	// Sends stay under the read lock so removeClient cannot close a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[consoleId] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping socket", map[string]interface{}{"console_id": consoleId})
			go h.leave(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceId {
			continue
		}
		h.deliverLocal(payload.ConsoleId, payload.Message)
	}
}
