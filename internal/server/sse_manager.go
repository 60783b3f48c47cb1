package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"sovdscope/internal/logging"
)

// sseClient is one connected browser.
type sseClient struct {
	id       string
	messages chan string
}

// SSEManager fans console state-change events out to every connected
// browser over Server-Sent Events.
type SSEManager struct {
	mu      sync.RWMutex
	clients map[*sseClient]bool
}

// NewSSEManager creates an empty manager.
func NewSSEManager() *SSEManager {
	return &SSEManager{
		clients: make(map[*sseClient]bool),
	}
}

func (m *SSEManager) register(client *sseClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client] = true
}

func (m *SSEManager) unregister(client *sseClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, client)
}

// ClientCount returns the number of connected browsers.
func (m *SSEManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Broadcast sends an event to every connected client. Clients that do not
// drain their buffer in time are dropped; a stuck browser must not block
// state updates for the rest.
func (m *SSEManager) Broadcast(eventType string, payload interface{}) {
	m.mu.RLock()
	clients := make([]*sseClient, 0, len(m.clients))
	for client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal SSE event %s: %v", eventType, err)
		return
	}
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, data)

	var stale []*sseClient
	for _, client := range clients {
		select {
		case client.messages <- message:
		case <-time.After(500 * time.Millisecond):
			stale = append(stale, client)
		}
	}

	if len(stale) > 0 {
		m.mu.Lock()
		for _, client := range stale {
			delete(m.clients, client)
			logging.Warning("Dropped unresponsive SSE client %s", client.id)
		}
		m.mu.Unlock()
	}
}

// ServeHTTP streams events to one browser until it disconnects.
func (m *SSEManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{
		id:       uuid.NewString(),
		messages: make(chan string, 16),
	}
	m.register(client)
	defer m.unregister(client)
	logging.Debug("SSE client %s connected", client.id)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, "event: heartbeat\ndata: ping\n\n")
			flusher.Flush()
		case message := <-client.messages:
			fmt.Fprint(w, message)
			flusher.Flush()
		}
	}
}
