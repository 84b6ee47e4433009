package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	LedgerID() string
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by ledger ID. A client
// subscribes to one ledger's forecast/import events; there is no
// workspace or tenant concept left in this domain (SPEC_FULL.md §3,
// auth removal). It is safe for concurrent use.
type Hub struct {
	ledgers map[string]map[string]ClientInterface
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		ledgers: make(map[string]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its ledger
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ledgerID := client.LedgerID()
	clientID := client.ID()

	if h.ledgers[ledgerID] == nil {
		h.ledgers[ledgerID] = make(map[string]ClientInterface)
	}

	h.ledgers[ledgerID][clientID] = client

	log.Debug().
		Str("ledger_id", ledgerID).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ledgerID := client.LedgerID()
	clientID := client.ID()

	if clients, ok := h.ledgers[ledgerID]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			if len(clients) == 0 {
				delete(h.ledgers, ledgerID)
			}

			log.Debug().
				Str("ledger_id", ledgerID).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to all clients subscribed to a ledger
func (h *Hub) Broadcast(ledgerID string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("ledger_id", ledgerID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.ledgers[ledgerID]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("ledger_id", ledgerID).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("ledger_id", ledgerID).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients connected to a ledger
func (h *Hub) ClientCount(ledgerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.ledgers[ledgerID]; ok {
		return len(clients)
	}
	return 0
}

// TotalClientCount returns the total number of connected clients across all ledgers
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.ledgers {
		total += len(clients)
	}
	return total
}
