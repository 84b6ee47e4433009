package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	ledgerID string
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id string, ledgerID string) *mockClient {
	return &mockClient{
		id:       id,
		ledgerID: ledgerID,
		messages: make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) LedgerID() string {
	return m.ledgerID
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1", "ledger-a")
	client2 := newMockClient("client-2", "ledger-a")
	client3 := newMockClient("client-3", "ledger-b")

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	assert.Equal(t, 2, hub.ClientCount("ledger-a"))
	assert.Equal(t, 1, hub.ClientCount("ledger-b"))
	assert.Equal(t, 0, hub.ClientCount("ledger-missing"))

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount("ledger-a"))

	hub.Unregister(client2)
	hub.Unregister(client3)
	assert.Equal(t, 0, hub.ClientCount("ledger-a"))
	assert.Equal(t, 0, hub.ClientCount("ledger-b"))
}

func TestHub_Broadcast_LedgerIsolation(t *testing.T) {
	hub := NewHub()

	client1a := newMockClient("client-1a", "ledger-a")
	client1b := newMockClient("client-1b", "ledger-a")
	client2 := newMockClient("client-2", "ledger-b")

	hub.Register(client1a)
	hub.Register(client1b)
	hub.Register(client2)

	evt := ForecastCompleted(map[string]interface{}{"final_balance": "42"})
	hub.Broadcast("ledger-a", evt)

	time.Sleep(10 * time.Millisecond)

	assert.Len(t, client1a.GetMessages(), 1, "client1a should receive 1 message")
	assert.Len(t, client1b.GetMessages(), 1, "client1b should receive 1 message")
	assert.Len(t, client2.GetMessages(), 0, "client2 should not receive a message for a different ledger")
}

func TestHub_Broadcast_MultipleFanOut(t *testing.T) {
	hub := NewHub()

	clients := make([]*mockClient, 5)
	for i := 0; i < 5; i++ {
		clients[i] = newMockClient("client-"+string(rune('a'+i)), "ledger-a")
		hub.Register(clients[i])
	}

	evt := StatementImported(map[string]interface{}{"rows": float64(3)})
	hub.Broadcast("ledger-a", evt)

	time.Sleep(10 * time.Millisecond)

	for i, c := range clients {
		assert.Len(t, c.GetMessages(), 1, "client %d should receive message", i)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	clientCount := 50
	ledgerFor := func(i int) string {
		return "ledger-" + string(rune('a'+i%5))
	}

	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient("client-"+string(rune(i)), ledgerFor(i))
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 5; i++ {
		total += hub.ClientCount("ledger-" + string(rune('a'+i)))
	}
	assert.Equal(t, clientCount, total)

	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			evt := ForecastCompleted(map[string]interface{}{"idx": idx})
			hub.Broadcast(ledgerFor(idx), evt)
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, hub.ClientCount("ledger-"+string(rune('a'+i))))
	}
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()
	client := newMockClient("client-1", "ledger-a")

	require.NotPanics(t, func() {
		hub.Unregister(client)
	})
}

func TestHub_BroadcastToEmptyLedger(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		evt := ForecastCompleted(map[string]interface{}{"final_balance": "1"})
		hub.Broadcast("ledger-missing", evt)
	})
}
