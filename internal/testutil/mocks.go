// Package testutil provides in-memory test doubles for domain
// repository interfaces, adapted from the teacher's mock-repository
// pattern (one struct per interface, a slice/map backing store, plain
// Go control flow instead of a mocking framework).
package testutil

import (
	"sync"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/google/uuid"
)

// MockLedgerRepository is an in-memory domain.LedgerRepository for
// handler and service tests that need a repository without a database.
type MockLedgerRepository struct {
	mu      sync.Mutex
	ledgers map[uuid.UUID]*domain.Ledger
}

// NewMockLedgerRepository constructs an empty MockLedgerRepository.
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{ledgers: make(map[uuid.UUID]*domain.Ledger)}
}

var _ domain.LedgerRepository = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) Create(input domain.CreateLedgerInput) (*domain.Ledger, error) {
	if input.Name == "" {
		return nil, domain.ErrNameRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ledger := &domain.Ledger{
		ID:             uuid.New(),
		Name:           input.Name,
		OpeningBalance: input.OpeningBalance,
		Transactions:   input.Transactions,
		Scheduled:      input.Scheduled,
	}
	m.ledgers[ledger.ID] = ledger
	return cloneLedger(ledger), nil
}

func (m *MockLedgerRepository) GetByID(id uuid.UUID) (*domain.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, ok := m.ledgers[id]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return cloneLedger(ledger), nil
}

func (m *MockLedgerRepository) Update(id uuid.UUID, input domain.UpdateLedgerInput) (*domain.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, ok := m.ledgers[id]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	ledger.Name = input.Name
	ledger.OpeningBalance = input.OpeningBalance
	ledger.Transactions = input.Transactions
	ledger.Scheduled = input.Scheduled
	return cloneLedger(ledger), nil
}

func (m *MockLedgerRepository) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ledgers[id]; !ok {
		return domain.ErrLedgerNotFound
	}
	delete(m.ledgers, id)
	return nil
}

func (m *MockLedgerRepository) List() ([]*domain.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Ledger, 0, len(m.ledgers))
	for _, ledger := range m.ledgers {
		out = append(out, cloneLedger(ledger))
	}
	return out, nil
}

func (m *MockLedgerRepository) AppendTransactions(id uuid.UUID, transactions []forecast.Transaction) (*domain.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, ok := m.ledgers[id]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	ledger.Transactions = append(ledger.Transactions, transactions...)
	return cloneLedger(ledger), nil
}

// AddLedger seeds the mock with a ledger at a known ID, for tests that
// need to assert against a fixed identifier.
func (m *MockLedgerRepository) AddLedger(ledger *domain.Ledger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[ledger.ID] = ledger
}

func cloneLedger(l *domain.Ledger) *domain.Ledger {
	clone := *l
	clone.Transactions = append([]forecast.Transaction(nil), l.Transactions...)
	clone.Scheduled = append([]forecast.ScheduledEvent(nil), l.Scheduled...)
	return &clone
}
