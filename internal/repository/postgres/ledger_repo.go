package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements domain.LedgerRepository against Postgres.
// Transactions and scheduled events are stored as JSONB columns rather
// than normalized child tables: they are read and written wholesale as
// a forecast.Request's history, never queried by individual field, so
// normalizing them would only add join cost with no benefit.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

var _ domain.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) Create(input domain.CreateLedgerInput) (*domain.Ledger, error) {
	if input.Name == "" {
		return nil, domain.ErrNameRequired
	}

	id := uuid.New()
	now := time.Now().UTC()

	txJSON, err := json.Marshal(input.Transactions)
	if err != nil {
		return nil, fmt.Errorf("marshal transactions: %w", err)
	}
	schedJSON, err := json.Marshal(input.Scheduled)
	if err != nil {
		return nil, fmt.Errorf("marshal scheduled events: %w", err)
	}

	_, err = r.pool.Exec(context.Background(), `
		INSERT INTO ledgers (id, name, opening_balance, transactions, scheduled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, id, input.Name, input.OpeningBalance, txJSON, schedJSON, now)
	if err != nil {
		return nil, fmt.Errorf("insert ledger: %w", err)
	}

	return &domain.Ledger{
		ID:             id,
		Name:           input.Name,
		OpeningBalance: input.OpeningBalance,
		Transactions:   input.Transactions,
		Scheduled:      input.Scheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *LedgerRepository) GetByID(id uuid.UUID) (*domain.Ledger, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT id, name, opening_balance, transactions, scheduled, created_at, updated_at
		FROM ledgers WHERE id = $1
	`, id)

	return scanLedger(row)
}

func (r *LedgerRepository) Update(id uuid.UUID, input domain.UpdateLedgerInput) (*domain.Ledger, error) {
	txJSON, err := json.Marshal(input.Transactions)
	if err != nil {
		return nil, fmt.Errorf("marshal transactions: %w", err)
	}
	schedJSON, err := json.Marshal(input.Scheduled)
	if err != nil {
		return nil, fmt.Errorf("marshal scheduled events: %w", err)
	}

	cmd, err := r.pool.Exec(context.Background(), `
		UPDATE ledgers
		SET name = $2, opening_balance = $3, transactions = $4, scheduled = $5, updated_at = $6
		WHERE id = $1
	`, id, input.Name, input.OpeningBalance, txJSON, schedJSON, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrLedgerNotFound
	}

	return r.GetByID(id)
}

func (r *LedgerRepository) Delete(id uuid.UUID) error {
	cmd, err := r.pool.Exec(context.Background(), `DELETE FROM ledgers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrLedgerNotFound
	}
	return nil
}

func (r *LedgerRepository) List() ([]*domain.Ledger, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT id, name, opening_balance, transactions, scheduled, created_at, updated_at
		FROM ledgers ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var out []*domain.Ledger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ledger)
	}
	return out, rows.Err()
}

// AppendTransactions merges newly imported statement rows into an
// existing ledger's history, deduplicating by (date, description,
// amount) so re-importing the same statement file is a no-op — the
// same idempotence property spec.md §8 requires of the normalizer.
func (r *LedgerRepository) AppendTransactions(id uuid.UUID, transactions []forecast.Transaction) (*domain.Ledger, error) {
	ledger, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ledger.Transactions))
	for _, tx := range ledger.Transactions {
		seen[transactionKey(tx)] = true
	}

	merged := ledger.Transactions
	for _, tx := range transactions {
		key := transactionKey(tx)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, tx)
	}

	return r.Update(id, domain.UpdateLedgerInput{
		Name:           ledger.Name,
		OpeningBalance: ledger.OpeningBalance,
		Transactions:   merged,
		Scheduled:      ledger.Scheduled,
	})
}

func transactionKey(tx forecast.Transaction) string {
	return fmt.Sprintf("%s|%s|%s", tx.Date.Format("2006-01-02"), tx.Description, tx.Amount.String())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (*domain.Ledger, error) {
	var (
		l              domain.Ledger
		openingBalance decimal.Decimal
		txJSON         []byte
		schedJSON      []byte
	)

	err := row.Scan(&l.ID, &l.Name, &openingBalance, &txJSON, &schedJSON, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	l.OpeningBalance = openingBalance

	if err := json.Unmarshal(txJSON, &l.Transactions); err != nil {
		return nil, fmt.Errorf("unmarshal transactions: %w", err)
	}
	if err := json.Unmarshal(schedJSON, &l.Scheduled); err != nil {
		return nil, fmt.Errorf("unmarshal scheduled events: %w", err)
	}

	return &l, nil
}
