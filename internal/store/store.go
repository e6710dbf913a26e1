// Package store defines the persistence interface for the risk engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// The engine itself never touches a Store. The service loads a snapshot
// from it, runs the pure computations and writes health records back.
package store

import (
	"context"
	"errors"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// ErrNotFound is returned when a bank, account or health record does not
// exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Bank state ---

	// PutBank inserts or replaces a bank snapshot.
	PutBank(ctx context.Context, b *bank.Bank) error

	// GetBank retrieves a bank by its market id.
	GetBank(ctx context.Context, id model.MarketID) (*bank.Bank, error)

	// ListBanks returns every bank ordered by id.
	ListBanks(ctx context.Context) ([]*bank.Bank, error)

	// --- Oracle prices ---

	// PutPrice inserts or replaces the latest price for a market.
	PutPrice(ctx context.Context, id model.MarketID, p oracle.Price) error

	// ListPrices returns the latest price of every market.
	ListPrices(ctx context.Context) (map[model.MarketID]oracle.Price, error)

	// --- Accounts ---

	// PutAccount replaces an account's ordered balance list.
	PutAccount(ctx context.Context, a *model.Account) error

	// GetAccount retrieves an account with its balances in order.
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)

	// ListAccountIDs returns the ids of every stored account.
	ListAccountIDs(ctx context.Context) ([]model.AccountID, error)

	// --- Immutable health history ---

	// InsertHealthRecord appends a health cache refresh.
	InsertHealthRecord(ctx context.Context, r *model.HealthRecord) error

	// LatestHealthRecord returns the most recent refresh for an account.
	LatestHealthRecord(ctx context.Context, id model.AccountID) (*model.HealthRecord, error)
}
