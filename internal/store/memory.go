package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	banks    map[model.MarketID]*bank.Bank
	prices   map[model.MarketID]oracle.Price
	accounts map[model.AccountID]*model.Account
	records  []model.HealthRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		banks:    make(map[model.MarketID]*bank.Bank),
		prices:   make(map[model.MarketID]oracle.Price),
		accounts: make(map[model.AccountID]*model.Account),
	}
}

func (s *MemoryStore) PutBank(_ context.Context, b *bank.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	cp := *b
	s.banks[b.ID] = &cp
	return nil
}

func (s *MemoryStore) GetBank(_ context.Context, id model.MarketID) (*bank.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.banks[id]
	if !ok {
		return nil, fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListBanks(_ context.Context) ([]*bank.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banks := make([]*bank.Bank, 0, len(s.banks))
	for _, b := range s.banks {
		cp := *b
		banks = append(banks, &cp)
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].ID < banks[j].ID })
	return banks, nil
}

func (s *MemoryStore) PutPrice(_ context.Context, id model.MarketID, p oracle.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[id] = p
	return nil
}

func (s *MemoryStore) ListPrices(_ context.Context) (map[model.MarketID]oracle.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[model.MarketID]oracle.Price, len(s.prices))
	for id, p := range s.prices {
		prices[id] = p
	}
	return prices, nil
}

func (s *MemoryStore) PutAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[a.ID] = copyAccount(a)
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return copyAccount(a), nil
}

func (s *MemoryStore) ListAccountIDs(_ context.Context) ([]model.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]model.AccountID, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) InsertHealthRecord(_ context.Context, r *model.HealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *r)
	return nil
}

func (s *MemoryStore) LatestHealthRecord(_ context.Context, id model.AccountID) (*model.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Records are append-only, so the last match is the latest.
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].AccountID == id {
			r := s.records[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("health record for %s: %w", id, ErrNotFound)
}

func copyAccount(a *model.Account) *model.Account {
	return &model.Account{
		ID:       a.ID,
		Balances: append([]model.Balance(nil), a.Balances...),
	}
}
