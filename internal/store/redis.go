package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) PutBank(ctx context.Context, b *bank.Bank) error {
	if err := s.primary.PutBank(ctx, b); err != nil {
		return err
	}
	s.setJSON(ctx, bankKey(b.ID), b)
	s.rdb.Del(ctx, banksKey)
	return nil
}

func (s *CachedStore) PutPrice(ctx context.Context, id model.MarketID, p oracle.Price) error {
	if err := s.primary.PutPrice(ctx, id, p); err != nil {
		return err
	}
	// Prices change every slot; the whole map is re-read on the next miss.
	s.rdb.Del(ctx, pricesKey)
	return nil
}

func (s *CachedStore) PutAccount(ctx context.Context, a *model.Account) error {
	if err := s.primary.PutAccount(ctx, a); err != nil {
		return err
	}
	s.rdb.Del(ctx, accountKey(a.ID))
	return nil
}

func (s *CachedStore) InsertHealthRecord(ctx context.Context, r *model.HealthRecord) error {
	if err := s.primary.InsertHealthRecord(ctx, r); err != nil {
		return err
	}
	s.setJSON(ctx, healthKey(r.AccountID), r)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetBank(ctx context.Context, id model.MarketID) (*bank.Bank, error) {
	var b bank.Bank
	if s.getJSON(ctx, bankKey(id), &b) {
		return &b, nil
	}

	// Cache miss: read from primary.
	got, err := s.primary.GetBank(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, bankKey(id), got)
	return got, nil
}

func (s *CachedStore) ListBanks(ctx context.Context) ([]*bank.Bank, error) {
	var banks []*bank.Bank
	if s.getJSON(ctx, banksKey, &banks) {
		return banks, nil
	}

	banks, err := s.primary.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, banksKey, banks)
	return banks, nil
}

func (s *CachedStore) ListPrices(ctx context.Context) (map[model.MarketID]oracle.Price, error) {
	var prices map[model.MarketID]oracle.Price
	if s.getJSON(ctx, pricesKey, &prices) {
		return prices, nil
	}

	prices, err := s.primary.ListPrices(ctx)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, pricesKey, prices)
	return prices, nil
}

func (s *CachedStore) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	var a model.Account
	if s.getJSON(ctx, accountKey(id), &a) {
		return &a, nil
	}

	got, err := s.primary.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, accountKey(id), got)
	return got, nil
}

func (s *CachedStore) LatestHealthRecord(ctx context.Context, id model.AccountID) (*model.HealthRecord, error) {
	var r model.HealthRecord
	if s.getJSON(ctx, healthKey(id), &r) {
		return &r, nil
	}

	got, err := s.primary.LatestHealthRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, healthKey(id), got)
	return got, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListAccountIDs(ctx context.Context) ([]model.AccountID, error) {
	return s.primary.ListAccountIDs(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) getJSON(ctx context.Context, key string, v any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (s *CachedStore) setJSON(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

const (
	banksKey  = "banks"
	pricesKey = "prices"
)

func bankKey(id model.MarketID) string     { return fmt.Sprintf("bank:%s", id) }
func accountKey(id model.AccountID) string { return fmt.Sprintf("account:%s", id) }
func healthKey(id model.AccountID) string  { return fmt.Sprintf("health:%s", id) }
