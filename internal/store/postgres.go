package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// Schema creates the tables used by PostgresStore. Share pools, prices and
// health values are NUMERIC; bank configuration is stored as JSONB because it
// is always read and written as a whole.
const Schema = `
CREATE TABLE IF NOT EXISTS banks (
	id                     TEXT PRIMARY KEY,
	mint_decimals          INTEGER NOT NULL,
	risk                   JSONB NOT NULL,
	interest               JSONB NOT NULL,
	emissions              JSONB NOT NULL,
	total_asset_shares     NUMERIC NOT NULL,
	total_liability_shares NUMERIC NOT NULL,
	total_asset_value      NUMERIC NOT NULL,
	total_liability_value  NUMERIC NOT NULL,
	last_update            BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS prices (
	market_id           TEXT PRIMARY KEY,
	price_unbiased      NUMERIC NOT NULL,
	confidence_interval NUMERIC NOT NULL,
	price_realtime      NUMERIC NOT NULL,
	confidence_realtime NUMERIC NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS balances (
	account_id            TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	position              INTEGER NOT NULL,
	bank_id               TEXT NOT NULL,
	active                BOOLEAN NOT NULL,
	asset_shares          NUMERIC NOT NULL,
	liability_shares      NUMERIC NOT NULL,
	emissions_outstanding NUMERIC NOT NULL,
	last_update           BIGINT NOT NULL,
	PRIMARY KEY (account_id, position)
);

CREATE TABLE IF NOT EXISTS health_records (
	id                     UUID PRIMARY KEY,
	account_id             TEXT NOT NULL,
	asset_value            NUMERIC NOT NULL,
	liability_value        NUMERIC NOT NULL,
	asset_value_maint      NUMERIC NOT NULL,
	liability_value_maint  NUMERIC NOT NULL,
	asset_value_equity     NUMERIC NOT NULL,
	liability_value_equity NUMERIC NOT NULL,
	skipped                TEXT[] NOT NULL DEFAULT '{}',
	computed_at            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS health_records_account_idx ON health_records (account_id, computed_at DESC);
`

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) PutBank(ctx context.Context, b *bank.Bank) error {
	risk, err := json.Marshal(b.Risk)
	if err != nil {
		return err
	}
	interest, err := json.Marshal(b.Interest)
	if err != nil {
		return err
	}
	emissions, err := json.Marshal(b.Emissions)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO banks (id, mint_decimals, risk, interest, emissions,
		                    total_asset_shares, total_liability_shares,
		                    total_asset_value, total_liability_value, last_update)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     mint_decimals = EXCLUDED.mint_decimals,
		     risk = EXCLUDED.risk,
		     interest = EXCLUDED.interest,
		     emissions = EXCLUDED.emissions,
		     total_asset_shares = EXCLUDED.total_asset_shares,
		     total_liability_shares = EXCLUDED.total_liability_shares,
		     total_asset_value = EXCLUDED.total_asset_value,
		     total_liability_value = EXCLUDED.total_liability_value,
		     last_update = EXCLUDED.last_update`,
		string(b.ID), b.MintDecimals, risk, interest, emissions,
		b.TotalAssetShares.String(), b.TotalLiabilityShares.String(),
		b.TotalAssetValue.String(), b.TotalLiabilityValue.String(),
		b.LastUpdate,
	)
	return err
}

const bankColumns = `id, mint_decimals, risk, interest, emissions,
		        total_asset_shares::TEXT, total_liability_shares::TEXT,
		        total_asset_value::TEXT, total_liability_value::TEXT, last_update`

func (s *PostgresStore) GetBank(ctx context.Context, id model.MarketID) (*bank.Bank, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bankColumns+` FROM banks WHERE id = $1`, string(id))
	b, err := scanBank(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get bank %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) ListBanks(ctx context.Context) ([]*bank.Bank, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bankColumns+` FROM banks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banks []*bank.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

func (s *PostgresStore) PutPrice(ctx context.Context, id model.MarketID, p oracle.Price) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prices (market_id, price_unbiased, confidence_interval, price_realtime, confidence_realtime, updated_at)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, now())
		 ON CONFLICT (market_id) DO UPDATE SET
		     price_unbiased = EXCLUDED.price_unbiased,
		     confidence_interval = EXCLUDED.confidence_interval,
		     price_realtime = EXCLUDED.price_realtime,
		     confidence_realtime = EXCLUDED.confidence_realtime,
		     updated_at = EXCLUDED.updated_at`,
		string(id),
		p.PriceUnbiased.String(), p.ConfidenceInterval.String(),
		p.PriceRealtime.String(), p.ConfidenceRealtime.String(),
	)
	return err
}

func (s *PostgresStore) ListPrices(ctx context.Context) (map[model.MarketID]oracle.Price, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, price_unbiased::TEXT, confidence_interval::TEXT,
		        price_realtime::TEXT, confidence_realtime::TEXT
		 FROM prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[model.MarketID]oracle.Price)
	for rows.Next() {
		var id, price, conf, rtPrice, rtConf string
		if err := rows.Scan(&id, &price, &conf, &rtPrice, &rtConf); err != nil {
			return nil, err
		}
		var p oracle.Price
		p.PriceUnbiased, _ = decimal.NewFromString(price)
		p.ConfidenceInterval, _ = decimal.NewFromString(conf)
		p.PriceRealtime, _ = decimal.NewFromString(rtPrice)
		p.ConfidenceRealtime, _ = decimal.NewFromString(rtConf)
		prices[model.MarketID(id)] = p
	}
	return prices, rows.Err()
}

// PutAccount replaces the balance list in one transaction so readers never
// see a partially written account.
func (s *PostgresStore) PutAccount(ctx context.Context, a *model.Account) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, string(a.ID)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM balances WHERE account_id = $1`, string(a.ID)); err != nil {
			return err
		}
		for i, b := range a.Balances {
			if _, err := tx.Exec(ctx,
				`INSERT INTO balances (account_id, position, bank_id, active,
				                       asset_shares, liability_shares, emissions_outstanding, last_update)
				 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
				string(a.ID), i, string(b.BankID), b.Active,
				b.AssetShares.String(), b.LiabilityShares.String(), b.EmissionsOutstanding.String(),
				b.LastUpdate,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT bank_id, active, asset_shares::TEXT, liability_shares::TEXT,
		        emissions_outstanding::TEXT, last_update
		 FROM balances WHERE account_id = $1 ORDER BY position`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	acct := &model.Account{ID: id}
	for rows.Next() {
		var b model.Balance
		var bankID, assets, liabs, emissions string
		if err := rows.Scan(&bankID, &b.Active, &assets, &liabs, &emissions, &b.LastUpdate); err != nil {
			return nil, err
		}
		b.BankID = model.MarketID(bankID)
		b.AssetShares, _ = decimal.NewFromString(assets)
		b.LiabilityShares, _ = decimal.NewFromString(liabs)
		b.EmissionsOutstanding, _ = decimal.NewFromString(emissions)
		acct.Balances = append(acct.Balances, b)
	}
	return acct, rows.Err()
}

func (s *PostgresStore) ListAccountIDs(ctx context.Context) ([]model.AccountID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []model.AccountID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, model.AccountID(id))
	}
	return ids, rows.Err()
}

func (s *PostgresStore) InsertHealthRecord(ctx context.Context, r *model.HealthRecord) error {
	c := r.Cache
	skipped := make([]string, len(c.Skipped))
	for i, id := range c.Skipped {
		skipped[i] = string(id)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO health_records (id, account_id,
		                             asset_value, liability_value,
		                             asset_value_maint, liability_value_maint,
		                             asset_value_equity, liability_value_equity,
		                             skipped, computed_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9, $10)`,
		r.ID, string(r.AccountID),
		c.AssetValue.String(), c.LiabilityValue.String(),
		c.AssetValueMaint.String(), c.LiabilityValueMaint.String(),
		c.AssetValueEquity.String(), c.LiabilityValueEquity.String(),
		skipped, c.ComputedAt,
	)
	return err
}

func (s *PostgresStore) LatestHealthRecord(ctx context.Context, id model.AccountID) (*model.HealthRecord, error) {
	var (
		r       model.HealthRecord
		values  [6]string
		skipped []string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::TEXT,
		        asset_value::TEXT, liability_value::TEXT,
		        asset_value_maint::TEXT, liability_value_maint::TEXT,
		        asset_value_equity::TEXT, liability_value_equity::TEXT,
		        skipped, computed_at
		 FROM health_records WHERE account_id = $1
		 ORDER BY computed_at DESC LIMIT 1`, string(id)).
		Scan(&r.ID,
			&values[0], &values[1], &values[2], &values[3], &values[4], &values[5],
			&skipped, &r.Cache.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("health record for %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest health record %s: %w", id, err)
	}

	r.AccountID = id
	r.Cache.AssetValue, _ = decimal.NewFromString(values[0])
	r.Cache.LiabilityValue, _ = decimal.NewFromString(values[1])
	r.Cache.AssetValueMaint, _ = decimal.NewFromString(values[2])
	r.Cache.LiabilityValueMaint, _ = decimal.NewFromString(values[3])
	r.Cache.AssetValueEquity, _ = decimal.NewFromString(values[4])
	r.Cache.LiabilityValueEquity, _ = decimal.NewFromString(values[5])
	for _, m := range skipped {
		r.Cache.Skipped = append(r.Cache.Skipped, model.MarketID(m))
	}
	return &r, nil
}

// scanBank reads one banks row. pgx.Row and pgx.Rows both satisfy it.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBank(row rowScanner) (*bank.Bank, error) {
	var (
		b                         bank.Bank
		id                        string
		risk, interest, emissions []byte
		pools                     [4]string
	)
	if err := row.Scan(&id, &b.MintDecimals, &risk, &interest, &emissions,
		&pools[0], &pools[1], &pools[2], &pools[3], &b.LastUpdate); err != nil {
		return nil, err
	}
	b.ID = model.MarketID(id)
	if err := json.Unmarshal(risk, &b.Risk); err != nil {
		return nil, fmt.Errorf("bank %s risk: %w", id, err)
	}
	if err := json.Unmarshal(interest, &b.Interest); err != nil {
		return nil, fmt.Errorf("bank %s interest: %w", id, err)
	}
	if err := json.Unmarshal(emissions, &b.Emissions); err != nil {
		return nil, fmt.Errorf("bank %s emissions: %w", id, err)
	}
	b.TotalAssetShares, _ = decimal.NewFromString(pools[0])
	b.TotalLiabilityShares, _ = decimal.NewFromString(pools[1])
	b.TotalAssetValue, _ = decimal.NewFromString(pools[2])
	b.TotalLiabilityValue, _ = decimal.NewFromString(pools[3])
	return &b, nil
}
