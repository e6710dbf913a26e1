// Package snapshot reads market and account snapshots from YAML or JSON
// files so the engine can be run offline and replayed.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// ErrUnknownFormat is returned for a file extension other than .yaml, .yml
// or .json.
var ErrUnknownFormat = errors.New("snapshot: unknown file format")

// File is the on-disk form of a snapshot.
type File struct {
	// Now is the unix time emissions are accrued to.
	Now      int64                           `yaml:"now" json:"now"`
	Banks    []*bank.Bank                    `yaml:"banks" json:"banks"`
	Prices   map[model.MarketID]oracle.Price `yaml:"prices" json:"prices"`
	Accounts []model.Account                 `yaml:"accounts" json:"accounts"`
}

// Load reads and validates a snapshot file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	f, err := Decode(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode parses raw snapshot bytes. ext selects the format.
func Decode(raw []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every account. Banks and prices are checked when the
// engine snapshot is built.
func (f *File) Validate() error {
	for i := range f.Accounts {
		if err := f.Accounts[i].Validate(); err != nil {
			return fmt.Errorf("account %s: %w", f.Accounts[i].ID, err)
		}
	}
	return nil
}

// Snapshot builds the engine view of the file's banks and prices.
func (f *File) Snapshot() (*health.Snapshot, error) {
	return health.NewSnapshot(f.Banks, f.Prices)
}

// Account returns the account with the given id, or the only account when
// id is empty and the file holds exactly one.
func (f *File) Account(id model.AccountID) (*model.Account, error) {
	if id == "" && len(f.Accounts) == 1 {
		return &f.Accounts[0], nil
	}
	for i := range f.Accounts {
		if f.Accounts[i].ID == id {
			return &f.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("snapshot: account %q not found", id)
}
