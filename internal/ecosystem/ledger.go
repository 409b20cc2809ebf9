package ecosystem

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/juicedollar/protocol-api/internal/indexer"
)

// Fee ledger keys written by the equity contract.
const (
	KeyInvestedFeePaid = "Equity:InvestedFeePaidPPM"
	KeyRedeemedFeePaid = "Equity:RedeemedFeePaidPPM"
)

const keyValuesQuery = `{
  stablecoinKeyValues(limit: 1000) {
    items {
      id
      amount
    }
  }
}`

type keyValuesResponse struct {
	StablecoinKeyValues struct {
		Items []struct {
			ID     string `json:"id"`
			Amount string `json:"amount"`
		} `json:"items"`
	} `json:"stablecoinKeyValues"`
}

// FeeLedger mirrors the stablecoin contract's key/value fee counters.
// Missing keys read as zero.
type FeeLedger struct {
	logger  *slog.Logger
	indexer *indexer.Client

	mu      sync.RWMutex
	amounts map[string]*big.Int
}

func NewFeeLedger(idx *indexer.Client, logger *slog.Logger) *FeeLedger {
	return &FeeLedger{logger: logger, indexer: idx, amounts: map[string]*big.Int{}}
}

func (l *FeeLedger) Update(ctx context.Context) error {
	var resp keyValuesResponse
	if err := l.indexer.Query(ctx, keyValuesQuery, &resp); err != nil {
		return fmt.Errorf("fetch fee ledger: %w", err)
	}

	amounts := make(map[string]*big.Int, len(resp.StablecoinKeyValues.Items))
	for _, item := range resp.StablecoinKeyValues.Items {
		v, ok := new(big.Int).SetString(item.Amount, 10)
		if !ok {
			l.logger.Warn("skipping malformed fee ledger entry", "key", item.ID, "amount", item.Amount)
			continue
		}
		amounts[item.ID] = v
	}

	l.mu.Lock()
	l.amounts = amounts
	l.mu.Unlock()
	return nil
}

// Amount returns the ledger value for key, or zero when absent.
func (l *FeeLedger) Amount(key string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.amounts[key]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

const mintersQuery = `{
  minters(limit: 1000) {
    items {
      id
      applicationFee
    }
  }
}`

type mintersResponse struct {
	Minters struct {
		Items []struct {
			ID             string `json:"id"`
			ApplicationFee string `json:"applicationFee"`
		} `json:"items"`
	} `json:"minters"`
}

// Minter is one entry of the minter registry.
type Minter struct {
	Address        string   `json:"address"`
	ApplicationFee *big.Int `json:"applicationFee"`
}

// MinterRegistry tracks proposed minter modules and their application fees.
type MinterRegistry struct {
	logger  *slog.Logger
	indexer *indexer.Client

	mu   sync.RWMutex
	list []Minter
}

func NewMinterRegistry(idx *indexer.Client, logger *slog.Logger) *MinterRegistry {
	return &MinterRegistry{logger: logger, indexer: idx}
}

func (m *MinterRegistry) Update(ctx context.Context) error {
	var resp mintersResponse
	if err := m.indexer.Query(ctx, mintersQuery, &resp); err != nil {
		return fmt.Errorf("fetch minters: %w", err)
	}

	list := make([]Minter, 0, len(resp.Minters.Items))
	for _, item := range resp.Minters.Items {
		fee, ok := new(big.Int).SetString(item.ApplicationFee, 10)
		if !ok {
			m.logger.Warn("skipping malformed minter", "id", item.ID, "fee", item.ApplicationFee)
			continue
		}
		list = append(list, Minter{Address: item.ID, ApplicationFee: fee})
	}

	m.mu.Lock()
	m.list = list
	m.mu.Unlock()
	return nil
}

func (m *MinterRegistry) List() []Minter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Minter, len(m.list))
	copy(out, m.list)
	return out
}

const savingsQuery = `{
  savingsStates(orderBy: "id", orderDirection: "desc", limit: 1) {
    items {
      id
      totalInterest
    }
  }
}`

type savingsResponse struct {
	SavingsStates struct {
		Items []struct {
			ID            string `json:"id"`
			TotalInterest string `json:"totalInterest"`
		} `json:"items"`
	} `json:"savingsStates"`
}

// SavingsTracker reads the accumulated savings interest paid out by the
// protocol, an earnings cost in the reconciliation.
type SavingsTracker struct {
	indexer *indexer.Client

	mu            sync.RWMutex
	totalInterest *big.Int
}

func NewSavingsTracker(idx *indexer.Client) *SavingsTracker {
	return &SavingsTracker{indexer: idx, totalInterest: new(big.Int)}
}

func (s *SavingsTracker) Update(ctx context.Context) error {
	var resp savingsResponse
	if err := s.indexer.Query(ctx, savingsQuery, &resp); err != nil {
		return fmt.Errorf("fetch savings state: %w", err)
	}
	if len(resp.SavingsStates.Items) == 0 {
		return nil // nothing saved yet
	}
	v, ok := new(big.Int).SetString(resp.SavingsStates.Items[0].TotalInterest, 10)
	if !ok {
		return fmt.Errorf("malformed totalInterest %q", resp.SavingsStates.Items[0].TotalInterest)
	}

	s.mu.Lock()
	s.totalInterest = v
	s.mu.Unlock()
	return nil
}

// TotalInterest returns the raw accumulated interest (1e18).
func (s *SavingsTracker) TotalInterest() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.totalInterest)
}
