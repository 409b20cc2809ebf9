// Package ecosystem tracks protocol-level chain and indexer state: the
// pool-share token, the reserve, the fee ledger and the minter registry.
package ecosystem

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/juicedollar/protocol-api/internal/chain"
	"github.com/juicedollar/protocol-api/internal/indexer"
	"github.com/juicedollar/protocol-api/internal/positions"
	"github.com/juicedollar/protocol-api/internal/units"
)

// PoolSharesInfo is the API view of the pool-share token and the reserve.
type PoolSharesInfo struct {
	Earnings struct {
		Profit           float64 `json:"profit"`
		Loss             float64 `json:"loss"`
		UnrealizedProfit float64 `json:"unrealizedProfit"`
	} `json:"earnings"`
	Values struct {
		Price              float64 `json:"price"`
		TotalSupply        float64 `json:"totalSupply"`
		PoolSharesMarketCap float64 `json:"poolSharesMarketCap"`
	} `json:"values"`
	Reserve struct {
		Balance float64 `json:"balance"`
		Equity  float64 `json:"equity"`
		Minter  float64 `json:"minter"`
	} `json:"reserve"`
}

const poolSharesQuery = `{
  poolShares(orderBy: "id", orderDirection: "desc", limit: 1) {
    items {
      id
      profits
      loss
    }
  }
}`

type poolSharesResponse struct {
	PoolShares struct {
		Items []struct {
			ID      string `json:"id"`
			Profits string `json:"profits"`
			Loss    string `json:"loss"`
		} `json:"items"`
	} `json:"poolShares"`
}

// PoolSharesService reads pool-share and reserve state from the chain and
// realized profit/loss from the indexer.
type PoolSharesService struct {
	logger    *slog.Logger
	reader    chain.Reader
	indexer   *indexer.Client
	positions *positions.Service

	mu    sync.RWMutex
	info  *PoolSharesInfo
	state *chain.ReserveState
}

func NewPoolSharesService(reader chain.Reader, idx *indexer.Client, pos *positions.Service, logger *slog.Logger) *PoolSharesService {
	return &PoolSharesService{logger: logger, reader: reader, indexer: idx, positions: pos}
}

// Update refreshes chain state and realized earnings. The previous info
// survives any failure.
func (s *PoolSharesService) Update(ctx context.Context) error {
	state, err := s.reader.ReadReserveState(ctx)
	if err != nil {
		return fmt.Errorf("read reserve state: %w", err)
	}

	var resp poolSharesResponse
	if err := s.indexer.Query(ctx, poolSharesQuery, &resp); err != nil {
		return fmt.Errorf("fetch pool share earnings: %w", err)
	}
	if len(resp.PoolShares.Items) == 0 {
		return fmt.Errorf("no pool share earnings records")
	}
	rec := resp.PoolShares.Items[0]

	profits, ok := new(big.Int).SetString(rec.Profits, 10)
	if !ok {
		return fmt.Errorf("malformed profits %q", rec.Profits)
	}
	loss, ok := new(big.Int).SetString(rec.Loss, 10)
	if !ok {
		return fmt.Errorf("malformed loss %q", rec.Loss)
	}

	equity := state.EquityInReserve()
	if equity.Sign() < 0 {
		// Transiently possible when reads straddle a block; flagged, not fatal.
		s.logger.Warn("negative equity in reserve",
			"balance", state.ReserveBalance.String(),
			"minter", state.MinterReserve.String())
	}

	info := &PoolSharesInfo{}
	info.Earnings.Profit = units.FromTokenRaw(profits)
	info.Earnings.Loss = units.FromTokenRaw(loss)
	info.Earnings.UnrealizedProfit = units.FromTokenRaw(s.unrealizedProfit())
	info.Values.Price = units.FromTokenRaw(state.PoolSharePrice)
	info.Values.TotalSupply = units.FromTokenRaw(state.PoolShareSupply)
	info.Values.PoolSharesMarketCap = info.Values.Price * info.Values.TotalSupply
	info.Reserve.Balance = units.FromTokenRaw(state.ReserveBalance)
	info.Reserve.Equity = units.FromTokenRaw(equity)
	info.Reserve.Minter = units.FromTokenRaw(state.MinterReserve)

	s.mu.Lock()
	s.info = info
	s.state = state
	s.mu.Unlock()

	return nil
}

// unrealizedProfit sums accrued interest over open, non-denied positions.
func (s *PoolSharesService) unrealizedProfit() *big.Int {
	total := new(big.Int)
	for _, p := range s.positions.Open() {
		total.Add(total, p.Interest)
	}
	return total
}

// Info returns the latest pool-share info, or nil before the first
// successful update.
func (s *PoolSharesService) Info() *PoolSharesInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// ReserveState returns the raw chain figures backing Info.
func (s *PoolSharesService) ReserveState() *chain.ReserveState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TotalSupply returns the pool-share supply, 0 before the first update.
func (s *PoolSharesService) TotalSupply() float64 {
	if info := s.Info(); info != nil {
		return info.Values.TotalSupply
	}
	return 0
}
