package analytics

import (
	"log/slog"
	"sync"

	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/positions"
)

// Service gathers the current snapshots, runs the exposure and earnings
// computations and memoizes the last exposure result. The memo is
// replaced wholesale on each computation; readers never observe a
// partially updated aggregate.
type Service struct {
	logger     *slog.Logger
	positions  *positions.Service
	poolShares *ecosystem.PoolSharesService
	ledger     *ecosystem.FeeLedger
	minters    *ecosystem.MinterRegistry
	savings    *ecosystem.SavingsTracker
	chainID    int64

	mu       sync.RWMutex
	exposure *AggregateExposure
}

func NewService(
	pos *positions.Service,
	ps *ecosystem.PoolSharesService,
	ledger *ecosystem.FeeLedger,
	minters *ecosystem.MinterRegistry,
	savings *ecosystem.SavingsTracker,
	chainID int64,
	logger *slog.Logger,
) *Service {
	return &Service{
		logger:     logger,
		positions:  pos,
		poolShares: ps,
		ledger:     ledger,
		minters:    minters,
		savings:    savings,
		chainID:    chainID,
	}
}

// Exposure recomputes the aggregate exposure from the current snapshots.
// Returns ErrNotReady until positions and pool-share state have loaded.
func (s *Service) Exposure() (*AggregateExposure, error) {
	if !s.positions.Ready() {
		return nil, ErrNotReady
	}
	open := s.positions.Open()
	if open == nil {
		open = []positions.Position{}
	}

	expo, err := ComputeExposure(open, s.poolShares.ReserveState(), s.poolShares.Info(), s.chainID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.exposure = expo
	s.mu.Unlock()
	return expo, nil
}

// LastExposure returns the memoized result of the previous computation,
// or nil when none has succeeded yet.
func (s *Service) LastExposure() *AggregateExposure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exposure
}

// Earnings reconciles pool-share earnings against the fee ledgers using
// a fresh exposure computation.
func (s *Service) Earnings() (*EarningsBreakdown, error) {
	expo, err := s.Exposure()
	if err != nil {
		return nil, err
	}
	info := s.poolShares.Info()

	var originals int
	for _, p := range s.positions.List() {
		if p.IsOriginal {
			originals++
		}
	}

	breakdown := Reconcile(
		info.Earnings.Profit, info.Earnings.Loss,
		s.ledger.Amount(ecosystem.KeyInvestedFeePaid),
		s.ledger.Amount(ecosystem.KeyRedeemedFeePaid),
		s.minters.List(),
		originals,
		expo.General.EquityInReserve,
		s.savings.TotalInterest(),
	)
	return breakdown, nil
}
