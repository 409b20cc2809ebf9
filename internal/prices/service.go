// Package prices maintains the multi-source price cache: per-asset USD
// quotes with staleness-driven refresh and per-asset source fallback.
package prices

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/juicedollar/protocol-api/internal/chain"
	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/positions"
)

// stalenessWindow is the maximum age of a quote before a refetch is
// attempted.
const stalenessWindow = 300_000 * time.Millisecond

const (
	poolShareName   = "Juice Protocol"
	poolShareSymbol = "JUICE"
)

// PositionSource supplies the position snapshot the watch-list derives from.
type PositionSource interface {
	List() []positions.Position
	Ready() bool
}

// PoolShareSource supplies the on-chain pool-share price.
type PoolShareSource interface {
	Info() *ecosystem.PoolSharesInfo
}

// Oracle fetches a quote for one asset from the external price source.
// A nil quote with a nil error means the asset is not resolvable there.
type Oracle interface {
	FetchQuote(ctx context.Context, token ERC20) (*Quote, error)
}

// Service owns the asset→quote mapping. All mutation goes through
// Refresh, which merges copy-on-write so readers always observe either
// the pre- or post-refresh mapping.
type Service struct {
	logger     *slog.Logger
	positions  PositionSource
	poolShares PoolShareSource
	oracle     Oracle
	chain      chain.Chain
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

func NewService(pos PositionSource, ps PoolShareSource, oracle Oracle, ch chain.Chain, logger *slog.Logger) *Service {
	return &Service{
		logger:     logger,
		positions:  pos,
		poolShares: ps,
		oracle:     oracle,
		chain:      ch,
		now:        time.Now,
		entries:    map[string]Entry{},
	}
}

// List returns all cached entries in insertion order.
func (s *Service) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.entries[addr])
	}
	return out
}

// Mapping returns the cache keyed by lowercase address.
func (s *Service) Mapping() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Get returns the entry for one asset address.
func (s *Service) Get(address string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[strings.ToLower(address)]
	return e, ok
}

// Mint returns the mint token's ERC20 info, derived from the position
// snapshot. Nil until positions are known.
func (s *Service) Mint() *ERC20 {
	list := s.positions.List()
	if len(list) == 0 {
		return nil
	}
	p := list[0]
	return &ERC20{
		Address:  p.StablecoinAddress,
		Name:     p.StablecoinName,
		Symbol:   p.StablecoinSymbol,
		Decimals: p.StablecoinDecimals,
	}
}

// PoolShareToken returns the pool-share token's ERC20 info.
func (s *Service) PoolShareToken() ERC20 {
	return ERC20{
		Address:  s.chain.Deployment.Equity,
		Name:     poolShareName,
		Symbol:   poolShareSymbol,
		Decimals: 18,
	}
}

// Collateral returns the distinct collateral tokens of the current
// position snapshot, keyed by lowercase address.
func (s *Service) Collateral() map[string]ERC20 {
	out := map[string]ERC20{}
	for _, erc := range s.collateralOrdered() {
		out[strings.ToLower(erc.Address)] = erc
	}
	return out
}

// collateralOrdered lists distinct collaterals in first-seen snapshot
// order, which keeps refresh and the cache's insertion order stable.
func (s *Service) collateralOrdered() []ERC20 {
	seen := map[string]bool{}
	var out []ERC20
	for _, p := range s.positions.List() {
		addr := strings.ToLower(p.Collateral)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, ERC20{
			Address:  p.Collateral,
			Name:     p.CollateralName,
			Symbol:   p.CollateralSymbol,
			Decimals: p.CollateralDecimals,
		})
	}
	return out
}

// PoolSharePrice returns the pool-share quote rounded to 4 decimals,
// from the cache when present, else straight from chain state.
func (s *Service) PoolSharePrice() Quote {
	addr := strings.ToLower(s.chain.Deployment.Equity)
	if e, ok := s.Get(addr); ok && e.Timestamp > 0 {
		return Quote{USD: math.Round(e.Price.USD*10000) / 10000}
	}
	if q := s.fetchFromPoolShares(); q != nil {
		return Quote{USD: math.Round(q.USD*10000) / 10000}
	}
	return Quote{}
}

// EuroPrice derives the price of EUR in USD by composing an already
// cached quote that carries both currencies. No extra network call.
func (s *Service) EuroPrice() Quote {
	for _, e := range s.List() {
		if e.Timestamp > 0 && e.Price.USD > 0 && e.Price.EUR > 0 {
			return Quote{USD: e.Price.USD / e.Price.EUR}
		}
	}
	return Quote{}
}

// Refresh runs one cache update cycle: pin the mint token, fetch new
// watch-list assets, refetch stale ones. One asset's failure never
// aborts the batch; a failed refetch leaves the old entry untouched.
func (s *Service) Refresh(ctx context.Context) Report {
	var rep Report

	mint := s.Mint()
	collateral := s.collateralOrdered()
	if mint == nil || len(collateral) == 0 {
		s.logger.Debug("price refresh skipped, position snapshot not ready")
		return rep
	}

	nowMS := s.now().UnixMilli()
	pending := map[string]Entry{}
	var pendingOrder []string
	stage := func(e Entry) {
		if _, dup := pending[e.Address]; !dup {
			pendingOrder = append(pendingOrder, e.Address)
		}
		pending[e.Address] = e
	}

	// The mint token is the protocol's own unit of account: pinned to
	// exactly 1 USD, written once, never fetched.
	mintAddr := strings.ToLower(mint.Address)
	if _, ok := s.Get(mintAddr); !ok {
		e := Entry{ERC20: *mint, Timestamp: nowMS, Price: Quote{USD: 1}}
		e.Address = mintAddr
		stage(e)
	}

	watch := append([]ERC20{s.PoolShareToken()}, collateral...)

	for _, erc := range watch {
		addr := strings.ToLower(erc.Address)
		old, cached := s.Get(addr)

		switch {
		case !cached:
			rep.New++
			s.logger.Debug("price not cached, fetching", "symbol", erc.Symbol, "address", addr)
			quote := s.fetch(ctx, erc)
			e := Entry{ERC20: erc, Timestamp: nowMS, Price: Quote{USD: 1}}
			e.Address = addr
			if quote == nil || quote.USD == 0 {
				rep.NewFailed++
				e.Timestamp = 0 // sentinel: placeholder, not a real quote
			} else {
				e.Price = *quote
			}
			stage(e)

		case old.Timestamp+stalenessWindow.Milliseconds() < nowMS:
			rep.Updated++
			s.logger.Debug("price out of date, fetching", "symbol", erc.Symbol, "address", addr)
			quote := s.fetch(ctx, erc)
			if quote == nil || quote.USD == 0 {
				rep.UpdatedFailed++ // stale beats fabricated: keep old entry
				continue
			}
			e := Entry{ERC20: erc, Timestamp: nowMS, Price: *quote}
			e.Address = addr
			stage(e)
		}
	}

	s.deriveCrossRates(pending)
	s.merge(pending, pendingOrder)

	if rep.Attempts() > 0 {
		s.logger.Info("prices merged",
			"new", rep.New-rep.NewFailed, "new_attempted", rep.New,
			"updated", rep.Updated-rep.UpdatedFailed, "updated_attempted", rep.Updated)
	}
	return rep
}

// fetch resolves one asset through its fallback chain. Errors collapse
// to nil; the caller decides placeholder semantics.
func (s *Service) fetch(ctx context.Context, erc ERC20) *Quote {
	if strings.EqualFold(erc.Address, s.chain.Deployment.Equity) {
		return s.fetchFromPoolShares()
	}

	quote, err := s.oracle.FetchQuote(ctx, erc)
	if err != nil {
		s.logger.Warn("oracle fetch failed", "symbol", erc.Symbol, "error", err)
		return nil
	}
	return quote
}

// fetchFromPoolShares derives the pool-share quote from chain state. The
// on-chain price is denominated in the unit of account; compose it with
// the cached mint quote when one exists, else use it directly.
func (s *Service) fetchFromPoolShares() *Quote {
	info := s.poolShares.Info()
	if info == nil || info.Values.Price == 0 {
		return nil
	}
	usd := info.Values.Price
	if mint := s.Mint(); mint != nil {
		if e, ok := s.Get(mint.Address); ok && e.Price.USD > 0 {
			usd *= e.Price.USD
		}
	}
	return &Quote{USD: usd}
}

// deriveCrossRates fills missing EUR/BTC rates on pending entries by
// composing with any quote that already knows both currencies, keeping
// external calls at one per asset.
func (s *Service) deriveCrossRates(pending map[string]Entry) {
	var eurPerUSD, btcPerUSD float64
	scan := func(e Entry) {
		if e.Price.USD <= 0 || e.Timestamp == 0 {
			return
		}
		if eurPerUSD == 0 && e.Price.EUR > 0 {
			eurPerUSD = e.Price.EUR / e.Price.USD
		}
		if btcPerUSD == 0 && e.Price.BTC > 0 {
			btcPerUSD = e.Price.BTC / e.Price.USD
		}
	}
	for _, e := range pending {
		scan(e)
	}
	for _, e := range s.List() {
		scan(e)
	}
	if eurPerUSD == 0 && btcPerUSD == 0 {
		return
	}

	for addr, e := range pending {
		if e.Timestamp == 0 || e.Price.USD <= 0 {
			continue
		}
		if e.Price.EUR == 0 && eurPerUSD > 0 {
			e.Price.EUR = e.Price.USD * eurPerUSD
		}
		if e.Price.BTC == 0 && btcPerUSD > 0 {
			e.Price.BTC = e.Price.USD * btcPerUSD
		}
		pending[addr] = e
	}
}

// merge replaces the mapping with old ∪ pending in one step. The cache
// never shrinks; new addresses extend the insertion order.
func (s *Service) merge(pending map[string]Entry, pendingOrder []string) {
	if len(pending) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]Entry, len(s.entries)+len(pending))
	for k, v := range s.entries {
		next[k] = v
	}
	order := make([]string, len(s.order), len(s.order)+len(pending))
	copy(order, s.order)

	for _, addr := range pendingOrder {
		if _, known := next[addr]; !known {
			order = append(order, addr)
		}
		next[addr] = pending[addr]
	}

	s.entries = next
	s.order = order
}

// Restore seeds the cache from a checkpoint, preserving the stored
// timestamps so staleness resumes correctly after a restart.
func (s *Service) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		addr := strings.ToLower(e.Address)
		if _, known := s.entries[addr]; !known {
			s.order = append(s.order, addr)
		}
		e.Address = addr
		s.entries[addr] = e
	}
}
