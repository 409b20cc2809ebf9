// Package positions holds the snapshot of the protocol's lending
// positions, refreshed from the indexer. The snapshot is immutable
// between refreshes and replaced wholesale on each update.
package positions

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/juicedollar/protocol-api/internal/indexer"
)

// Position is one open or historical lending position. Monetary fields
// are raw integers in smallest units (1e18); rates are PPM.
type Position struct {
	Address             string   `json:"position"`
	Collateral          string   `json:"collateral"`
	CollateralName      string   `json:"collateralName"`
	CollateralSymbol    string   `json:"collateralSymbol"`
	CollateralDecimals  int32    `json:"collateralDecimals"`
	StablecoinAddress   string   `json:"stablecoinAddress"`
	StablecoinName      string   `json:"stablecoinName"`
	StablecoinSymbol    string   `json:"stablecoinSymbol"`
	StablecoinDecimals  int32    `json:"stablecoinDecimals"`
	Principal           *big.Int `json:"principal"`
	LimitForClones      *big.Int `json:"limitForClones"`
	FixedAnnualRatePPM  int64    `json:"fixedAnnualRatePPM"`
	ReserveContribution int64    `json:"reserveContribution"`
	IsOriginal          bool     `json:"isOriginal"`
	IsClone             bool     `json:"isClone"`
	Closed              bool     `json:"closed"`
	Denied              bool     `json:"denied"`
	Interest            *big.Int `json:"interest"`
}

// Open reports whether the position still participates in exposure.
func (p *Position) Open() bool { return !p.Closed && !p.Denied }

const positionsQuery = `{
  positions(orderBy: "id", limit: 1000) {
    items {
      id
      collateral
      collateralName
      collateralSymbol
      collateralDecimals
      stablecoinAddress
      stablecoinName
      stablecoinSymbol
      stablecoinDecimals
      principal
      limitForClones
      fixedAnnualRatePPM
      reserveContribution
      isOriginal
      isClone
      closed
      denied
      interest
    }
  }
}`

// positionItem is the raw indexer row; big integers arrive as strings
// and are converted at this boundary, never passed through untyped.
type positionItem struct {
	ID                  string `json:"id"`
	Collateral          string `json:"collateral"`
	CollateralName      string `json:"collateralName"`
	CollateralSymbol    string `json:"collateralSymbol"`
	CollateralDecimals  int32  `json:"collateralDecimals"`
	StablecoinAddress   string `json:"stablecoinAddress"`
	StablecoinName      string `json:"stablecoinName"`
	StablecoinSymbol    string `json:"stablecoinSymbol"`
	StablecoinDecimals  int32  `json:"stablecoinDecimals"`
	Principal           string `json:"principal"`
	LimitForClones      string `json:"limitForClones"`
	FixedAnnualRatePPM  int64  `json:"fixedAnnualRatePPM"`
	ReserveContribution int64  `json:"reserveContribution"`
	IsOriginal          bool   `json:"isOriginal"`
	IsClone             bool   `json:"isClone"`
	Closed              bool   `json:"closed"`
	Denied              bool   `json:"denied"`
	Interest            string `json:"interest"`
}

type positionsResponse struct {
	Positions struct {
		Items []positionItem `json:"items"`
	} `json:"positions"`
}

// Service owns the position snapshot.
type Service struct {
	logger  *slog.Logger
	indexer *indexer.Client

	mu     sync.RWMutex
	list   []Position
	byID   map[string]Position
	loaded bool
}

func NewService(idx *indexer.Client, logger *slog.Logger) *Service {
	return &Service{logger: logger, indexer: idx}
}

// Update fetches a fresh snapshot and replaces the current one.
func (s *Service) Update(ctx context.Context) error {
	var resp positionsResponse
	if err := s.indexer.Query(ctx, positionsQuery, &resp); err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	list := make([]Position, 0, len(resp.Positions.Items))
	byID := make(map[string]Position, len(resp.Positions.Items))
	for _, item := range resp.Positions.Items {
		p, err := item.convert()
		if err != nil {
			s.logger.Warn("skipping malformed position", "id", item.ID, "error", err)
			continue
		}
		list = append(list, p)
		byID[p.Address] = p
	}

	s.mu.Lock()
	s.list = list
	s.byID = byID
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("positions updated", "count", len(list))
	return nil
}

func (item *positionItem) convert() (Position, error) {
	principal, err := parseBig(item.Principal)
	if err != nil {
		return Position{}, fmt.Errorf("principal: %w", err)
	}
	limit, err := parseBig(item.LimitForClones)
	if err != nil {
		return Position{}, fmt.Errorf("limitForClones: %w", err)
	}
	interest, err := parseBig(item.Interest)
	if err != nil {
		return Position{}, fmt.Errorf("interest: %w", err)
	}

	return Position{
		Address:             strings.ToLower(item.ID),
		Collateral:          strings.ToLower(item.Collateral),
		CollateralName:      item.CollateralName,
		CollateralSymbol:    item.CollateralSymbol,
		CollateralDecimals:  item.CollateralDecimals,
		StablecoinAddress:   strings.ToLower(item.StablecoinAddress),
		StablecoinName:      item.StablecoinName,
		StablecoinSymbol:    item.StablecoinSymbol,
		StablecoinDecimals:  item.StablecoinDecimals,
		Principal:           principal,
		LimitForClones:      limit,
		FixedAnnualRatePPM:  item.FixedAnnualRatePPM,
		ReserveContribution: item.ReserveContribution,
		IsOriginal:          item.IsOriginal,
		IsClone:             item.IsClone,
		Closed:              item.Closed,
		Denied:              item.Denied,
		Interest:            interest,
	}, nil
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", s)
	}
	return v, nil
}

// Ready reports whether a snapshot has ever been loaded. An empty list
// after a successful fetch still counts as ready.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// List returns the full snapshot in indexer order.
func (s *Service) List() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Position, len(s.list))
	copy(out, s.list)
	return out
}

// ByID returns the snapshot keyed by position address.
func (s *Service) ByID() map[string]Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Position, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}

// Open returns positions that are neither closed nor denied.
func (s *Service) Open() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Position
	for _, p := range s.list {
		if p.Open() {
			out = append(out, p)
		}
	}
	return out
}
