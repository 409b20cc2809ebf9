package ecosystem

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juicedollar/protocol-api/internal/chain"
	"github.com/juicedollar/protocol-api/internal/indexer"
	"github.com/juicedollar/protocol-api/internal/positions"
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// fakeReader implements chain.Reader with fixed values.
type fakeReader struct {
	state *chain.ReserveState
	err   error
}

func (f *fakeReader) ReadReserveState(ctx context.Context) (*chain.ReserveState, error) {
	return f.state, f.err
}

func indexerFor(t *testing.T, body string) *indexer.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return indexer.NewClient(srv.URL, "")
}

func emptyPositions(t *testing.T) *positions.Service {
	t.Helper()
	pos := positions.NewService(indexerFor(t, `{"data":{"positions":{"items":[]}}}`), slog.Default())
	if err := pos.Update(context.Background()); err != nil {
		t.Fatalf("positions update: %v", err)
	}
	return pos
}

func TestPoolSharesUpdate(t *testing.T) {
	reader := &fakeReader{state: &chain.ReserveState{
		PoolSharePrice:  tokens(2),
		PoolShareSupply: tokens(1000),
		MinterReserve:   tokens(40),
		ReserveBalance:  tokens(100),
	}}
	idx := indexerFor(t, `{"data":{"poolShares":{"items":[{"id":"1","profits":"5000000000000000000","loss":"1000000000000000000"}]}}}`)

	s := NewPoolSharesService(reader, idx, emptyPositions(t), slog.Default())
	if s.Info() != nil {
		t.Error("Info() non-nil before first update")
	}
	if err := s.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	info := s.Info()
	if info == nil {
		t.Fatal("Info() nil after update")
	}
	if info.Values.Price != 2 || info.Values.TotalSupply != 1000 {
		t.Errorf("values = %+v, want price 2 supply 1000", info.Values)
	}
	if info.Values.PoolSharesMarketCap != 2000 {
		t.Errorf("market cap = %v, want 2000", info.Values.PoolSharesMarketCap)
	}
	if info.Reserve.Balance != 100 || info.Reserve.Minter != 40 || info.Reserve.Equity != 60 {
		t.Errorf("reserve = %+v, want 100/40/60", info.Reserve)
	}
	if info.Earnings.Profit != 5 || info.Earnings.Loss != 1 {
		t.Errorf("earnings = %+v, want profit 5 loss 1", info.Earnings)
	}
	if s.TotalSupply() != 1000 {
		t.Errorf("TotalSupply() = %v, want 1000", s.TotalSupply())
	}
}

func TestPoolSharesUpdateKeepsOldInfoOnFailure(t *testing.T) {
	reader := &fakeReader{state: &chain.ReserveState{
		PoolSharePrice:  tokens(1),
		PoolShareSupply: tokens(10),
		MinterReserve:   tokens(1),
		ReserveBalance:  tokens(2),
	}}
	idx := indexerFor(t, `{"data":{"poolShares":{"items":[{"id":"1","profits":"0","loss":"0"}]}}}`)

	s := NewPoolSharesService(reader, idx, emptyPositions(t), slog.Default())
	if err := s.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reader.err = fmt.Errorf("rpc down")
	if err := s.Update(context.Background()); err == nil {
		t.Fatal("expected error when chain read fails")
	}
	if s.Info() == nil {
		t.Error("previous info must survive a failed update")
	}
}

func TestPoolSharesNegativeEquityFlagged(t *testing.T) {
	// Minter reserve above balance: flagged but not fatal.
	reader := &fakeReader{state: &chain.ReserveState{
		PoolSharePrice:  tokens(1),
		PoolShareSupply: tokens(10),
		MinterReserve:   tokens(5),
		ReserveBalance:  tokens(3),
	}}
	idx := indexerFor(t, `{"data":{"poolShares":{"items":[{"id":"1","profits":"0","loss":"0"}]}}}`)

	s := NewPoolSharesService(reader, idx, emptyPositions(t), slog.Default())
	if err := s.Update(context.Background()); err != nil {
		t.Fatalf("Update with negative equity must not fail: %v", err)
	}
	if got := s.Info().Reserve.Equity; got != -2 {
		t.Errorf("equity = %v, want -2", got)
	}
}
