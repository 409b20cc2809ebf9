package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juicedollar/protocol-api/internal/analytics"
	"github.com/juicedollar/protocol-api/internal/chain"
	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/indexer"
	"github.com/juicedollar/protocol-api/internal/positions"
	"github.com/juicedollar/protocol-api/internal/prices"
)

// fakePositionSource feeds the price cache a fixed snapshot.
type fakePositionSource struct {
	list []positions.Position
}

func (f *fakePositionSource) List() []positions.Position { return f.list }
func (f *fakePositionSource) Ready() bool                { return f.list != nil }

type fakePoolShareSource struct{ info *ecosystem.PoolSharesInfo }

func (f *fakePoolShareSource) Info() *ecosystem.PoolSharesInfo { return f.info }

type fakeOracle struct{ quotes map[string]*prices.Quote }

func (f *fakeOracle) FetchQuote(_ context.Context, token prices.ERC20) (*prices.Quote, error) {
	return f.quotes[token.Address], nil
}

// fakeReader serves a canned reserve state without any RPC.
type fakeReader struct{ state *chain.ReserveState }

func (f *fakeReader) ReadReserveState(context.Context) (*chain.ReserveState, error) {
	return f.state, nil
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func pricedService(t *testing.T) *prices.Service {
	t.Helper()
	mint := strings.ToLower(chain.Testnet.Deployment.JuiceDollar)
	src := &fakePositionSource{list: []positions.Position{{
		Address:            "0xaa01",
		Collateral:         "0xc001",
		CollateralName:     "Wrapped BTC",
		CollateralSymbol:   "WBTC",
		CollateralDecimals: 8,
		StablecoinAddress:  mint,
		StablecoinName:     "Juice Dollar",
		StablecoinSymbol:   "JUSD",
		StablecoinDecimals: 18,
		Principal:          tokens(10),
		LimitForClones:     tokens(100),
		Interest:           big.NewInt(0),
	}}}
	oracle := &fakeOracle{quotes: map[string]*prices.Quote{
		"0xc001": {USD: 50000, EUR: 46000, BTC: 1},
	}}
	info := &ecosystem.PoolSharesInfo{}
	info.Values.Price = 2.5
	svc := prices.NewService(src, &fakePoolShareSource{info: info}, oracle, chain.Testnet, slog.Default())
	svc.Refresh(context.Background())
	return svc
}

func TestListPricesHandler(t *testing.T) {
	h := ListPrices(pricedService(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices/list", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list []prices.Entry
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want mint + poolshare + collateral", len(list))
	}
	if list[0].Price.USD != 1 {
		t.Errorf("mint USD = %v, want pinned 1", list[0].Price.USD)
	}
	if list[1].Price.USD != 2.5 {
		t.Errorf("poolshare USD = %v, want 2.5", list[1].Price.USD)
	}
	if list[2].Price.USD != 50000 {
		t.Errorf("collateral USD = %v, want 50000", list[2].Price.USD)
	}
}

func TestListPricesEmptyCache(t *testing.T) {
	svc := prices.NewService(&fakePositionSource{}, &fakePoolShareSource{}, &fakeOracle{}, chain.Testnet, slog.Default())
	h := ListPrices(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices/list", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want empty array", body)
	}
}

func TestMintERC20NotReady(t *testing.T) {
	svc := prices.NewService(&fakePositionSource{}, &fakePoolShareSource{}, &fakeOracle{}, chain.Testnet, slog.Default())
	h := MintERC20(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices/erc20/mint", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMintERC20(t *testing.T) {
	h := MintERC20(pricedService(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices/erc20/mint", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var erc prices.ERC20
	if err := json.NewDecoder(rec.Body).Decode(&erc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if erc.Symbol != "JUSD" {
		t.Errorf("symbol = %q, want JUSD", erc.Symbol)
	}
}

func TestPoolShareERC20(t *testing.T) {
	h := PoolShareERC20(pricedService(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices/erc20/poolshares", nil))

	var erc prices.ERC20
	if err := json.NewDecoder(rec.Body).Decode(&erc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if erc.Symbol != "JUICE" {
		t.Errorf("symbol = %q, want JUICE", erc.Symbol)
	}
}

// indexerStub answers both the positions and the poolShares queries.
func indexerStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode query: %v", err)
		}
		if strings.Contains(req.Query, "poolShares") {
			w.Write([]byte(`{"data":{"poolShares":{"items":[{"id":"1","profits":"0","loss":"0"}]}}}`))
			return
		}
		w.Write([]byte(`{"data":{"positions":{"items":[]}}}`))
	}))
}

func TestPoolSharesInfoNotReady(t *testing.T) {
	ps := ecosystem.NewPoolSharesService(&fakeReader{}, nil, nil, slog.Default())
	h := PoolSharesInfo(ps)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ecosystem/poolshares/info", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestExposureNotReady(t *testing.T) {
	svc := analytics.NewService(positions.NewService(nil, slog.Default()), nil, nil, nil, nil, 5115, slog.Default())
	h := Exposure(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/poolshares/exposure", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReadyLifecycle(t *testing.T) {
	srv := indexerStub(t)
	defer srv.Close()

	idx := indexer.NewClient(srv.URL, "")
	pos := positions.NewService(idx, slog.Default())
	reader := &fakeReader{state: &chain.ReserveState{
		PoolSharePrice:  tokens(2),
		PoolShareSupply: tokens(1000),
		MinterReserve:   tokens(40),
		ReserveBalance:  tokens(100),
	}}
	ps := ecosystem.NewPoolSharesService(reader, idx, pos, slog.Default())

	h := Ready(pos, ps)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before updates: status = %d, want 503", rec.Code)
	}

	ctx := context.Background()
	if err := pos.Update(ctx); err != nil {
		t.Fatalf("positions update: %v", err)
	}
	if err := ps.Update(ctx); err != nil {
		t.Fatalf("poolshares update: %v", err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("after updates: status = %d, want 200", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
