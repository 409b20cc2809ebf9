package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCalldata(t *testing.T) {
	tests := []struct {
		sig  string
		args []string
		want string
	}{
		{"totalSupply()", nil, "0x18160ddd"},
		{"balanceOf(address)", []string{"0x2f5f8f3dab1a86d1b16a3a390f06b4f1715a7a0d"},
			"0x70a082310000000000000000000000002f5f8f3dab1a86d1b16a3a390f06b4f1715a7a0d"},
		{"price()", nil, "0xa035b1fe"},
	}
	for _, tt := range tests {
		got := calldata(tt.sig, tt.args...)
		if got != tt.want {
			t.Errorf("calldata(%q, %v) = %q, want %q", tt.sig, tt.args, got, tt.want)
		}
	}
}

func TestParseUint256(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0x0", "0", false},
		{"0x2a", "42", false},
		{"0x00000000000000000000000000000000000000000000003635c9adc5dea00000", "1000000000000000000000", false},
		{"0x", "", true},
		{"zzz", "", true},
	}
	for _, tt := range tests {
		got, err := parseUint256(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseUint256(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseUint256(%q): %v", tt.in, err)
		}
		if got.String() != tt.want {
			t.Errorf("parseUint256(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestReadReserveState(t *testing.T) {
	// One canned uint256 per call, keyed by calldata prefix.
	results := map[string]string{
		"0xa035b1fe": "0x0de0b6b3a7640000", // price() = 1e18
		"0x18160ddd": "0x1bc16d674ec80000", // totalSupply() = 2e18
		"0x70a08231": "0x8ac7230489e80000", // balanceOf = 10e18
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		call := req.Params[0].(map[string]any)
		data := call["data"].(string)

		result := "0x6f05b59d3b200000" // minterReserve() = 8e18 (default)
		for prefix, res := range results {
			if strings.HasPrefix(data, prefix) {
				result = res
			}
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":"%s"}`, result)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Testnet)
	state, err := c.ReadReserveState(context.Background())
	if err != nil {
		t.Fatalf("ReadReserveState: %v", err)
	}

	e18 := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	wantEquity := new(big.Int).Mul(big.NewInt(2), e18) // 10 − 8
	if state.EquityInReserve().Cmp(wantEquity) != 0 {
		t.Errorf("EquityInReserve = %s, want %s", state.EquityInReserve(), wantEquity)
	}
	if state.PoolSharePrice.Cmp(e18) != 0 {
		t.Errorf("PoolSharePrice = %s, want %s", state.PoolSharePrice, e18)
	}
}

func TestReadReserveStateRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Testnet)
	if _, err := c.ReadReserveState(context.Background()); err == nil {
		t.Error("expected error from rpc error response, got nil")
	}
}

func TestByName(t *testing.T) {
	if got := ByName("mainnet"); got.ID != 1 {
		t.Errorf("ByName(mainnet).ID = %d, want 1", got.ID)
	}
	if got := ByName("testnet"); got.ID != 5115 {
		t.Errorf("ByName(testnet).ID = %d, want 5115", got.ID)
	}
	if got := ByName(""); got.ID != 5115 {
		t.Errorf("ByName(\"\").ID = %d, want 5115", got.ID)
	}
}
