// Package chain reads protocol state from an EVM node over JSON-RPC.
// Only a handful of view functions are needed, so calls are encoded by
// hand instead of pulling in a full contract binding stack.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// ReserveState is a point-in-time read of the reserve and pool-share
// contracts, in raw smallest units (1e18).
type ReserveState struct {
	PoolSharePrice  *big.Int // Equity.price()
	PoolShareSupply *big.Int // Equity.totalSupply()
	MinterReserve   *big.Int // JuiceDollar.minterReserve()
	ReserveBalance  *big.Int // JuiceDollar.balanceOf(equity)
}

// EquityInReserve returns balance − minter. May be negative on bad or
// transient upstream data; callers flag that case, they do not crash.
func (r *ReserveState) EquityInReserve() *big.Int {
	return new(big.Int).Sub(r.ReserveBalance, r.MinterReserve)
}

// Reader is the on-chain reserve/equity reader consumed by the ecosystem
// and analytics layers.
type Reader interface {
	ReadReserveState(ctx context.Context) (*ReserveState, error)
}

// Client is a minimal eth_call JSON-RPC client.
type Client struct {
	rpcURL string
	chain  Chain
	client *http.Client
}

func NewClient(rpcURL string, chain Chain) *Client {
	return &Client{
		rpcURL: rpcURL,
		chain:  chain,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Chain() Chain { return c.chain }

func (c *Client) ReadReserveState(ctx context.Context) (*ReserveState, error) {
	equity := c.chain.Deployment.Equity
	jusd := c.chain.Deployment.JuiceDollar

	price, err := c.call(ctx, equity, calldata("price()"))
	if err != nil {
		return nil, fmt.Errorf("read pool share price: %w", err)
	}
	supply, err := c.call(ctx, equity, calldata("totalSupply()"))
	if err != nil {
		return nil, fmt.Errorf("read pool share supply: %w", err)
	}
	minter, err := c.call(ctx, jusd, calldata("minterReserve()"))
	if err != nil {
		return nil, fmt.Errorf("read minter reserve: %w", err)
	}
	balance, err := c.call(ctx, jusd, calldata("balanceOf(address)", equity))
	if err != nil {
		return nil, fmt.Errorf("read reserve balance: %w", err)
	}

	return &ReserveState{
		PoolSharePrice:  price,
		PoolShareSupply: supply,
		MinterReserve:   minter,
		ReserveBalance:  balance,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call issues eth_call against the latest block and decodes a single
// uint256 return value.
func (c *Client) call(ctx context.Context, to, data string) (*big.Int, error) {
	payload, _ := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params:  []any{map[string]string{"to": to, "data": data}, "latest"},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc status: %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}

	return parseUint256(out.Result)
}

func parseUint256(hexResult string) (*big.Int, error) {
	s := strings.TrimPrefix(hexResult, "0x")
	if s == "" {
		return nil, fmt.Errorf("empty eth_call result")
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("malformed eth_call result %q", hexResult)
	}
	return v, nil
}

// calldata builds the 4-byte selector for sig plus 32-byte padded address
// arguments.
func calldata(sig string, addrArgs ...string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	data := fmt.Sprintf("0x%x", h.Sum(nil)[:4])
	for _, a := range addrArgs {
		a = strings.ToLower(strings.TrimPrefix(a, "0x"))
		data += strings.Repeat("0", 64-len(a)) + a
	}
	return data
}
