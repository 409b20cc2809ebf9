// Package sources holds the external price source adapters.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/juicedollar/protocol-api/internal/prices"
	"golang.org/x/time/rate"
)

const coingeckoAPI = "https://pro-api.coingecko.com"

// symbolIDs maps testnet token symbols to Coingecko ids so testnet
// deployments still see real prices. A curated allow-list: anything not
// listed here is unresolvable on the fallback network.
var symbolIDs = map[string]string{
	"WCBTC": "bitcoin",
	"WBTC":  "bitcoin",
	"BTC":   "bitcoin",
	"WETH":  "ethereum",
	"ETH":   "ethereum",
}

// Coingecko fetches token quotes by contract address on mainnet and by
// the curated symbol table elsewhere.
type Coingecko struct {
	client  *http.Client
	baseURL string
	apiKey  string
	chainID int64
	limiter *rate.Limiter
}

func NewCoingecko(apiKey string, chainID int64) *Coingecko {
	return &Coingecko{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: coingeckoAPI,
		apiKey:  apiKey,
		chainID: chainID,
		// Coingecko pro allows a generous budget; half a request per
		// second keeps a full refresh burst well inside it.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

// FetchQuote resolves one token. A (nil, nil) return means the source
// cannot price this asset at all; the cache substitutes its placeholder.
func (c *Coingecko) FetchQuote(ctx context.Context, token prices.ERC20) (*prices.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.chainID == 1 {
		return c.fetchByAddress(ctx, token)
	}
	return c.fetchBySymbol(ctx, token)
}

func (c *Coingecko) fetchByAddress(ctx context.Context, token prices.ERC20) (*prices.Quote, error) {
	url := fmt.Sprintf("%s/api/v3/simple/token_price/ethereum?contract_addresses=%s&vs_currencies=usd,eur,btc&x_cg_pro_api_key=%s",
		c.baseURL, strings.ToLower(token.Address), c.apiKey)

	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	q, ok := data[strings.ToLower(token.Address)]
	if !ok || q["usd"] == 0 {
		return nil, fmt.Errorf("no price data for %s (%s)", token.Symbol, token.Address)
	}
	return &prices.Quote{USD: q["usd"], EUR: q["eur"], BTC: q["btc"]}, nil
}

func (c *Coingecko) fetchBySymbol(ctx context.Context, token prices.ERC20) (*prices.Quote, error) {
	id := symbolIDs[strings.ToUpper(token.Symbol)]
	if id == "" {
		return nil, nil // not on the allow-list
	}

	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd,eur,btc&x_cg_pro_api_key=%s",
		c.baseURL, id, c.apiKey)

	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	q, ok := data[id]
	if !ok || q["usd"] == 0 {
		return nil, fmt.Errorf("no price data for %s via %s", token.Symbol, id)
	}
	return &prices.Quote{USD: q["usd"], EUR: q["eur"], BTC: q["btc"]}, nil
}

func (c *Coingecko) get(ctx context.Context, url string) (map[string]map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko API status: %d", resp.StatusCode)
	}

	var data map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode coingecko response: %w", err)
	}
	return data, nil
}
