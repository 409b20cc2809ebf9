package prices

// ERC20 identifies a token the cache watches.
type ERC20 struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Quote holds the known conversion rates for one asset. EUR and BTC are
// derived cross-rates and may be absent.
type Quote struct {
	USD float64 `json:"usd"`
	EUR float64 `json:"eur,omitempty"`
	BTC float64 `json:"btc,omitempty"`
}

// Entry is one cached asset quote. Timestamp is unix milliseconds of the
// last successful fetch; 0 means no real quote has ever been obtained and
// the 1.0 USD value is a placeholder.
type Entry struct {
	ERC20
	Timestamp int64 `json:"timestamp"`
	Price     Quote `json:"price"`
}

// Report counts the outcome of one refresh cycle. Observability only.
type Report struct {
	New           int `json:"new"`
	NewFailed     int `json:"newFailed"`
	Updated       int `json:"updated"`
	UpdatedFailed int `json:"updatedFailed"`
}

func (r Report) Attempts() int { return r.New + r.Updated }
