package analytics

// CollateralRef identifies the collateral token of an exposure group.
type CollateralRef struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PositionCounts splits an exposure group by issuance kind.
type PositionCounts struct {
	Open      int `json:"open"`
	Originals int `json:"originals"`
	Clones    int `json:"clones"`
}

// MintFigures aggregates the minting state of one collateral group.
// Ratios are fractions in [0,1], rates fractions of 1 (PPM/1e6).
type MintFigures struct {
	TotalMinted            float64 `json:"totalMinted"`
	TotalContribution      float64 `json:"totalContribution"`
	TotalLimit             float64 `json:"totalLimit"`
	TotalMintedRatio       float64 `json:"totalMintedRatio"`
	InterestAverage        float64 `json:"interestAverage"`
	TotalTheta             float64 `json:"totalTheta"`
	ThetaPerPoolShareToken float64 `json:"thetaPerPoolShareToken"`
}

// WipedRisk is the simulated full-default scenario for one collateral.
type WipedRisk struct {
	PoolSharesPrice float64 `json:"poolSharesPrice"`
	RiskRatio       float64 `json:"riskRatio"`
}

// ExposureItem is the derived exposure of one distinct collateral,
// recomputed fully on each request.
type ExposureItem struct {
	Collateral       CollateralRef  `json:"collateral"`
	Positions        PositionCounts `json:"positions"`
	Mint             MintFigures    `json:"mint"`
	ReserveRiskWiped WipedRisk      `json:"reserveRiskWiped"`
}

// GeneralExposure carries the global reserve and pool-share figures.
type GeneralExposure struct {
	BalanceInReserve      float64 `json:"balanceInReserve"`
	MintersContribution   float64 `json:"mintersContribution"`
	EquityInReserve       float64 `json:"equityInReserve"`
	PoolSharesPrice       float64 `json:"poolSharesPrice"`
	PoolSharesTotalSupply float64 `json:"poolSharesTotalSupply"`
	ThetaFromPositions    float64 `json:"thetaFromPositions"`
	ThetaPerToken         float64 `json:"thetaPerToken"`
	EarningsPerAnnum      float64 `json:"earningsPerAnnum"`
	EarningsPerToken      float64 `json:"earningsPerToken"`
	PriceToEarnings       float64 `json:"priceToEarnings"`
	PriceToBookValue      float64 `json:"priceToBookValue"`
}

// AggregateExposure is the full exposure report, replaced wholesale on
// each computation.
type AggregateExposure struct {
	General   GeneralExposure `json:"general"`
	Exposures []ExposureItem  `json:"exposures"`
}

// EarningsBreakdown decomposes realized pool-share earnings into fee
// categories plus a residual. OtherContributions is the reconciliation
// remainder: nonzero drift means an unmodeled fee source.
type EarningsBreakdown struct {
	InvestFees           float64 `json:"investFees"`
	RedeemFees           float64 `json:"redeemFees"`
	MinterProposalFees   float64 `json:"minterProposalFees"`
	PositionProposalFees float64 `json:"positionProposalFees"`
	OtherProfitClaims    float64 `json:"otherProfitClaims"`
	OtherContributions   float64 `json:"otherContributions"`

	// loss or costs
	SavingsInterestCosts float64 `json:"savingsInterestCosts"`
	OtherLossClaims      float64 `json:"otherLossClaims"`
}
