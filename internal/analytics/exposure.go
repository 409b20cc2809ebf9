// Package analytics derives collateral exposure and pool-share earnings
// metrics from the position, reserve and pool-share snapshots. All
// monetary accumulation runs in big-integer smallest units; floating
// point appears only at the output boundary, after summation.
package analytics

import (
	"errors"
	"math"
	"math/big"

	"github.com/juicedollar/protocol-api/internal/chain"
	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/positions"
	"github.com/juicedollar/protocol-api/internal/units"
)

// ErrNotReady signals that a required upstream snapshot has not been
// loaded yet. Callers translate it to a retriable "not ready" response,
// never to fabricated zeros.
var ErrNotReady = errors.New("upstream snapshots not ready")

// bookValueMultiplier is the reserve's fixed book-value multiple used to
// price pool shares against equity in the wiped scenario.
const bookValueMultiplier = 3

var ppmBig = big.NewInt(units.PPM)

// ComputeExposure derives the full exposure report from one consistent
// set of snapshots. Pure: identical inputs yield identical output.
func ComputeExposure(open []positions.Position, state *chain.ReserveState, info *ecosystem.PoolSharesInfo, chainID int64) (*AggregateExposure, error) {
	if open == nil || state == nil || info == nil {
		return nil, ErrNotReady
	}

	equityRaw := state.EquityInReserve()
	supply := info.Values.TotalSupply
	price := info.Values.Price

	var (
		items         []ExposureItem
		thetaSum      float64
		thetaPerToken float64
	)

	for _, group := range groupByCollateral(open) {
		item := computeItem(group, equityRaw, supply, price, chainID)
		thetaSum += item.Mint.TotalTheta
		thetaPerToken += item.Mint.ThetaPerPoolShareToken
		items = append(items, item)
	}

	general := GeneralExposure{
		BalanceInReserve:      units.FromTokenRaw(state.ReserveBalance),
		MintersContribution:   units.FromTokenRaw(state.MinterReserve),
		EquityInReserve:       units.FromTokenRaw(equityRaw),
		PoolSharesPrice:       price,
		PoolSharesTotalSupply: supply,
		ThetaFromPositions:    thetaSum,
		ThetaPerToken:         thetaPerToken,
		EarningsPerAnnum:      thetaSum * 365,
		EarningsPerToken:      thetaPerToken * 365,
		PriceToBookValue:      bookValueMultiplier,
	}
	if earnings := thetaPerToken * 365; earnings > 0 {
		general.PriceToEarnings = price / earnings
	}

	return &AggregateExposure{General: general, Exposures: items}, nil
}

type collateralGroup struct {
	positions []positions.Position
}

// groupByCollateral partitions open positions by collateral address in
// first-seen order, keeping the output deterministic.
func groupByCollateral(open []positions.Position) []collateralGroup {
	index := map[string]int{}
	var groups []collateralGroup
	for _, p := range open {
		i, ok := index[p.Collateral]
		if !ok {
			i = len(groups)
			index[p.Collateral] = i
			groups = append(groups, collateralGroup{})
		}
		groups[i].positions = append(groups[i].positions, p)
	}
	return groups
}

func computeItem(group collateralGroup, equityRaw *big.Int, supply, price float64, chainID int64) ExposureItem {
	pos := group.positions
	first := pos[0]

	var originals, clones int
	totalMinted := new(big.Int)
	totalLimit := new(big.Int)
	interestMul := new(big.Int)
	contributionMul := new(big.Int)

	for _, p := range pos {
		if p.IsOriginal {
			originals++
		}
		if p.IsClone {
			clones++
		}
		totalMinted.Add(totalMinted, p.Principal)
		totalLimit.Add(totalLimit, p.LimitForClones)

		// Effective rate inflates the nominal rate by the share diverted
		// to the reserve.
		eff := effectiveRatePPM(p.FixedAnnualRatePPM, p.ReserveContribution)
		interestMul.Add(interestMul, new(big.Int).Mul(p.Principal, big.NewInt(eff)))
		contributionMul.Add(contributionMul, new(big.Int).Mul(p.Principal, big.NewInt(p.ReserveContribution)))
	}

	// Principal-weighted average effective rate, 0 when nothing is minted.
	var interestAvgPPM int64
	if totalMinted.Sign() > 0 {
		interestAvgPPM = new(big.Int).Quo(interestMul, totalMinted).Int64()
	}
	interestAvg := units.PPMToFraction(interestAvgPPM)

	totalMintedF := units.FromTokenRaw(totalMinted)
	theta := interestAvg * totalMintedF / 365
	var thetaPerToken float64
	if supply > 0 {
		thetaPerToken = theta / supply
	}

	// Wiped scenario: all principal of this collateral defaults. The
	// already collected reserve contribution flows back to equity, the
	// minted amount is lost.
	contributionRaw := new(big.Int).Quo(contributionMul, ppmBig)
	equityWiped := new(big.Int).Add(equityRaw, contributionRaw)
	equityWiped.Sub(equityWiped, totalMinted)

	var priceWiped float64
	if supply > 0 {
		priceWiped = units.FromTokenRaw(equityWiped) * bookValueMultiplier / supply
	}
	var riskRatio float64
	if price > 0 {
		riskRatio = math.Round(units.PPM*(1-priceWiped/price)) / units.PPM
	}

	item := ExposureItem{
		Collateral: CollateralRef{
			Address: first.Collateral,
			ChainID: chainID,
			Name:    first.CollateralName,
			Symbol:  first.CollateralSymbol,
		},
		Positions: PositionCounts{Open: len(pos), Originals: originals, Clones: clones},
		Mint: MintFigures{
			TotalMinted:            totalMintedF,
			TotalContribution:      units.FromTokenRaw(contributionRaw),
			TotalLimit:             units.FromTokenRaw(totalLimit),
			TotalMintedRatio:       units.PPMToFraction(units.RatioPPM(totalMinted, totalLimit)),
			InterestAverage:        interestAvg,
			TotalTheta:             theta,
			ThetaPerPoolShareToken: thetaPerToken,
		},
		ReserveRiskWiped: WipedRisk{
			PoolSharesPrice: math.Max(priceWiped, 0),
			RiskRatio:       riskRatio,
		},
	}
	return item
}

// effectiveRatePPM computes fixed * 1e6 / (1e6 − reserveContribution) in
// integer arithmetic. A contribution of a full million would zero the
// denominator; that degenerate rate reads as 0.
func effectiveRatePPM(fixedPPM, reserveContributionPPM int64) int64 {
	den := int64(units.PPM) - reserveContributionPPM
	if den <= 0 {
		return 0
	}
	return fixedPPM * units.PPM / den
}
