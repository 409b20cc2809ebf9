package analytics

import (
	"math/big"

	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/units"
)

// positionProposalFee is the fixed fee, in units of account, charged for
// proposing an original position.
const positionProposalFee = 1000

// Reconcile decomposes total pool-share earnings into attributable fee
// categories and a residual. Stateless: recomputed per call.
//
// OtherContributions closes the books against equity in reserve; it is
// reported as-is so monitoring can catch unmodeled fee sources instead
// of the residual being silently absorbed.
func Reconcile(
	realizedProfit, realizedLoss float64,
	investFeesRaw, redeemFeesRaw *big.Int,
	minters []ecosystem.Minter,
	originalPositions int,
	equityInReserve float64,
	savingsInterestRaw *big.Int,
) *EarningsBreakdown {
	positionProposalFees := float64(positionProposalFee * originalPositions)

	investFees := units.FromRaw(investFeesRaw, units.FeePPMDecimals)
	redeemFees := units.FromRaw(redeemFeesRaw, units.FeePPMDecimals)

	var minterProposalFees float64
	for _, m := range minters {
		minterProposalFees += units.FromTokenRaw(m.ApplicationFee)
	}

	otherProfitClaims := realizedProfit - positionProposalFees - minterProposalFees
	otherContributions := equityInReserve - minterProposalFees - investFees - redeemFees -
		positionProposalFees - otherProfitClaims

	return &EarningsBreakdown{
		InvestFees:           investFees,
		RedeemFees:           redeemFees,
		MinterProposalFees:   minterProposalFees,
		PositionProposalFees: positionProposalFees,
		OtherProfitClaims:    otherProfitClaims,
		OtherContributions:   otherContributions,
		SavingsInterestCosts: units.FromTokenRaw(savingsInterestRaw),
		OtherLossClaims:      realizedLoss,
	}
}
