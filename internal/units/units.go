// Package units centralizes the fixed-point scales used by the protocol
// contracts: token amounts in 1e18 smallest units, rates and ratios in
// parts-per-million, and the fee ledger's PPM-scaled token amounts.
package units

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// PPM is the parts-per-million scale used for rates and ratios.
	PPM = 1_000_000

	// TokenDecimals is the decimal count of the mint and pool-share tokens.
	TokenDecimals = 18

	// FeePPMDecimals is the scale of fee ledger entries, which accumulate
	// token amounts multiplied by a PPM fee rate.
	FeePPMDecimals = TokenDecimals + 6
)

var ppmBig = big.NewInt(PPM)

// FromRaw converts an integer amount in smallest units to a display value.
// Conversion to floating point happens here, at the boundary, after all
// integer accumulation is done.
func FromRaw(raw *big.Int, decimals int32) float64 {
	if raw == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -decimals).Float64()
	return f
}

// FromTokenRaw converts a 1e18-scaled amount to a display value.
func FromTokenRaw(raw *big.Int) float64 {
	return FromRaw(raw, TokenDecimals)
}

// RatioPPM computes num * 1_000_000 / den in integer arithmetic.
// A zero denominator yields 0 rather than a division error.
func RatioPPM(num, den *big.Int) int64 {
	if den == nil || den.Sign() == 0 || num == nil {
		return 0
	}
	r := new(big.Int).Mul(num, ppmBig)
	r.Quo(r, den)
	return r.Int64()
}

// PPMToFraction scales a PPM value to a plain fraction.
func PPMToFraction(ppm int64) float64 {
	return float64(ppm) / PPM
}
