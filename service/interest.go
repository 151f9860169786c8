package service

import (
	"math/big"

	"stakeledger/models"
)

const (
	// Rates are annual simple interest in basis points.
	bpsDenominator = 10_000
	daysPerYear    = 365
)

// SimpleInterest computes earnings for principal held at rateBps for lockDays:
// amount * rateBps * lockDays / (10_000 * 365), floored. Multiplying first and
// dividing last keeps realistic rates from truncating to zero, and big.Int
// keeps the intermediate product from overflowing for any int64 principal.
func SimpleInterest(amount, rateBps int64, lockDays int) int64 {
	if amount <= 0 || rateBps <= 0 || lockDays <= 0 {
		return 0
	}

	product := new(big.Int).SetInt64(amount)
	product.Mul(product, big.NewInt(rateBps))
	product.Mul(product, big.NewInt(int64(lockDays)))
	product.Quo(product, big.NewInt(bpsDenominator*daysPerYear))

	return product.Int64()
}

// StakeEarnings computes the earnings a stake accrues over its full lock at
// its creation-time rate. Earnings are fixed at lock completion; time held
// past maturity earns nothing extra.
func StakeEarnings(stake *models.Stake) int64 {
	return SimpleInterest(stake.Amount, stake.RateBps, stake.DurationDays)
}
