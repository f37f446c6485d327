package farm

import "math/big"

var (
	basisPoints = big.NewInt(10_000)
	accScale    = big.NewInt(1_000_000_000_000_000_000)
)

// weightShare applies one level of the weighting hierarchy: amount * weight /
// totalWeight with truncating division. The accrual formula applies pool
// weighting before category weighting; the order is part of the observable
// rounding behaviour and must not be reordered.
func weightShare(amount *big.Int, weight, totalWeight uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || weight == 0 || totalWeight == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(weight))
	return share.Quo(share, new(big.Int).SetUint64(totalWeight))
}

// bpsShare returns amount * bps / 10000, truncated.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Quo(share, basisPoints)
}

// baselineFor computes amount * acc / 1e18, the reward baseline snapshot.
func baselineFor(amount, acc *big.Int) *big.Int {
	if amount == nil || amount.Sign() == 0 || acc == nil || acc.Sign() == 0 {
		return big.NewInt(0)
	}
	baseline := new(big.Int).Mul(amount, acc)
	return baseline.Quo(baseline, accScale)
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
