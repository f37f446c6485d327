package farm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MaxDepositFeeBps caps the deposit fee at 4%.
	MaxDepositFeeBps uint64 = 400
	// MaxHarvestIntervalSeconds caps the harvest gate at one day.
	MaxHarvestIntervalSeconds uint64 = 86_400
)

// Category groups pools that share a slice of the top-level emission split.
// TotalChildWeight always equals the sum of the weights of the pools that
// reference the category; the registry updates both sides in the same
// operation.
type Category struct {
	Weight           uint64
	TotalChildWeight uint64
	Label            string
}

// Pool is the accounting record for a single stakeable asset. Amount values
// are wei-style integers; AccRewardPerShare carries 1e18 fixed-point
// precision and is monotonically non-decreasing.
type Pool struct {
	Asset                  common.Address
	CategoryID             uint64
	Weight                 uint64
	LastAccrualHeight      uint64
	AccRewardPerShare      *big.Int
	DepositFeeBps          uint64
	HarvestIntervalSeconds uint64
}

// UserStake is the per-(pool, user) position. RewardBaseline equals
// Amount*AccRewardPerShare/1e18 immediately after every mutation, which makes
// pending-reward computation a pure function of current state.
type UserStake struct {
	Amount              *big.Int
	RewardBaseline      *big.Int
	NextHarvestTime     uint64
	LockedPendingReward *big.Int
}

// Emission is the global reward schedule. RewardPerBlock is the distribution
// share minted to the treasury; the operator account additionally receives
// OperatorBps of every pool reward.
type Emission struct {
	RewardPerBlock *big.Int
	StartHeight    uint64
	DurationBlocks uint64
	OperatorBps    uint64
}

// EndHeight returns the height after which no further reward accrues.
func (e *Emission) EndHeight() uint64 {
	if e == nil {
		return 0
	}
	return e.StartHeight + e.DurationBlocks
}

// Clone produces a deep copy of the schedule.
func (e *Emission) Clone() *Emission {
	if e == nil {
		return nil
	}
	clone := &Emission{
		StartHeight:    e.StartHeight,
		DurationBlocks: e.DurationBlocks,
		OperatorBps:    e.OperatorBps,
	}
	if e.RewardPerBlock != nil {
		clone.RewardPerBlock = new(big.Int).Set(e.RewardPerBlock)
	}
	return clone
}
