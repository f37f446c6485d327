package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeFarmCategoryCreated is emitted when a new pool category is
	// registered.
	TypeFarmCategoryCreated = "farm.category.created"
	// TypeFarmCategoryUpdated is emitted when a category weight changes.
	TypeFarmCategoryUpdated = "farm.category.updated"
	// TypeFarmPoolCreated is emitted when a stakeable pool is registered.
	TypeFarmPoolCreated = "farm.pool.created"
	// TypeFarmPoolUpdated is emitted when a pool's parameters change.
	TypeFarmPoolUpdated = "farm.pool.updated"
	// TypeFarmDeposit is emitted after a stake deposit settles.
	TypeFarmDeposit = "farm.deposit"
	// TypeFarmWithdraw is emitted after a stake withdrawal settles.
	TypeFarmWithdraw = "farm.withdraw"
	// TypeFarmEmergencyWithdraw is emitted when a staker exits without
	// settling rewards.
	TypeFarmEmergencyWithdraw = "farm.withdraw.emergency"
	// TypeFarmHarvest is emitted when accrued rewards are forwarded to the
	// treasury.
	TypeFarmHarvest = "farm.harvest"
)

// FarmCategoryCreated captures a newly registered category.
type FarmCategoryCreated struct {
	ID     uint64
	Weight uint64
	Label  string
}

func (FarmCategoryCreated) EventType() string { return TypeFarmCategoryCreated }

// FarmCategoryUpdated captures a category weight change.
type FarmCategoryUpdated struct {
	ID     uint64
	Weight uint64
}

func (FarmCategoryUpdated) EventType() string { return TypeFarmCategoryUpdated }

// FarmPoolCreated captures the configuration of a newly registered pool.
type FarmPoolCreated struct {
	ID                     uint64
	CategoryID             uint64
	Asset                  common.Address
	Weight                 uint64
	DepositFeeBps          uint64
	HarvestIntervalSeconds uint64
}

func (FarmPoolCreated) EventType() string { return TypeFarmPoolCreated }

// FarmPoolUpdated captures a pool parameter change.
type FarmPoolUpdated struct {
	ID                     uint64
	Weight                 uint64
	DepositFeeBps          uint64
	HarvestIntervalSeconds uint64
}

func (FarmPoolUpdated) EventType() string { return TypeFarmPoolUpdated }

// FarmDeposit records the effective amount credited after fees.
type FarmDeposit struct {
	PoolID uint64
	User   common.Address
	Amount *big.Int
	Fee    *big.Int
}

func (FarmDeposit) EventType() string { return TypeFarmDeposit }

// FarmWithdraw records a settled withdrawal.
type FarmWithdraw struct {
	PoolID uint64
	User   common.Address
	Amount *big.Int
}

func (FarmWithdraw) EventType() string { return TypeFarmWithdraw }

// FarmEmergencyWithdraw records a circuit-breaker exit. Forfeited carries the
// locked pending reward abandoned by the staker.
type FarmEmergencyWithdraw struct {
	PoolID    uint64
	User      common.Address
	Amount    *big.Int
	Forfeited *big.Int
}

func (FarmEmergencyWithdraw) EventType() string { return TypeFarmEmergencyWithdraw }

// FarmHarvest records a reward forwarding to the vesting treasury.
type FarmHarvest struct {
	PoolID uint64
	User   common.Address
	Amount *big.Int
}

func (FarmHarvest) EventType() string { return TypeFarmHarvest }
