package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeTreasuryCredit is emitted when rewards are credited into a
	// vesting bucket.
	TypeTreasuryCredit = "treasury.credit"
	// TypeTreasuryClaim is emitted when matured buckets are paid out.
	TypeTreasuryClaim = "treasury.claim"
	// TypeTreasuryExpressClaim is emitted when buckets are consumed early
	// with a burn penalty.
	TypeTreasuryExpressClaim = "treasury.claim.express"
)

// TreasuryCredit captures a reward credit and the week it vests in.
type TreasuryCredit struct {
	User   common.Address
	Amount *big.Int
	Week   uint64
}

func (TreasuryCredit) EventType() string { return TypeTreasuryCredit }

// TreasuryClaim captures a matured payout across one or more weeks.
type TreasuryClaim struct {
	User  common.Address
	Paid  *big.Int
	Weeks []uint64
}

func (TreasuryClaim) EventType() string { return TypeTreasuryClaim }

// TreasuryExpressClaim captures an early claim with its burned penalty.
type TreasuryExpressClaim struct {
	User   common.Address
	Paid   *big.Int
	Burned *big.Int
	Weeks  []uint64
}

func (TreasuryExpressClaim) EventType() string { return TypeTreasuryExpressClaim }
