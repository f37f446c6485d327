package treasury

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/core/events"
	nativecommon "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/common"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/token"
)

const moduleName = "treasury"

// ledgerState is the narrow persistence surface for the vesting ledger. The
// week set for a user contains exactly the weeks whose bucket amount is
// positive; PutWeeks replaces the set wholesale.
type ledgerState interface {
	GetBucket(user common.Address, week uint64) (*big.Int, error)
	PutBucket(user common.Address, week uint64, amount *big.Int) error
	DeleteBucket(user common.Address, week uint64) error
	GetWeeks(user common.Address) ([]uint64, error)
	PutWeeks(user common.Address, weeks []uint64) error
	TotalLocked() (*big.Int, error)
	SetTotalLocked(total *big.Int) error
	GetParams() (*Params, error)
	PutParams(p *Params) error
}

// Treasury is the weekly-bucketed vesting ledger. It receives reward credits
// from the farm engine, gates claims by maturity, and supports express claims
// that burn a penalty fraction of unmatured buckets. It is decoupled from
// pool mechanics entirely: any authorized caller can credit.
type Treasury struct {
	state   ledgerState
	ledger  token.Ledger
	emitter events.Emitter
	pauses  nativecommon.PauseView
	guard   nativecommon.ReentrancyGuard

	owner            common.Address
	moduleAddress    common.Address
	authorizedCaller common.Address
	rewardAsset      common.Address

	now uint64
}

// New constructs a treasury bound to its asset account and reward asset.
func New(owner, moduleAddr, rewardAsset common.Address) *Treasury {
	return &Treasury{
		owner:         owner,
		moduleAddress: moduleAddr,
		rewardAsset:   rewardAsset,
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the treasury to the external persistence layer.
func (t *Treasury) SetState(state ledgerState) { t.state = state }

// SetLedger wires the external asset ledger client.
func (t *Treasury) SetLedger(ledger token.Ledger) { t.ledger = ledger }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (t *Treasury) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

func (t *Treasury) SetPauses(p nativecommon.PauseView) {
	if t == nil {
		return
	}
	t.pauses = p
}

// SetNow records the unix time used for week derivation.
func (t *Treasury) SetNow(ts uint64) {
	if t == nil {
		return
	}
	t.now = ts
}

// SetOwner rotates the administrative owner.
func (t *Treasury) SetOwner(caller, owner common.Address) error {
	if caller != t.owner {
		return ErrUnauthorized
	}
	t.owner = owner
	return nil
}

// SetAuthorizedCaller designates the identity allowed to credit rewards,
// normally the farm module account.
func (t *Treasury) SetAuthorizedCaller(caller, authorized common.Address) error {
	if caller != t.owner {
		return ErrUnauthorized
	}
	t.authorizedCaller = authorized
	return nil
}

// ModuleAddress returns the account holding the reward reserve.
func (t *Treasury) ModuleAddress() common.Address { return t.moduleAddress }

// ClockedCreditor refreshes the treasury clock before every credit so bucket
// weeks derive from the moment of the credit, not the last explicit SetNow.
type ClockedCreditor struct {
	treasury *Treasury
	now      func() uint64
}

// Clocked wraps the treasury as a reward sink driven by the given clock.
func (t *Treasury) Clocked(now func() uint64) *ClockedCreditor {
	return &ClockedCreditor{treasury: t, now: now}
}

func (c *ClockedCreditor) CreditReward(caller, user common.Address, amount *big.Int) error {
	if c.now != nil {
		c.treasury.SetNow(c.now())
	}
	return c.treasury.CreditReward(caller, user, amount)
}

// SetParams validates and persists the vesting configuration.
func (t *Treasury) SetParams(caller common.Address, p *Params) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if caller != t.owner {
		return ErrUnauthorized
	}
	p = p.Clone().Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	return t.state.PutParams(p)
}

// Params returns the active vesting configuration.
func (t *Treasury) Params() (*Params, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	return t.loadParams()
}

// CurrentWeek derives the bucket number for the injected clock.
func (t *Treasury) CurrentWeek() (uint64, error) {
	params, err := t.loadParams()
	if err != nil {
		return 0, err
	}
	return t.now / params.WeekSeconds, nil
}

// maxClaimableWeek is the newest week whose buckets have passed the unlock
// offset.
func maxClaimableWeek(now uint64, params *Params) uint64 {
	if now < params.UnlockOffsetSeconds {
		return 0
	}
	return (now - params.UnlockOffsetSeconds) / params.WeekSeconds
}

// CreditReward books amount into the bucket vesting lockupWeeks from now.
// Only the authorized caller may credit; a zero amount is a no-op. The credit
// is rejected when it would promise more than the reward reserve holds.
func (t *Treasury) CreditReward(caller, user common.Address, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if t.ledger == nil {
		return errNilLedger
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return err
	}
	if caller != t.authorizedCaller {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := t.guard.Enter(); err != nil {
		return err
	}
	defer t.guard.Exit()

	params, err := t.loadParams()
	if err != nil {
		return err
	}
	totalLocked, err := t.loadTotalLocked()
	if err != nil {
		return err
	}
	reserve, err := t.ledger.BalanceOf(t.rewardAsset, t.moduleAddress)
	if err != nil {
		return err
	}
	promised := new(big.Int).Add(totalLocked, amount)
	if promised.Cmp(reserve) > 0 {
		return ErrInsufficientReserve
	}

	week := t.now/params.WeekSeconds + params.LockupWeeks
	bucket, err := t.loadBucket(user, week)
	if err != nil {
		return err
	}
	created := bucket.Sign() == 0
	bucket = bucket.Add(bucket, amount)
	if err := t.state.PutBucket(user, week, bucket); err != nil {
		return err
	}
	if created {
		weeks, err := t.state.GetWeeks(user)
		if err != nil {
			return err
		}
		weeks = append(weeks, week)
		sort.Slice(weeks, func(i, j int) bool { return weeks[i] < weeks[j] })
		if err := t.state.PutWeeks(user, weeks); err != nil {
			return err
		}
	}
	if err := t.state.SetTotalLocked(promised); err != nil {
		return err
	}
	t.emitter.Emit(events.TreasuryCredit{User: user, Amount: new(big.Int).Set(amount), Week: week})
	return nil
}

// claimSelection is the set of buckets consumed by a claim, kept for
// compensating restore when the outbound transfer fails.
type claimSelection struct {
	weeks      []uint64
	amounts    map[uint64]*big.Int
	priorWeeks []uint64
	priorTotal *big.Int
}

// ClaimReward pays out every requested bucket that exists and has matured.
// Weeks that are unknown or still locked are silently skipped; sparse and
// partial claims are an expected usage pattern, not an error.
func (t *Treasury) ClaimReward(user common.Address, requested []uint64) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	if t.ledger == nil {
		return nil, errNilLedger
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := t.guard.Enter(); err != nil {
		return nil, err
	}
	defer t.guard.Exit()

	params, err := t.loadParams()
	if err != nil {
		return nil, err
	}
	maxWeek := maxClaimableWeek(t.now, params)

	sel, payable, err := t.consumeBuckets(user, requested, func(week uint64) bool {
		return week <= maxWeek
	})
	if err != nil {
		return nil, err
	}
	if payable.Sign() == 0 {
		return big.NewInt(0), nil
	}
	paid, err := t.payOut(user, sel, payable)
	if err != nil {
		return nil, err
	}
	t.emitter.Emit(events.TreasuryClaim{User: user, Paid: paid, Weeks: sel.weeks})
	return paid, nil
}

// ClaimRewardExpress consumes every requested bucket regardless of maturity.
// Unmatured buckets burn the configured penalty fraction and pay the
// remainder; matured buckets pay in full. One aggregate burn and one
// aggregate payout are executed, never one per bucket.
func (t *Treasury) ClaimRewardExpress(user common.Address, requested []uint64) (*big.Int, *big.Int, error) {
	if t == nil || t.state == nil {
		return nil, nil, errNilState
	}
	if t.ledger == nil {
		return nil, nil, errNilLedger
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if err := t.guard.Enter(); err != nil {
		return nil, nil, err
	}
	defer t.guard.Exit()

	params, err := t.loadParams()
	if err != nil {
		return nil, nil, err
	}
	maxWeek := maxClaimableWeek(t.now, params)

	sel, consumed, err := t.consumeBuckets(user, requested, func(uint64) bool { return true })
	if err != nil {
		return nil, nil, err
	}
	if consumed.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}

	burned := big.NewInt(0)
	for _, week := range sel.weeks {
		if week > maxWeek {
			penalty := new(big.Int).Mul(sel.amounts[week], new(big.Int).SetUint64(params.BurnBps))
			penalty.Quo(penalty, big.NewInt(10_000))
			burned.Add(burned, penalty)
		}
	}
	payable := new(big.Int).Sub(consumed, burned)

	if burned.Sign() > 0 {
		if err := t.ledger.Burn(t.rewardAsset, t.moduleAddress, burned); err != nil {
			if restoreErr := t.restoreSelection(user, sel); restoreErr != nil {
				return nil, nil, restoreErr
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	paid, err := t.payOut(user, sel, payable)
	if err != nil {
		// payOut restored the buckets and totalLocked; the burn must be
		// compensated too or the reserve would stay short of totalLocked.
		if burned.Sign() > 0 {
			if mintErr := t.ledger.Mint(t.rewardAsset, t.moduleAddress, burned); mintErr != nil {
				return nil, nil, mintErr
			}
		}
		return nil, nil, err
	}
	t.emitter.Emit(events.TreasuryExpressClaim{User: user, Paid: paid, Burned: burned, Weeks: sel.weeks})
	return paid, burned, nil
}

// consumeBuckets removes every requested bucket accepted by the eligibility
// predicate, updates the week set and totalLocked, and returns the selection
// for potential rollback together with the summed amount.
func (t *Treasury) consumeBuckets(user common.Address, requested []uint64, eligible func(uint64) bool) (*claimSelection, *big.Int, error) {
	weeks, err := t.state.GetWeeks(user)
	if err != nil {
		return nil, nil, err
	}
	owned := make(map[uint64]bool, len(weeks))
	for _, w := range weeks {
		owned[w] = true
	}

	sel := &claimSelection{
		amounts:    make(map[uint64]*big.Int),
		priorWeeks: append([]uint64(nil), weeks...),
	}
	total := big.NewInt(0)
	seen := make(map[uint64]bool, len(requested))
	for _, week := range requested {
		if seen[week] || !owned[week] || !eligible(week) {
			continue
		}
		seen[week] = true
		bucket, err := t.loadBucket(user, week)
		if err != nil {
			return nil, nil, err
		}
		if bucket.Sign() == 0 {
			continue
		}
		sel.weeks = append(sel.weeks, week)
		sel.amounts[week] = bucket
		total.Add(total, bucket)
	}
	if total.Sign() == 0 {
		return sel, total, nil
	}

	remaining := make([]uint64, 0, len(weeks))
	for _, w := range weeks {
		if _, claimed := sel.amounts[w]; !claimed {
			remaining = append(remaining, w)
		}
	}
	for _, week := range sel.weeks {
		if err := t.state.DeleteBucket(user, week); err != nil {
			return nil, nil, err
		}
	}
	if err := t.state.PutWeeks(user, remaining); err != nil {
		return nil, nil, err
	}
	totalLocked, err := t.loadTotalLocked()
	if err != nil {
		return nil, nil, err
	}
	sel.priorTotal = new(big.Int).Set(totalLocked)
	totalLocked = new(big.Int).Sub(totalLocked, total)
	if totalLocked.Sign() < 0 {
		totalLocked = big.NewInt(0)
	}
	if err := t.state.SetTotalLocked(totalLocked); err != nil {
		return nil, nil, err
	}
	return sel, total, nil
}

// payOut transfers payable to the user, clamped to the reserve actually held
// so rounding drift can never make the ledger promise more than it owns. A
// failed transfer restores the consumed buckets.
func (t *Treasury) payOut(user common.Address, sel *claimSelection, payable *big.Int) (*big.Int, error) {
	reserve, err := t.ledger.BalanceOf(t.rewardAsset, t.moduleAddress)
	if err != nil {
		return nil, err
	}
	paid := new(big.Int).Set(payable)
	if paid.Cmp(reserve) > 0 {
		paid = new(big.Int).Set(reserve)
	}
	if paid.Sign() == 0 {
		return paid, nil
	}
	if err := t.ledger.Transfer(t.rewardAsset, t.moduleAddress, user, paid); err != nil {
		if restoreErr := t.restoreSelection(user, sel); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return paid, nil
}

func (t *Treasury) restoreSelection(user common.Address, sel *claimSelection) error {
	for week, amount := range sel.amounts {
		if err := t.state.PutBucket(user, week, amount); err != nil {
			return err
		}
	}
	if err := t.state.PutWeeks(user, sel.priorWeeks); err != nil {
		return err
	}
	if sel.priorTotal != nil {
		return t.state.SetTotalLocked(sel.priorTotal)
	}
	return nil
}

// WeeksToPay lists every week holding a bucket for the user, ascending.
func (t *Treasury) WeeksToPay(user common.Address) ([]uint64, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	weeks, err := t.state.GetWeeks(user)
	if err != nil {
		return nil, err
	}
	out := append([]uint64(nil), weeks...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ClaimableWeeksToPay lists the user's matured weeks, ascending.
func (t *Treasury) ClaimableWeeksToPay(user common.Address) ([]uint64, error) {
	weeks, err := t.WeeksToPay(user)
	if err != nil {
		return nil, err
	}
	params, err := t.loadParams()
	if err != nil {
		return nil, err
	}
	maxWeek := maxClaimableWeek(t.now, params)
	out := make([]uint64, 0, len(weeks))
	for _, w := range weeks {
		if w <= maxWeek {
			out = append(out, w)
		}
	}
	return out, nil
}

// BucketAmount returns the amount vesting in the given week for the user.
func (t *Treasury) BucketAmount(user common.Address, week uint64) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	return t.loadBucket(user, week)
}

// TotalOwed sums every bucket currently owed to the user.
func (t *Treasury) TotalOwed(user common.Address) (*big.Int, error) {
	weeks, err := t.WeeksToPay(user)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, week := range weeks {
		bucket, err := t.loadBucket(user, week)
		if err != nil {
			return nil, err
		}
		total.Add(total, bucket)
	}
	return total, nil
}

// TotalLocked returns the aggregate amount owed across all users.
func (t *Treasury) TotalLocked() (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	return t.loadTotalLocked()
}

func (t *Treasury) loadParams() (*Params, error) {
	params, err := t.state.GetParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, ErrInvalidParams
	}
	return params.Clone().Normalize(), nil
}

func (t *Treasury) loadBucket(user common.Address, week uint64) (*big.Int, error) {
	bucket, err := t.state.GetBucket(user, week)
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bucket), nil
}

func (t *Treasury) loadTotalLocked() (*big.Int, error) {
	total, err := t.state.TotalLocked()
	if err != nil {
		return nil, err
	}
	if total == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(total), nil
}
