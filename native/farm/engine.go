package farm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/core/events"
	nativecommon "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/common"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/token"
)

const moduleName = "farm"

// engineState is the narrow persistence surface the engine depends on.
// PutCategory/PutPool at id == count append a new record and advance the
// count; puts at a lower id overwrite in place.
type engineState interface {
	CategoryCount() (uint64, error)
	GetCategory(id uint64) (*Category, error)
	PutCategory(id uint64, cat *Category) error
	PoolCount() (uint64, error)
	GetPool(id uint64) (*Pool, error)
	PutPool(id uint64, pool *Pool) error
	PoolIDByAsset(asset common.Address) (uint64, bool, error)
	PutPoolIDByAsset(asset common.Address, id uint64) error
	GetStake(poolID uint64, user common.Address) (*UserStake, error)
	PutStake(poolID uint64, user common.Address, stake *UserStake) error
	TotalCategoryWeight() (uint64, error)
	SetTotalCategoryWeight(total uint64) error
	GetEmission() (*Emission, error)
	PutEmission(em *Emission) error
}

// RewardSink receives harvested rewards on behalf of a user. The vesting
// treasury implements it; the engine identifies itself via the caller
// argument.
type RewardSink interface {
	CreditReward(caller, user common.Address, amount *big.Int) error
}

// Engine orchestrates pool accrual and the staking state transitions. Reward
// accounting is lazy: nothing iterates over users per block, pools settle on
// demand against the injected block height.
type Engine struct {
	state   engineState
	ledger  token.Ledger
	sink    RewardSink
	emitter events.Emitter
	pauses  nativecommon.PauseView
	guard   nativecommon.ReentrancyGuard

	owner           common.Address
	moduleAddress   common.Address
	operatorAddress common.Address
	feeCollector    common.Address
	treasuryAddress common.Address
	rewardAsset     common.Address

	blockHeight    uint64
	blockTimestamp uint64
}

// NewEngine constructs a farm engine bound to its module account (the holder
// of all staked assets) and the reward asset it emits.
func NewEngine(owner, moduleAddr, rewardAsset common.Address) *Engine {
	return &Engine{
		owner:         owner,
		moduleAddress: moduleAddr,
		rewardAsset:   rewardAsset,
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the external asset ledger client.
func (e *Engine) SetLedger(ledger token.Ledger) { e.ledger = ledger }

// SetRewardSink wires the vesting treasury that receives harvested rewards.
func (e *Engine) SetRewardSink(sink RewardSink) { e.sink = sink }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetBlockHeight records the height used when computing accrual deltas.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// SetBlockTimestamp records the unix time used for harvest-interval gating.
func (e *Engine) SetBlockTimestamp(ts uint64) {
	if e == nil {
		return
	}
	e.blockTimestamp = ts
}

// SetOwner rotates the administrative owner.
func (e *Engine) SetOwner(caller, owner common.Address) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.owner = owner
	return nil
}

// SetOperator assigns the account receiving the operator share of emissions.
func (e *Engine) SetOperator(caller, operator common.Address) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.operatorAddress = operator
	return nil
}

// SetFeeCollector assigns the account receiving deposit fees.
func (e *Engine) SetFeeCollector(caller, collector common.Address) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.feeCollector = collector
	return nil
}

// SetTreasuryAddress assigns the vesting treasury's asset account, the mint
// target for the distribution share.
func (e *Engine) SetTreasuryAddress(addr common.Address) {
	e.treasuryAddress = addr
}

// ModuleAddress returns the account holding all staked assets.
func (e *Engine) ModuleAddress() common.Address { return e.moduleAddress }

// Settle accrues the pool's share of emission for the blocks elapsed since
// its last accrual and folds it into the per-share accumulator. Disabled and
// empty pools only advance their accrual height: emission deliberately does
// not accrue to them, keeping the schedule deterministic regardless of
// participation.
func (e *Engine) Settle(poolID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if e.blockHeight <= pool.LastAccrualHeight {
		return nil
	}
	changed, err := e.settlePool(poolID, pool)
	if err != nil {
		return err
	}
	if changed {
		return e.state.PutPool(poolID, pool)
	}
	return nil
}

// SettleAll settles every registered pool. Registry edits with the withUpdate
// flag run this first so weight changes never apply retroactively.
func (e *Engine) SettleAll() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	count, err := e.state.PoolCount()
	if err != nil {
		return err
	}
	for id := uint64(0); id < count; id++ {
		if err := e.Settle(id); err != nil {
			return err
		}
	}
	return nil
}

// settlePool advances the accumulator in place and mints the accrued reward.
// It reports whether the pool record changed.
func (e *Engine) settlePool(poolID uint64, pool *Pool) (bool, error) {
	if e.blockHeight <= pool.LastAccrualHeight {
		return false, nil
	}
	reward, err := e.poolShareReward(pool, pool.LastAccrualHeight, e.blockHeight)
	if err != nil {
		return false, err
	}
	if reward.Sign() == 0 {
		pool.LastAccrualHeight = e.blockHeight
		return true, nil
	}
	staked, err := e.ledger.BalanceOf(pool.Asset, e.moduleAddress)
	if err != nil {
		return false, err
	}
	em, err := e.loadEmission()
	if err != nil {
		return false, err
	}
	// Mint before folding into the accumulator so the treasury reserve always
	// covers what the accumulator promises.
	if err := e.ledger.Mint(e.rewardAsset, e.treasuryAddress, reward); err != nil {
		return false, err
	}
	if operatorCut := bpsShare(reward, em.OperatorBps); operatorCut.Sign() > 0 {
		if err := e.ledger.Mint(e.rewardAsset, e.operatorAddress, operatorCut); err != nil {
			return false, err
		}
	}
	perShare := new(big.Int).Mul(reward, accScale)
	perShare.Quo(perShare, staked)
	pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, perShare)
	pool.LastAccrualHeight = e.blockHeight
	return true, nil
}

// poolShareReward computes the pool's slice of emission for the half-open
// height range (from, to]. Pool weighting is applied before category
// weighting; the two sequential truncating divisions are the contract's
// rounding behaviour.
func (e *Engine) poolShareReward(pool *Pool, from, to uint64) (*big.Int, error) {
	em, err := e.loadEmission()
	if err != nil {
		return nil, err
	}
	if from < em.StartHeight {
		from = em.StartHeight
	}
	if to > em.EndHeight() {
		to = em.EndHeight()
	}
	if to <= from {
		return big.NewInt(0), nil
	}
	if pool.Weight == 0 {
		return big.NewInt(0), nil
	}
	cat, err := e.state.GetCategory(pool.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil || cat.Weight == 0 || cat.TotalChildWeight == 0 {
		return big.NewInt(0), nil
	}
	totalCat, err := e.state.TotalCategoryWeight()
	if err != nil {
		return nil, err
	}
	if totalCat == 0 {
		return big.NewInt(0), nil
	}
	staked, err := e.ledger.BalanceOf(pool.Asset, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if staked.Sign() == 0 {
		return big.NewInt(0), nil
	}
	elapsed := new(big.Int).SetUint64(to - from)
	reward := new(big.Int).Mul(elapsed, em.RewardPerBlock)
	reward = weightShare(reward, pool.Weight, cat.TotalChildWeight)
	reward = weightShare(reward, cat.Weight, totalCat)
	return reward, nil
}

// PendingReward reports the user's estimated unpaid reward, including any
// amount locked behind the harvest interval, without mutating state.
func (e *Engine) PendingReward(poolID uint64, user common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	stake, err := e.loadStake(poolID, user)
	if err != nil {
		return nil, err
	}
	acc := new(big.Int).Set(pool.AccRewardPerShare)
	if e.blockHeight > pool.LastAccrualHeight {
		reward, err := e.poolShareReward(pool, pool.LastAccrualHeight, e.blockHeight)
		if err != nil {
			return nil, err
		}
		if reward.Sign() > 0 {
			staked, err := e.ledger.BalanceOf(pool.Asset, e.moduleAddress)
			if err != nil {
				return nil, err
			}
			perShare := new(big.Int).Mul(reward, accScale)
			perShare.Quo(perShare, staked)
			acc.Add(acc, perShare)
		}
	}
	pending := new(big.Int).Sub(baselineFor(stake.Amount, acc), stake.RewardBaseline)
	if pending.Sign() < 0 {
		pending = big.NewInt(0)
	}
	return pending.Add(pending, stake.LockedPendingReward), nil
}

// settleUser computes the user's accrual delta and either forwards it (plus
// any previously locked amount) to the vesting treasury or folds it into the
// locked pending balance when the harvest interval has not elapsed. The
// caller persists the mutated stake record.
func (e *Engine) settleUser(poolID uint64, pool *Pool, user common.Address, stake *UserStake) error {
	if e.sink == nil {
		return errNilSink
	}
	delta := new(big.Int).Sub(baselineFor(stake.Amount, pool.AccRewardPerShare), stake.RewardBaseline)
	if delta.Sign() < 0 {
		delta = big.NewInt(0)
	}
	if e.blockTimestamp >= stake.NextHarvestTime {
		total := new(big.Int).Add(delta, stake.LockedPendingReward)
		if total.Sign() > 0 {
			if err := e.sink.CreditReward(e.moduleAddress, user, total); err != nil {
				return err
			}
			stake.LockedPendingReward = big.NewInt(0)
			stake.NextHarvestTime = e.blockTimestamp + pool.HarvestIntervalSeconds
			e.emitter.Emit(events.FarmHarvest{PoolID: poolID, User: user, Amount: total})
		}
		return nil
	}
	if delta.Sign() > 0 {
		stake.LockedPendingReward = new(big.Int).Add(stake.LockedPendingReward, delta)
	}
	return nil
}

func (e *Engine) loadPool(poolID uint64) (*Pool, error) {
	pool, err := e.state.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrInvalidPool
	}
	if pool.AccRewardPerShare == nil {
		pool.AccRewardPerShare = big.NewInt(0)
	}
	return pool, nil
}

func (e *Engine) loadCategory(id uint64) (*Category, error) {
	cat, err := e.state.GetCategory(id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, ErrInvalidCategory
	}
	return cat, nil
}

func (e *Engine) loadStake(poolID uint64, user common.Address) (*UserStake, error) {
	stake, err := e.state.GetStake(poolID, user)
	if err != nil {
		return nil, err
	}
	if stake == nil {
		stake = &UserStake{}
	}
	if stake.Amount == nil {
		stake.Amount = big.NewInt(0)
	}
	if stake.RewardBaseline == nil {
		stake.RewardBaseline = big.NewInt(0)
	}
	if stake.LockedPendingReward == nil {
		stake.LockedPendingReward = big.NewInt(0)
	}
	return stake, nil
}

func (e *Engine) loadEmission() (*Emission, error) {
	em, err := e.state.GetEmission()
	if err != nil {
		return nil, err
	}
	if em == nil || em.RewardPerBlock == nil {
		return nil, errNilEmission
	}
	return em, nil
}
