package farm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/core/events"
	nativecommon "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/common"
)

// Registry operations. Categories and pools are addressed by dense integer
// indexes and never removed; a category or pool is disabled by setting its
// weight to zero. Every weight change updates the parent aggregate by the
// signed delta within the same operation so the invariant
// sum(child weights) == parent aggregate holds at all times.

// CreateCategory registers a new category and returns its identifier.
func (e *Engine) CreateCategory(caller common.Address, weight uint64, label string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if caller != e.owner {
		return 0, ErrUnauthorized
	}
	id, err := e.state.CategoryCount()
	if err != nil {
		return 0, err
	}
	cat := &Category{Weight: weight, Label: label}
	if err := e.state.PutCategory(id, cat); err != nil {
		return 0, err
	}
	total, err := e.state.TotalCategoryWeight()
	if err != nil {
		return 0, err
	}
	if err := e.state.SetTotalCategoryWeight(total + weight); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.FarmCategoryCreated{ID: id, Weight: weight, Label: label})
	return id, nil
}

// EditCategory updates a category weight. With withUpdate set, all pools are
// settled first so the change only affects reward computed afterwards.
func (e *Engine) EditCategory(caller common.Address, id, weight uint64, withUpdate bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	cat, err := e.loadCategory(id)
	if err != nil {
		return err
	}
	if withUpdate {
		if err := e.SettleAll(); err != nil {
			return err
		}
	}
	total, err := e.state.TotalCategoryWeight()
	if err != nil {
		return err
	}
	total = total - cat.Weight + weight
	cat.Weight = weight
	if err := e.state.PutCategory(id, cat); err != nil {
		return err
	}
	if err := e.state.SetTotalCategoryWeight(total); err != nil {
		return err
	}
	e.emitter.Emit(events.FarmCategoryUpdated{ID: id, Weight: weight})
	return nil
}

// CreatePool registers a new pool for an asset and returns its identifier.
// Each asset maps to at most one pool.
func (e *Engine) CreatePool(caller common.Address, categoryID uint64, asset common.Address, weight, depositFeeBps, harvestIntervalSeconds uint64, withUpdate bool) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if caller != e.owner {
		return 0, ErrUnauthorized
	}
	if depositFeeBps > MaxDepositFeeBps || harvestIntervalSeconds > MaxHarvestIntervalSeconds {
		return 0, ErrParameterOutOfRange
	}
	cat, err := e.loadCategory(categoryID)
	if err != nil {
		return 0, err
	}
	if _, exists, err := e.state.PoolIDByAsset(asset); err != nil {
		return 0, err
	} else if exists {
		return 0, ErrDuplicateAsset
	}
	if withUpdate {
		if err := e.SettleAll(); err != nil {
			return 0, err
		}
	}
	em, err := e.loadEmission()
	if err != nil {
		return 0, err
	}
	// A new pool starts accruing at the later of now and the emission start.
	lastAccrual := e.blockHeight
	if em.StartHeight > lastAccrual {
		lastAccrual = em.StartHeight
	}
	id, err := e.state.PoolCount()
	if err != nil {
		return 0, err
	}
	pool := &Pool{
		Asset:                  asset,
		CategoryID:             categoryID,
		Weight:                 weight,
		LastAccrualHeight:      lastAccrual,
		AccRewardPerShare:      big.NewInt(0),
		DepositFeeBps:          depositFeeBps,
		HarvestIntervalSeconds: harvestIntervalSeconds,
	}
	if err := e.state.PutPool(id, pool); err != nil {
		return 0, err
	}
	if err := e.state.PutPoolIDByAsset(asset, id); err != nil {
		return 0, err
	}
	cat.TotalChildWeight += weight
	if err := e.state.PutCategory(categoryID, cat); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.FarmPoolCreated{
		ID:                     id,
		CategoryID:             categoryID,
		Asset:                  asset,
		Weight:                 weight,
		DepositFeeBps:          depositFeeBps,
		HarvestIntervalSeconds: harvestIntervalSeconds,
	})
	return id, nil
}

// EditPool updates a pool's weight, deposit fee, and harvest interval.
func (e *Engine) EditPool(caller common.Address, poolID, weight, depositFeeBps, harvestIntervalSeconds uint64, withUpdate bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if depositFeeBps > MaxDepositFeeBps || harvestIntervalSeconds > MaxHarvestIntervalSeconds {
		return ErrParameterOutOfRange
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if withUpdate {
		if err := e.SettleAll(); err != nil {
			return err
		}
		// Reload: SettleAll advanced the accumulator.
		pool, err = e.loadPool(poolID)
		if err != nil {
			return err
		}
	}
	cat, err := e.loadCategory(pool.CategoryID)
	if err != nil {
		return err
	}
	cat.TotalChildWeight = cat.TotalChildWeight - pool.Weight + weight
	pool.Weight = weight
	pool.DepositFeeBps = depositFeeBps
	pool.HarvestIntervalSeconds = harvestIntervalSeconds
	if err := e.state.PutPool(poolID, pool); err != nil {
		return err
	}
	if err := e.state.PutCategory(pool.CategoryID, cat); err != nil {
		return err
	}
	e.emitter.Emit(events.FarmPoolUpdated{
		ID:                     poolID,
		Weight:                 weight,
		DepositFeeBps:          depositFeeBps,
		HarvestIntervalSeconds: harvestIntervalSeconds,
	})
	return nil
}

// SetEmissionSchedule replaces the global reward schedule. With withUpdate
// set, pools settle under the old schedule first.
func (e *Engine) SetEmissionSchedule(caller common.Address, em *Emission, withUpdate bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if em == nil || em.RewardPerBlock == nil || em.RewardPerBlock.Sign() < 0 || em.OperatorBps > 10_000 {
		return ErrParameterOutOfRange
	}
	if withUpdate {
		if err := e.SettleAll(); err != nil {
			return err
		}
	}
	return e.state.PutEmission(em.Clone())
}

// Emission returns the current reward schedule.
func (e *Engine) Emission() (*Emission, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	em, err := e.loadEmission()
	if err != nil {
		return nil, err
	}
	return em.Clone(), nil
}

// Category returns the category record for the given id.
func (e *Engine) Category(id uint64) (*Category, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadCategory(id)
}

// Categories lists all categories in registration order.
func (e *Engine) Categories() ([]*Category, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	count, err := e.state.CategoryCount()
	if err != nil {
		return nil, err
	}
	out := make([]*Category, 0, count)
	for id := uint64(0); id < count; id++ {
		cat, err := e.loadCategory(id)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

// Pool returns the pool record for the given id.
func (e *Engine) Pool(id uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadPool(id)
}

// Pools lists all pools in registration order.
func (e *Engine) Pools() ([]*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	count, err := e.state.PoolCount()
	if err != nil {
		return nil, err
	}
	out := make([]*Pool, 0, count)
	for id := uint64(0); id < count; id++ {
		pool, err := e.loadPool(id)
		if err != nil {
			return nil, err
		}
		out = append(out, pool)
	}
	return out, nil
}

// PoolByAsset resolves the pool bound to an asset, if any.
func (e *Engine) PoolByAsset(asset common.Address) (uint64, bool, error) {
	if e == nil || e.state == nil {
		return 0, false, errNilState
	}
	return e.state.PoolIDByAsset(asset)
}

// Stake returns the user's position in a pool.
func (e *Engine) Stake(poolID uint64, user common.Address) (*UserStake, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, err := e.loadPool(poolID); err != nil {
		return nil, err
	}
	return e.loadStake(poolID, user)
}
