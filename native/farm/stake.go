package farm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/core/events"
	nativecommon "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/common"
)

// Deposit stakes amount of the pool's asset for the caller. A zero amount is
// a pure harvest trigger. The settle-then-mutate order is load-bearing: pool
// and user rewards settle before any asset moves, so a reentrant callback
// cannot observe a stale baseline.
func (e *Engine) Deposit(caller common.Address, poolID uint64, amount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if e.ledger == nil {
		return nil, nil, errNilLedger
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if err := e.guard.Enter(); err != nil {
		return nil, nil, err
	}
	defer e.guard.Exit()

	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, nil, err
	}
	cat, err := e.loadCategory(pool.CategoryID)
	if err != nil {
		return nil, nil, err
	}
	if pool.Weight == 0 || cat.Weight == 0 {
		return nil, nil, ErrPoolDisabled
	}

	if _, err := e.settlePool(poolID, pool); err != nil {
		return nil, nil, err
	}
	stake, err := e.loadStake(poolID, caller)
	if err != nil {
		return nil, nil, err
	}
	if err := e.settleUser(poolID, pool, caller, stake); err != nil {
		return nil, nil, err
	}

	// Persist the settled record before any asset moves. The reward credit has
	// already been forwarded, so an aborted transfer must leave a baseline
	// consistent with it, never the pre-settle one.
	stake.RewardBaseline = baselineFor(stake.Amount, pool.AccRewardPerShare)
	if err := e.state.PutPool(poolID, pool); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutStake(poolID, caller, stake); err != nil {
		return nil, nil, err
	}

	fee := big.NewInt(0)
	effective := big.NewInt(0)
	if amount.Sign() > 0 {
		if err := e.ledger.Transfer(pool.Asset, caller, e.moduleAddress, amount); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		fee = bpsShare(amount, pool.DepositFeeBps)
		if fee.Sign() > 0 {
			if err := e.ledger.Transfer(pool.Asset, e.moduleAddress, e.feeCollector, fee); err != nil {
				if refundErr := e.ledger.Transfer(pool.Asset, e.moduleAddress, caller, amount); refundErr != nil {
					return nil, nil, fmt.Errorf("%w: %v", ErrTransferFailed, refundErr)
				}
				return nil, nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
		}
		effective = new(big.Int).Sub(amount, fee)
		stake.Amount = new(big.Int).Add(stake.Amount, effective)
		stake.NextHarvestTime = e.blockTimestamp + pool.HarvestIntervalSeconds
		stake.RewardBaseline = baselineFor(stake.Amount, pool.AccRewardPerShare)
		if err := e.state.PutStake(poolID, caller, stake); err != nil {
			return nil, nil, err
		}
	}
	e.emitter.Emit(events.FarmDeposit{PoolID: poolID, User: caller, Amount: effective, Fee: fee})
	return effective, fee, nil
}

// Withdraw unstakes amount of the pool's asset. Rewards settle first; the
// outbound transfer is the last step and a failure rolls the stake record
// back so no partial state survives.
func (e *Engine) Withdraw(caller common.Address, poolID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	stake, err := e.loadStake(poolID, caller)
	if err != nil {
		return err
	}
	if stake.Amount.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}

	if _, err := e.settlePool(poolID, pool); err != nil {
		return err
	}
	if err := e.settleUser(poolID, pool, caller, stake); err != nil {
		return err
	}
	// Fold the forwarded credit into the baseline before taking the rollback
	// snapshot, so restoring it cannot replay the credit on a later harvest.
	stake.RewardBaseline = baselineFor(stake.Amount, pool.AccRewardPerShare)

	prior := cloneStake(stake)
	stake.Amount = new(big.Int).Sub(stake.Amount, amount)
	stake.RewardBaseline = baselineFor(stake.Amount, pool.AccRewardPerShare)

	if err := e.state.PutPool(poolID, pool); err != nil {
		return err
	}
	if err := e.state.PutStake(poolID, caller, stake); err != nil {
		return err
	}
	if err := e.ledger.Transfer(pool.Asset, e.moduleAddress, caller, amount); err != nil {
		if restoreErr := e.state.PutStake(poolID, caller, prior); restoreErr != nil {
			return restoreErr
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.emitter.Emit(events.FarmWithdraw{PoolID: poolID, User: caller, Amount: copyBigInt(amount)})
	return nil
}

// EmergencyWithdraw returns the full staked amount and zeroes the position
// without settling rewards. Pending and locked rewards are forfeited; this is
// a circuit breaker for when the normal path is unsafe, e.g. a malfunctioning
// reward token.
func (e *Engine) EmergencyWithdraw(caller common.Address, poolID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if err := e.guard.Enter(); err != nil {
		return nil, err
	}
	defer e.guard.Exit()

	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	stake, err := e.loadStake(poolID, caller)
	if err != nil {
		return nil, err
	}
	amount := copyBigInt(stake.Amount)
	forfeited := copyBigInt(stake.LockedPendingReward)

	prior := cloneStake(stake)
	stake.Amount = big.NewInt(0)
	stake.RewardBaseline = big.NewInt(0)
	stake.LockedPendingReward = big.NewInt(0)
	stake.NextHarvestTime = 0
	if err := e.state.PutStake(poolID, caller, stake); err != nil {
		return nil, err
	}
	if amount.Sign() > 0 {
		if err := e.ledger.Transfer(pool.Asset, e.moduleAddress, caller, amount); err != nil {
			if restoreErr := e.state.PutStake(poolID, caller, prior); restoreErr != nil {
				return nil, restoreErr
			}
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	e.emitter.Emit(events.FarmEmergencyWithdraw{PoolID: poolID, User: caller, Amount: amount, Forfeited: forfeited})
	return amount, nil
}

// Harvest settles the caller's rewards without changing the staked amount.
// Equivalent to a zero deposit but usable on disabled pools, so stakers can
// still collect what already accrued.
func (e *Engine) Harvest(caller common.Address, poolID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if _, err := e.settlePool(poolID, pool); err != nil {
		return err
	}
	stake, err := e.loadStake(poolID, caller)
	if err != nil {
		return err
	}
	if err := e.settleUser(poolID, pool, caller, stake); err != nil {
		return err
	}
	stake.RewardBaseline = baselineFor(stake.Amount, pool.AccRewardPerShare)
	if err := e.state.PutPool(poolID, pool); err != nil {
		return err
	}
	return e.state.PutStake(poolID, caller, stake)
}

func cloneStake(s *UserStake) *UserStake {
	if s == nil {
		return &UserStake{Amount: big.NewInt(0), RewardBaseline: big.NewInt(0), LockedPendingReward: big.NewInt(0)}
	}
	return &UserStake{
		Amount:              copyBigInt(s.Amount),
		RewardBaseline:      copyBigInt(s.RewardBaseline),
		NextHarvestTime:     s.NextHarvestTime,
		LockedPendingReward: copyBigInt(s.LockedPendingReward),
	}
}
