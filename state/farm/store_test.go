package farm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	nativefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/farm"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/storage"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/token"
)

type recordingSink struct {
	total *big.Int
}

func (s *recordingSink) CreditReward(caller, user common.Address, amount *big.Int) error {
	if s.total == nil {
		s.total = big.NewInt(0)
	}
	s.total.Add(s.total, amount)
	return nil
}

func testAddr(suffix byte) common.Address {
	var a common.Address
	a[len(a)-1] = suffix
	return a
}

func TestStoreAppendSemantics(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	count, err := store.CategoryCount()
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, store.PutCategory(0, &nativefarm.Category{Weight: 2, Label: "lp"}))
	count, err = store.CategoryCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	// Overwrite in place does not advance the count.
	require.NoError(t, store.PutCategory(0, &nativefarm.Category{Weight: 5, Label: "lp"}))
	count, err = store.CategoryCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	cat, err := store.GetCategory(0)
	require.NoError(t, err)
	require.EqualValues(t, 5, cat.Weight)
	require.Equal(t, "lp", cat.Label)

	missing, err := store.GetCategory(9)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStoreRoundTripsRecords(t *testing.T) {
	db := storage.NewMemDB()
	store := NewStore(db)

	pool := &nativefarm.Pool{
		Asset:                  testAddr(0x11),
		CategoryID:             0,
		Weight:                 10,
		LastAccrualHeight:      42,
		AccRewardPerShare:      big.NewInt(123_456_789),
		DepositFeeBps:          200,
		HarvestIntervalSeconds: 3600,
	}
	require.NoError(t, store.PutPool(0, pool))
	require.NoError(t, store.PutPoolIDByAsset(pool.Asset, 0))

	stake := &nativefarm.UserStake{
		Amount:              big.NewInt(1000),
		RewardBaseline:      big.NewInt(77),
		NextHarvestTime:     999,
		LockedPendingReward: big.NewInt(3),
	}
	require.NoError(t, store.PutStake(0, testAddr(0xaa), stake))

	// A fresh store over the same database sees everything.
	reopened := NewStore(db)
	gotPool, err := reopened.GetPool(0)
	require.NoError(t, err)
	require.Equal(t, pool.Asset, gotPool.Asset)
	require.EqualValues(t, 42, gotPool.LastAccrualHeight)
	require.Zero(t, gotPool.AccRewardPerShare.Cmp(pool.AccRewardPerShare))

	id, ok, err := reopened.PoolIDByAsset(pool.Asset)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, id)

	gotStake, err := reopened.GetStake(0, testAddr(0xaa))
	require.NoError(t, err)
	require.Zero(t, gotStake.Amount.Cmp(stake.Amount))
	require.Zero(t, gotStake.LockedPendingReward.Cmp(stake.LockedPendingReward))
	require.EqualValues(t, 999, gotStake.NextHarvestTime)
}

func TestEngineRunsOnStore(t *testing.T) {
	db := storage.NewMemDB()
	store := NewStore(db)
	ledger := token.NewMemLedger()
	sink := &recordingSink{}

	owner := testAddr(0x01)
	moduleAcct := testAddr(0x02)
	rewardAsset := testAddr(0x10)
	lpAsset := testAddr(0x11)
	staker := testAddr(0xaa)

	engine := nativefarm.NewEngine(owner, moduleAcct, rewardAsset)
	engine.SetState(store)
	engine.SetLedger(ledger)
	engine.SetRewardSink(sink)
	engine.SetTreasuryAddress(testAddr(0x05))

	em := &nativefarm.Emission{RewardPerBlock: big.NewInt(1000), DurationBlocks: 1_000_000}
	require.NoError(t, engine.SetEmissionSchedule(owner, em, false))

	catID, err := engine.CreateCategory(owner, 1, "lp")
	require.NoError(t, err)
	poolID, err := engine.CreatePool(owner, catID, lpAsset, 10, 0, 0, false)
	require.NoError(t, err)

	require.NoError(t, ledger.Mint(lpAsset, staker, big.NewInt(500)))
	_, _, err = engine.Deposit(staker, poolID, big.NewInt(500))
	require.NoError(t, err)

	engine.SetBlockHeight(10)
	require.NoError(t, engine.Harvest(staker, poolID))
	require.Zero(t, sink.total.Cmp(big.NewInt(10_000)))

	// Rehydrate a second engine from the persisted state: the position and
	// accumulator survive.
	reloaded := nativefarm.NewEngine(owner, moduleAcct, rewardAsset)
	reloaded.SetState(NewStore(db))
	reloaded.SetLedger(ledger)
	reloaded.SetRewardSink(sink)
	reloaded.SetBlockHeight(10)

	stake, err := reloaded.Stake(poolID, staker)
	require.NoError(t, err)
	require.Zero(t, stake.Amount.Cmp(big.NewInt(500)))

	pending, err := reloaded.PendingReward(poolID, staker)
	require.NoError(t, err)
	require.Zero(t, pending.Sign())
}
