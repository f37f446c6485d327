package farm

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/token"
)

type mockEngineState struct {
	categories []*Category
	pools      []*Pool
	byAsset    map[common.Address]uint64
	stakes     map[string]*UserStake
	totalCat   uint64
	emission   *Emission
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		byAsset: make(map[common.Address]uint64),
		stakes:  make(map[string]*UserStake),
	}
}

func stakeKey(poolID uint64, user common.Address) string {
	return fmt.Sprintf("%d/%s", poolID, user.Hex())
}

func (m *mockEngineState) CategoryCount() (uint64, error) {
	return uint64(len(m.categories)), nil
}

func (m *mockEngineState) GetCategory(id uint64) (*Category, error) {
	if id >= uint64(len(m.categories)) {
		return nil, nil
	}
	return m.categories[id], nil
}

func (m *mockEngineState) PutCategory(id uint64, cat *Category) error {
	if id == uint64(len(m.categories)) {
		m.categories = append(m.categories, cat)
		return nil
	}
	m.categories[id] = cat
	return nil
}

func (m *mockEngineState) PoolCount() (uint64, error) {
	return uint64(len(m.pools)), nil
}

func (m *mockEngineState) GetPool(id uint64) (*Pool, error) {
	if id >= uint64(len(m.pools)) {
		return nil, nil
	}
	return m.pools[id], nil
}

func (m *mockEngineState) PutPool(id uint64, pool *Pool) error {
	if id == uint64(len(m.pools)) {
		m.pools = append(m.pools, pool)
		return nil
	}
	m.pools[id] = pool
	return nil
}

func (m *mockEngineState) PoolIDByAsset(asset common.Address) (uint64, bool, error) {
	id, ok := m.byAsset[asset]
	return id, ok, nil
}

func (m *mockEngineState) PutPoolIDByAsset(asset common.Address, id uint64) error {
	m.byAsset[asset] = id
	return nil
}

func (m *mockEngineState) GetStake(poolID uint64, user common.Address) (*UserStake, error) {
	return m.stakes[stakeKey(poolID, user)], nil
}

func (m *mockEngineState) PutStake(poolID uint64, user common.Address, stake *UserStake) error {
	m.stakes[stakeKey(poolID, user)] = stake
	return nil
}

func (m *mockEngineState) TotalCategoryWeight() (uint64, error) { return m.totalCat, nil }

func (m *mockEngineState) SetTotalCategoryWeight(total uint64) error {
	m.totalCat = total
	return nil
}

func (m *mockEngineState) GetEmission() (*Emission, error) { return m.emission, nil }

func (m *mockEngineState) PutEmission(em *Emission) error {
	m.emission = em
	return nil
}

type sinkCredit struct {
	caller common.Address
	user   common.Address
	amount *big.Int
}

type mockSink struct {
	credits []sinkCredit
	fail    error
}

func (s *mockSink) CreditReward(caller, user common.Address, amount *big.Int) error {
	if s.fail != nil {
		return s.fail
	}
	s.credits = append(s.credits, sinkCredit{caller: caller, user: user, amount: new(big.Int).Set(amount)})
	return nil
}

func (s *mockSink) total() *big.Int {
	sum := big.NewInt(0)
	for _, c := range s.credits {
		sum.Add(sum, c.amount)
	}
	return sum
}

func addr(suffix byte) common.Address {
	var a common.Address
	a[len(a)-1] = suffix
	return a
}

var (
	owner        = addr(0x01)
	farmAccount  = addr(0x02)
	operator     = addr(0x03)
	feeCollector = addr(0x04)
	treasuryAcct = addr(0x05)
	rewardAsset  = addr(0x10)
	lpAsset      = addr(0x11)
	lpAssetB     = addr(0x12)
	alice        = addr(0xaa)
	bob          = addr(0xbb)
)

type fixture struct {
	engine *Engine
	state  *mockEngineState
	ledger *token.MemLedger
	sink   *mockSink
}

func newFixture(t *testing.T, rewardPerBlock int64) *fixture {
	t.Helper()
	state := newMockEngineState()
	state.emission = &Emission{
		RewardPerBlock: big.NewInt(rewardPerBlock),
		StartHeight:    0,
		DurationBlocks: 1_000_000,
	}
	ledger := token.NewMemLedger()
	sink := &mockSink{}
	engine := NewEngine(owner, farmAccount, rewardAsset)
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetRewardSink(sink)
	engine.SetTreasuryAddress(treasuryAcct)
	if err := engine.SetOperator(owner, operator); err != nil {
		t.Fatalf("set operator: %v", err)
	}
	if err := engine.SetFeeCollector(owner, feeCollector); err != nil {
		t.Fatalf("set fee collector: %v", err)
	}
	return &fixture{engine: engine, state: state, ledger: ledger, sink: sink}
}

func (f *fixture) createPool(t *testing.T, catWeight, poolWeight, feeBps, interval uint64, asset common.Address) uint64 {
	t.Helper()
	catID, err := f.engine.CreateCategory(owner, catWeight, "test")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	poolID, err := f.engine.CreatePool(owner, catID, asset, poolWeight, feeBps, interval, false)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	return poolID
}

func (f *fixture) fund(t *testing.T, asset, account common.Address, amount int64) {
	t.Helper()
	if err := f.ledger.Mint(asset, account, big.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
}

func TestSettleAccruesProportionally(t *testing.T) {
	f := newFixture(t, 1000)
	// Two categories weighted 1:3, one pool each with equal pool weight and
	// equal staked supply.
	catA, err := f.engine.CreateCategory(owner, 1, "a")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	catB, err := f.engine.CreateCategory(owner, 3, "b")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	poolA, err := f.engine.CreatePool(owner, catA, lpAsset, 10, 0, 0, false)
	if err != nil {
		t.Fatalf("create pool a: %v", err)
	}
	poolB, err := f.engine.CreatePool(owner, catB, lpAssetB, 10, 0, 0, false)
	if err != nil {
		t.Fatalf("create pool b: %v", err)
	}
	f.fund(t, lpAsset, alice, 500)
	f.fund(t, lpAssetB, bob, 500)
	f.engine.SetBlockHeight(0)
	if _, _, err := f.engine.Deposit(alice, poolA, big.NewInt(500)); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	if _, _, err := f.engine.Deposit(bob, poolB, big.NewInt(500)); err != nil {
		t.Fatalf("deposit b: %v", err)
	}

	f.engine.SetBlockHeight(10)
	pendingA, err := f.engine.PendingReward(poolA, alice)
	if err != nil {
		t.Fatalf("pending a: %v", err)
	}
	pendingB, err := f.engine.PendingReward(poolB, bob)
	if err != nil {
		t.Fatalf("pending b: %v", err)
	}
	// 10 blocks * 1000/block split 1:3 across categories.
	if pendingA.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("unexpected pending for pool a: %s", pendingA)
	}
	if pendingB.Cmp(big.NewInt(7500)) != 0 {
		t.Fatalf("unexpected pending for pool b: %s", pendingB)
	}
}

func TestSettleIdempotentAtSameHeight(t *testing.T) {
	f := newFixture(t, 1000)
	poolID := f.createPool(t, 1, 10, 0, 0, lpAsset)
	f.fund(t, lpAsset, alice, 100)
	f.engine.SetBlockHeight(0)
	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	f.engine.SetBlockHeight(5)
	if err := f.engine.Settle(poolID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	pool, err := f.engine.Pool(poolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	accAfterFirst := new(big.Int).Set(pool.AccRewardPerShare)

	if err := f.engine.Settle(poolID); err != nil {
		t.Fatalf("second settle: %v", err)
	}
	pool, err = f.engine.Pool(poolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.AccRewardPerShare.Cmp(accAfterFirst) != 0 {
		t.Fatalf("accumulator moved on idempotent settle: %s != %s", pool.AccRewardPerShare, accAfterFirst)
	}
	if pool.LastAccrualHeight != 5 {
		t.Fatalf("unexpected accrual height: %d", pool.LastAccrualHeight)
	}
}

func TestAccumulatorMonotone(t *testing.T) {
	f := newFixture(t, 1000)
	poolID := f.createPool(t, 1, 10, 0, 0, lpAsset)
	f.fund(t, lpAsset, alice, 100)
	f.engine.SetBlockHeight(0)
	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	prev := big.NewInt(0)
	for height := uint64(1); height <= 20; height += 3 {
		f.engine.SetBlockHeight(height)
		if err := f.engine.Settle(poolID); err != nil {
			t.Fatalf("settle at %d: %v", height, err)
		}
		pool, err := f.engine.Pool(poolID)
		if err != nil {
			t.Fatalf("pool: %v", err)
		}
		if pool.AccRewardPerShare.Cmp(prev) < 0 {
			t.Fatalf("accumulator decreased at height %d", height)
		}
		prev = new(big.Int).Set(pool.AccRewardPerShare)
	}
}

func TestDisabledPoolAdvancesWithoutAccruing(t *testing.T) {
	f := newFixture(t, 1000)
	poolID := f.createPool(t, 1, 10, 0, 0, lpAsset)
	f.fund(t, lpAsset, alice, 100)
	f.engine.SetBlockHeight(0)
	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.EditPool(owner, poolID, 0, 0, 0, true); err != nil {
		t.Fatalf("disable pool: %v", err)
	}

	f.engine.SetBlockHeight(10)
	if err := f.engine.Settle(poolID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	pool, err := f.engine.Pool(poolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.LastAccrualHeight != 10 {
		t.Fatalf("disabled pool did not advance: %d", pool.LastAccrualHeight)
	}
	if pool.AccRewardPerShare.Sign() != 0 {
		t.Fatalf("disabled pool accrued reward: %s", pool.AccRewardPerShare)
	}

	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(1)); err != ErrPoolDisabled {
		t.Fatalf("expected ErrPoolDisabled, got %v", err)
	}
}

func TestEmptyPoolOnlyAdvancesHeight(t *testing.T) {
	f := newFixture(t, 1000)
	poolID := f.createPool(t, 1, 10, 0, 0, lpAsset)
	f.engine.SetBlockHeight(10)
	if err := f.engine.Settle(poolID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	pool, err := f.engine.Pool(poolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.LastAccrualHeight != 10 || pool.AccRewardPerShare.Sign() != 0 {
		t.Fatalf("empty pool accrued: height=%d acc=%s", pool.LastAccrualHeight, pool.AccRewardPerShare)
	}
	bal, err := f.ledger.BalanceOf(rewardAsset, treasuryAcct)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Sign() != 0 {
		t.Fatalf("reward minted for empty pool: %s", bal)
	}
}

func TestEmissionEndsAtScheduleBoundary(t *testing.T) {
	f := newFixture(t, 1000)
	f.state.emission.DurationBlocks = 10
	poolID := f.createPool(t, 1, 10, 0, 0, lpAsset)
	f.fund(t, lpAsset, alice, 100)
	f.engine.SetBlockHeight(0)
	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	f.engine.SetBlockHeight(50)
	pending, err := f.engine.PendingReward(poolID, alice)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	// Only the 10 scheduled blocks accrue.
	if pending.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected pending past emission end: %s", pending)
	}
}

func TestOperatorShareMintedOnTop(t *testing.T) {
	f := newFixture(t, 1000)
	f.state.emission.OperatorBps = 1000
	poolID := f.createPool(t, 1, 10, 0, 0, lpAsset)
	f.fund(t, lpAsset, alice, 100)
	f.engine.SetBlockHeight(0)
	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.engine.SetBlockHeight(10)
	if err := f.engine.Settle(poolID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	treasuryBal, _ := f.ledger.BalanceOf(rewardAsset, treasuryAcct)
	operatorBal, _ := f.ledger.BalanceOf(rewardAsset, operator)
	if treasuryBal.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected treasury mint: %s", treasuryBal)
	}
	if operatorBal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected operator mint: %s", operatorBal)
	}
}

func TestPendingRewardIncludesLockedPending(t *testing.T) {
	f := newFixture(t, 1000)
	poolID := f.createPool(t, 1, 10, 0, 3600, lpAsset)
	f.fund(t, lpAsset, alice, 100)
	f.engine.SetBlockHeight(0)
	f.engine.SetBlockTimestamp(1000)
	if _, _, err := f.engine.Deposit(alice, poolID, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Harvest inside the interval locks the accrued delta instead of paying.
	f.engine.SetBlockHeight(5)
	f.engine.SetBlockTimestamp(2000)
	if err := f.engine.Harvest(alice, poolID); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(f.sink.credits) != 0 {
		t.Fatalf("credit before harvest interval elapsed")
	}
	stake, err := f.engine.Stake(poolID, alice)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if stake.LockedPendingReward.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("unexpected locked pending: %s", stake.LockedPendingReward)
	}

	pending, err := f.engine.PendingReward(poolID, alice)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("pending should include locked amount: %s", pending)
	}

	// Past the interval the locked amount plus the new delta is forwarded.
	f.engine.SetBlockHeight(10)
	f.engine.SetBlockTimestamp(1000 + 3600)
	if err := f.engine.Harvest(alice, poolID); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if total := f.sink.total(); total.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected credited total: %s", total)
	}
	stake, err = f.engine.Stake(poolID, alice)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if stake.LockedPendingReward.Sign() != 0 {
		t.Fatalf("locked pending not cleared: %s", stake.LockedPendingReward)
	}
	if stake.NextHarvestTime != 1000+3600+3600 {
		t.Fatalf("unexpected next harvest time: %d", stake.NextHarvestTime)
	}
}
