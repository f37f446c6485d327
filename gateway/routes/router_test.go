package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/gateway/middleware"
	nativefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/farm"
	nativetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/treasury"
	statefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/state/farm"
	statetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/state/treasury"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/storage"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/token"
)

func testAddr(suffix byte) common.Address {
	var a common.Address
	a[len(a)-1] = suffix
	return a
}

var (
	ownerAddr    = testAddr(0x01)
	farmAcct     = testAddr(0x02)
	treasuryAcct = testAddr(0x03)
	assetReward  = testAddr(0x10)
	assetLP      = testAddr(0x11)
	staker       = testAddr(0xaa)
)

type gatewayFixture struct {
	handler  http.Handler
	ledger   *token.MemLedger
	engine   *nativefarm.Engine
	treasury *nativetreasury.Treasury
	height   uint64
	nowUnix  int64
}

func newGatewayFixture(t *testing.T, auth *middleware.Authenticator) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{nowUnix: 1_000}
	ledger := token.NewMemLedger()

	treasury := nativetreasury.New(ownerAddr, treasuryAcct, assetReward)
	treasury.SetState(statetreasury.NewStore(storage.NewMemDB()))
	treasury.SetLedger(ledger)
	require.NoError(t, treasury.SetAuthorizedCaller(ownerAddr, farmAcct))
	require.NoError(t, treasury.SetParams(ownerAddr, &nativetreasury.Params{WeekSeconds: 100, LockupWeeks: 4, BurnBps: 1000}))

	engine := nativefarm.NewEngine(ownerAddr, farmAcct, assetReward)
	engine.SetState(statefarm.NewStore(storage.NewMemDB()))
	engine.SetLedger(ledger)
	engine.SetRewardSink(treasury.Clocked(func() uint64 { return uint64(f.nowUnix) }))
	engine.SetTreasuryAddress(treasuryAcct)
	em := &nativefarm.Emission{RewardPerBlock: big.NewInt(1000), DurationBlocks: 1_000_000}
	require.NoError(t, engine.SetEmissionSchedule(ownerAddr, em, false))

	now := func() time.Time { return time.Unix(f.nowUnix, 0) }
	f.handler = New(Config{
		Farm:          NewFarmRoutes(engine, now, func() uint64 { return f.height }),
		Treasury:      NewTreasuryRoutes(treasury, now),
		Authenticator: auth,
	})
	f.ledger = ledger
	f.engine = engine
	f.treasury = treasury
	return f
}

func (f *gatewayFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestGatewayStakeLifecycle(t *testing.T) {
	f := newGatewayFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/farm/categories", map[string]any{
		"caller": ownerAddr.Hex(), "weight": 1, "label": "lp",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/farm/pools", map[string]any{
		"caller": ownerAddr.Hex(), "categoryId": 0, "asset": assetLP.Hex(), "weight": 10,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, rec, &created)

	require.NoError(t, f.ledger.Mint(assetLP, staker, big.NewInt(500)))
	rec = f.do(t, http.MethodPost, "/v1/farm/deposit", map[string]any{
		"caller": staker.Hex(), "poolId": created.ID, "amount": "500",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	f.height = 10
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/farm/pools/%d/pending/%s", created.ID, staker.Hex()), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending struct {
		Pending string `json:"pending"`
	}
	decodeBody(t, rec, &pending)
	require.Equal(t, "10000", pending.Pending)

	// Harvest forwards the accrual into a vesting bucket.
	rec = f.do(t, http.MethodPost, "/v1/farm/harvest", map[string]any{
		"caller": staker.Hex(), "poolId": created.ID,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/treasury/owed/"+staker.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var owed struct {
		Owed string `json:"owed"`
	}
	decodeBody(t, rec, &owed)
	require.Equal(t, "10000", owed.Owed)

	// Advance past the lockup horizon and claim.
	f.nowUnix = 1_000 + 5*100
	rec = f.do(t, http.MethodGet, "/v1/treasury/claimable/"+staker.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var claimable struct {
		Weeks []uint64 `json:"weeks"`
	}
	decodeBody(t, rec, &claimable)
	require.Len(t, claimable.Weeks, 1)

	rec = f.do(t, http.MethodPost, "/v1/treasury/claim", map[string]any{
		"user": staker.Hex(), "weeks": claimable.Weeks,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var paid struct {
		Paid string `json:"paid"`
	}
	decodeBody(t, rec, &paid)
	require.Equal(t, "10000", paid.Paid)

	bal, err := f.ledger.BalanceOf(assetReward, staker)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(10_000)))

	// Withdraw the stake afterwards.
	rec = f.do(t, http.MethodPost, "/v1/farm/withdraw", map[string]any{
		"caller": staker.Hex(), "poolId": created.ID, "amount": "500",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	lpBal, err := f.ledger.BalanceOf(assetLP, staker)
	require.NoError(t, err)
	require.Zero(t, lpBal.Cmp(big.NewInt(500)))
}

func TestGatewayErrorMapping(t *testing.T) {
	f := newGatewayFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/farm/pools/7", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/farm/categories", map[string]any{
		"caller": staker.Hex(), "weight": 1,
	}, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/farm/deposit", map[string]any{
		"caller": staker.Hex(), "poolId": 0, "amount": "not-a-number",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/treasury/credit", map[string]any{
		"caller": staker.Hex(), "user": staker.Hex(), "amount": "10",
	}, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func signToken(t *testing.T, secret, scope string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestGatewayScopeEnforcement(t *testing.T) {
	const secret = "test-secret"
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    true,
		HMACSecret: secret,
	}, nil)
	f := newGatewayFixture(t, auth)

	// Reads stay open.
	rec := f.do(t, http.MethodGet, "/v1/farm/pools", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	deposit := map[string]any{"caller": staker.Hex(), "poolId": 0, "amount": "1"}
	rec = f.do(t, http.MethodPost, "/v1/farm/deposit", deposit, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/farm/deposit", deposit, signToken(t, secret, "other.scope"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// A correctly scoped token reaches the engine (and fails on the unknown
	// pool, not on auth).
	rec = f.do(t, http.MethodPost, "/v1/farm/deposit", deposit, signToken(t, secret, "farm.write"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	admin := map[string]any{"caller": ownerAddr.Hex(), "weight": 1, "label": "lp"}
	rec = f.do(t, http.MethodPost, "/v1/farm/categories", admin, signToken(t, secret, "farm.write"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodPost, "/v1/farm/categories", admin, signToken(t, secret, "farm.admin"))
	require.Equal(t, http.StatusCreated, rec.Code)
}
