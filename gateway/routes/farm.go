package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	nativefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/farm"
)

// FarmRoutes exposes the staking engine over JSON. Mutating handlers stamp the
// engine with the wall clock before dispatching; the block height is advanced
// by the host through the admin surface.
type FarmRoutes struct {
	engine *nativefarm.Engine
	now    func() time.Time
	height func() uint64
}

func NewFarmRoutes(engine *nativefarm.Engine, now func() time.Time, height func() uint64) *FarmRoutes {
	if now == nil {
		now = time.Now
	}
	return &FarmRoutes{engine: engine, now: now, height: height}
}

// MountReads registers the query handlers.
func (fr *FarmRoutes) MountReads(r chi.Router) {
	r.Get("/pools", fr.listPools)
	r.Get("/pools/{id}", fr.getPool)
	r.Get("/pools/{id}/pending/{addr}", fr.pendingReward)
	r.Get("/pools/{id}/stake/{addr}", fr.getStake)
	r.Get("/categories", fr.listCategories)
	r.Get("/emission", fr.getEmission)
}

// MountWrites registers the staking handlers. Scope enforcement happens in
// the surrounding router.
func (fr *FarmRoutes) MountWrites(r chi.Router) {
	r.Post("/deposit", fr.deposit)
	r.Post("/withdraw", fr.withdraw)
	r.Post("/withdraw/emergency", fr.emergencyWithdraw)
	r.Post("/harvest", fr.harvest)
}

// MountAdmin registers the registry and schedule handlers.
func (fr *FarmRoutes) MountAdmin(r chi.Router) {
	r.Post("/categories", fr.createCategory)
	r.Post("/categories/{id}", fr.editCategory)
	r.Post("/pools", fr.createPool)
	r.Post("/pools/{id}", fr.editPool)
	r.Post("/emission", fr.setEmission)
	r.Post("/settle", fr.settleAll)
}

func (fr *FarmRoutes) stampClock() {
	fr.engine.SetBlockTimestamp(uint64(fr.now().Unix()))
	if fr.height != nil {
		fr.engine.SetBlockHeight(fr.height())
	}
}

func parseID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

type categoryView struct {
	ID               uint64 `json:"id"`
	Weight           uint64 `json:"weight"`
	TotalChildWeight uint64 `json:"totalChildWeight"`
	Label            string `json:"label"`
}

type poolView struct {
	ID                     uint64 `json:"id"`
	Asset                  string `json:"asset"`
	CategoryID             uint64 `json:"categoryId"`
	Weight                 uint64 `json:"weight"`
	LastAccrualHeight      uint64 `json:"lastAccrualHeight"`
	AccRewardPerShare      string `json:"accRewardPerShare"`
	DepositFeeBps          uint64 `json:"depositFeeBps"`
	HarvestIntervalSeconds uint64 `json:"harvestIntervalSeconds"`
}

func poolToView(id uint64, p *nativefarm.Pool) poolView {
	return poolView{
		ID:                     id,
		Asset:                  p.Asset.Hex(),
		CategoryID:             p.CategoryID,
		Weight:                 p.Weight,
		LastAccrualHeight:      p.LastAccrualHeight,
		AccRewardPerShare:      formatAmount(p.AccRewardPerShare),
		DepositFeeBps:          p.DepositFeeBps,
		HarvestIntervalSeconds: p.HarvestIntervalSeconds,
	}
}

func (fr *FarmRoutes) listPools(w http.ResponseWriter, r *http.Request) {
	pools, err := fr.engine.Pools()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	views := make([]poolView, 0, len(pools))
	for id, pool := range pools {
		views = append(views, poolToView(uint64(id), pool))
	}
	writeJSON(w, http.StatusOK, views)
}

func (fr *FarmRoutes) getPool(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pool, err := fr.engine.Pool(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolToView(id, pool))
}

func (fr *FarmRoutes) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := fr.engine.Categories()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	views := make([]categoryView, 0, len(cats))
	for id, cat := range cats {
		views = append(views, categoryView{
			ID:               uint64(id),
			Weight:           cat.Weight,
			TotalChildWeight: cat.TotalChildWeight,
			Label:            cat.Label,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (fr *FarmRoutes) getEmission(w http.ResponseWriter, r *http.Request) {
	em, err := fr.engine.Emission()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rewardPerBlock": formatAmount(em.RewardPerBlock),
		"startHeight":    em.StartHeight,
		"durationBlocks": em.DurationBlocks,
		"operatorBps":    em.OperatorBps,
	})
}

func (fr *FarmRoutes) pendingReward(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	pending, err := fr.engine.PendingReward(id, user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pending": formatAmount(pending)})
}

func (fr *FarmRoutes) getStake(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stake, err := fr.engine.Stake(id, user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"amount":              formatAmount(stake.Amount),
		"rewardBaseline":      formatAmount(stake.RewardBaseline),
		"nextHarvestTime":     stake.NextHarvestTime,
		"lockedPendingReward": formatAmount(stake.LockedPendingReward),
	})
}

type stakeRequest struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
	Amount string `json:"amount"`
}

func (fr *FarmRoutes) deposit(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	effective, fee, err := fr.engine.Deposit(caller, req.PoolID, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"effective": formatAmount(effective),
		"fee":       formatAmount(fee),
	})
}

func (fr *FarmRoutes) withdraw(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	if err := fr.engine.Withdraw(caller, req.PoolID, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": formatAmount(amount)})
}

type poolActionRequest struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
}

func (fr *FarmRoutes) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req poolActionRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	amount, err := fr.engine.EmergencyWithdraw(caller, req.PoolID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": formatAmount(amount)})
}

func (fr *FarmRoutes) harvest(w http.ResponseWriter, r *http.Request) {
	var req poolActionRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	if err := fr.engine.Harvest(caller, req.PoolID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type categoryRequest struct {
	Caller     string `json:"caller"`
	Weight     uint64 `json:"weight"`
	Label      string `json:"label,omitempty"`
	WithUpdate bool   `json:"withUpdate,omitempty"`
}

func (fr *FarmRoutes) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := fr.engine.CreateCategory(caller, req.Weight, req.Label)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (fr *FarmRoutes) editCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req categoryRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	if err := fr.engine.EditCategory(caller, id, req.Weight, req.WithUpdate); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type poolRequest struct {
	Caller                 string `json:"caller"`
	CategoryID             uint64 `json:"categoryId"`
	Asset                  string `json:"asset"`
	Weight                 uint64 `json:"weight"`
	DepositFeeBps          uint64 `json:"depositFeeBps"`
	HarvestIntervalSeconds uint64 `json:"harvestIntervalSeconds"`
	WithUpdate             bool   `json:"withUpdate,omitempty"`
}

func (fr *FarmRoutes) createPool(w http.ResponseWriter, r *http.Request) {
	var req poolRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	id, err := fr.engine.CreatePool(caller, req.CategoryID, asset, req.Weight, req.DepositFeeBps, req.HarvestIntervalSeconds, req.WithUpdate)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (fr *FarmRoutes) editPool(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req poolRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	if err := fr.engine.EditPool(caller, id, req.Weight, req.DepositFeeBps, req.HarvestIntervalSeconds, req.WithUpdate); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type emissionRequest struct {
	Caller         string `json:"caller"`
	RewardPerBlock string `json:"rewardPerBlock"`
	StartHeight    uint64 `json:"startHeight"`
	DurationBlocks uint64 `json:"durationBlocks"`
	OperatorBps    uint64 `json:"operatorBps"`
	WithUpdate     bool   `json:"withUpdate,omitempty"`
}

func (fr *FarmRoutes) setEmission(w http.ResponseWriter, r *http.Request) {
	var req emissionRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rate, err := parseAmount(req.RewardPerBlock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fr.stampClock()
	em := &nativefarm.Emission{
		RewardPerBlock: rate,
		StartHeight:    req.StartHeight,
		DurationBlocks: req.DurationBlocks,
		OperatorBps:    req.OperatorBps,
	}
	if err := fr.engine.SetEmissionSchedule(caller, em, req.WithUpdate); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (fr *FarmRoutes) settleAll(w http.ResponseWriter, r *http.Request) {
	fr.stampClock()
	if err := fr.engine.SettleAll(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
