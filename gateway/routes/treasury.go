package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	nativetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/treasury"
)

// TreasuryRoutes exposes the vesting ledger over JSON.
type TreasuryRoutes struct {
	treasury *nativetreasury.Treasury
	now      func() time.Time
}

func NewTreasuryRoutes(treasury *nativetreasury.Treasury, now func() time.Time) *TreasuryRoutes {
	if now == nil {
		now = time.Now
	}
	return &TreasuryRoutes{treasury: treasury, now: now}
}

// MountReads registers the query handlers.
func (tr *TreasuryRoutes) MountReads(r chi.Router) {
	r.Get("/weeks/{addr}", tr.weeksToPay)
	r.Get("/claimable/{addr}", tr.claimableWeeks)
	r.Get("/owed/{addr}", tr.totalOwed)
	r.Get("/buckets/{addr}/{week}", tr.bucketAmount)
	r.Get("/locked", tr.totalLocked)
	r.Get("/params", tr.getParams)
}

// MountWrites registers the claim handlers.
func (tr *TreasuryRoutes) MountWrites(r chi.Router) {
	r.Post("/claim", tr.claim)
	r.Post("/claim/express", tr.claimExpress)
}

// MountAdmin registers the governance handlers.
func (tr *TreasuryRoutes) MountAdmin(r chi.Router) {
	r.Post("/params", tr.setParams)
}

// MountCredit registers the credit handler, normally reserved to the farm
// module identity.
func (tr *TreasuryRoutes) MountCredit(r chi.Router) {
	r.Post("/credit", tr.credit)
}

func (tr *TreasuryRoutes) stampClock() {
	tr.treasury.SetNow(uint64(tr.now().Unix()))
}

func (tr *TreasuryRoutes) weeksToPay(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	weeks, err := tr.treasury.WeeksToPay(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"weeks": weeks})
}

func (tr *TreasuryRoutes) claimableWeeks(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr.stampClock()
	weeks, err := tr.treasury.ClaimableWeeksToPay(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"weeks": weeks})
}

func (tr *TreasuryRoutes) totalOwed(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owed, err := tr.treasury.TotalOwed(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owed": formatAmount(owed)})
}

func (tr *TreasuryRoutes) bucketAmount(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	week, err := parseWeek(chi.URLParam(r, "week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := tr.treasury.BucketAmount(user, week)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": formatAmount(amount)})
}

func (tr *TreasuryRoutes) totalLocked(w http.ResponseWriter, r *http.Request) {
	locked, err := tr.treasury.TotalLocked()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"locked": formatAmount(locked)})
}

func (tr *TreasuryRoutes) getParams(w http.ResponseWriter, r *http.Request) {
	params, err := tr.treasury.Params()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{
		"weekSeconds":         params.WeekSeconds,
		"lockupWeeks":         params.LockupWeeks,
		"burnBps":             params.BurnBps,
		"unlockOffsetSeconds": params.UnlockOffsetSeconds,
	})
}

type claimRequest struct {
	User  string   `json:"user"`
	Weeks []uint64 `json:"weeks"`
}

func (tr *TreasuryRoutes) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr.stampClock()
	paid, err := tr.treasury.ClaimReward(user, req.Weeks)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paid": formatAmount(paid)})
}

func (tr *TreasuryRoutes) claimExpress(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr.stampClock()
	paid, burned, err := tr.treasury.ClaimRewardExpress(user, req.Weeks)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"paid":   formatAmount(paid),
		"burned": formatAmount(burned),
	})
}

type creditRequest struct {
	Caller string `json:"caller"`
	User   string `json:"user"`
	Amount string `json:"amount"`
}

func (tr *TreasuryRoutes) credit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr.stampClock()
	if err := tr.treasury.CreditReward(caller, user, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paramsRequest struct {
	Caller              string `json:"caller"`
	WeekSeconds         uint64 `json:"weekSeconds"`
	LockupWeeks         uint64 `json:"lockupWeeks"`
	BurnBps             uint64 `json:"burnBps"`
	UnlockOffsetSeconds uint64 `json:"unlockOffsetSeconds"`
}

func (tr *TreasuryRoutes) setParams(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params := &nativetreasury.Params{
		WeekSeconds:         req.WeekSeconds,
		LockupWeeks:         req.LockupWeeks,
		BurnBps:             req.BurnBps,
		UnlockOffsetSeconds: req.UnlockOffsetSeconds,
	}
	if err := tr.treasury.SetParams(caller, params); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
