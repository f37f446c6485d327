package metrics

import (
	"math/big"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/core/events"
)

type FarmMetrics struct {
	deposits        *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	emergencyExits  *prometheus.CounterVec
	harvested       *prometheus.CounterVec
	depositFees     *prometheus.CounterVec
	treasuryCredits prometheus.Counter
	treasuryClaims  *prometheus.CounterVec
	treasuryBurned  prometheus.Counter
	treasuryLocked  prometheus.Gauge
}

var (
	farmOnce     sync.Once
	farmRegistry *FarmMetrics
)

func Farm() *FarmMetrics {
	farmOnce.Do(func() {
		farmRegistry = &FarmMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_deposits_total",
				Help: "Count of stake deposits by pool.",
			}, []string{"pool"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_withdrawals_total",
				Help: "Count of stake withdrawals by pool.",
			}, []string{"pool"}),
			emergencyExits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_emergency_withdrawals_total",
				Help: "Count of emergency exits by pool.",
			}, []string{"pool"}),
			harvested: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_harvested_reward_total",
				Help: "Reward amount forwarded to the treasury by pool.",
			}, []string{"pool"}),
			depositFees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_deposit_fees_total",
				Help: "Deposit fee amount routed to the collector by pool.",
			}, []string{"pool"}),
			treasuryCredits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "treasury_credits_total",
				Help: "Count of reward credits booked into vesting buckets.",
			}),
			treasuryClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "treasury_claims_total",
				Help: "Count of bucket claims by kind (matured or express).",
			}, []string{"kind"}),
			treasuryBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "treasury_burned_total",
				Help: "Reward amount burned by express-claim penalties.",
			}),
			treasuryLocked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "treasury_locked",
				Help: "Aggregate reward amount locked in vesting buckets.",
			}),
		}
		prometheus.MustRegister(
			farmRegistry.deposits,
			farmRegistry.withdrawals,
			farmRegistry.emergencyExits,
			farmRegistry.harvested,
			farmRegistry.depositFees,
			farmRegistry.treasuryCredits,
			farmRegistry.treasuryClaims,
			farmRegistry.treasuryBurned,
			farmRegistry.treasuryLocked,
		)
	})
	return farmRegistry
}

func amountValue(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	return value
}

func poolLabel(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// SetTreasuryLocked publishes the aggregate locked total.
func (m *FarmMetrics) SetTreasuryLocked(total *big.Int) {
	if m == nil {
		return
	}
	m.treasuryLocked.Set(amountValue(total))
}

// Emitter adapts the metrics registry to the engine event stream. It can be
// chained in front of another emitter so events still reach subscribers.
type Emitter struct {
	metrics *FarmMetrics
	next    events.Emitter
}

// NewEmitter wraps next with metric recording. A nil next discards events
// after counting them.
func NewEmitter(next events.Emitter) *Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Emitter{metrics: Farm(), next: next}
}

func (e *Emitter) Emit(evt events.Event) {
	switch v := evt.(type) {
	case events.FarmDeposit:
		e.metrics.deposits.WithLabelValues(poolLabel(v.PoolID)).Inc()
		e.metrics.depositFees.WithLabelValues(poolLabel(v.PoolID)).Add(amountValue(v.Fee))
	case events.FarmWithdraw:
		e.metrics.withdrawals.WithLabelValues(poolLabel(v.PoolID)).Inc()
	case events.FarmEmergencyWithdraw:
		e.metrics.emergencyExits.WithLabelValues(poolLabel(v.PoolID)).Inc()
	case events.FarmHarvest:
		e.metrics.harvested.WithLabelValues(poolLabel(v.PoolID)).Add(amountValue(v.Amount))
	case events.TreasuryCredit:
		e.metrics.treasuryCredits.Inc()
	case events.TreasuryClaim:
		e.metrics.treasuryClaims.WithLabelValues("matured").Inc()
	case events.TreasuryExpressClaim:
		e.metrics.treasuryClaims.WithLabelValues("express").Inc()
		e.metrics.treasuryBurned.Add(amountValue(v.Burned))
	}
	e.next.Emit(evt)
}
