package treasury

// DefaultWeekSeconds is the canonical bucket width.
const DefaultWeekSeconds uint64 = 7 * 24 * 60 * 60

const (
	// MinLockupWeeks and MaxLockupWeeks bound the vesting horizon.
	MinLockupWeeks uint64 = 4
	MaxLockupWeeks uint64 = 24
)

// Params holds the governance-controlled vesting configuration.
type Params struct {
	// WeekSeconds is the bucket width; week number = floor(unix / WeekSeconds).
	WeekSeconds uint64
	// LockupWeeks is the number of whole weeks a credit vests for.
	LockupWeeks uint64
	// BurnBps is the penalty fraction burned on express claims of unmatured
	// buckets, in basis points.
	BurnBps uint64
	// UnlockOffsetSeconds is the instant within a week at which that week's
	// buckets become claimable. Must be smaller than WeekSeconds.
	UnlockOffsetSeconds uint64
}

// Normalize fills zero-value fields with defaults and returns the receiver.
func (p *Params) Normalize() *Params {
	if p == nil {
		return nil
	}
	if p.WeekSeconds == 0 {
		p.WeekSeconds = DefaultWeekSeconds
	}
	return p
}

// Validate ensures the configuration falls within acceptable bounds.
func (p *Params) Validate() error {
	if p == nil {
		return ErrInvalidParams
	}
	if p.WeekSeconds == 0 {
		return ErrInvalidParams
	}
	if p.LockupWeeks < MinLockupWeeks || p.LockupWeeks > MaxLockupWeeks {
		return ErrInvalidParams
	}
	if p.BurnBps > 10_000 {
		return ErrInvalidParams
	}
	if p.UnlockOffsetSeconds >= p.WeekSeconds {
		return ErrInvalidParams
	}
	return nil
}

// Clone produces a copy of the parameters.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
