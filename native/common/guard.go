package common

import (
	"errors"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

// ErrReentrancyRejected is returned when a mutating entry point is invoked
// while another call in the same guard group is still in flight. The hazard is
// logical (callback during an outbound token transfer), not threading, but the
// guard also rejects genuinely concurrent callers.
var ErrReentrancyRejected = errors.New("reentrancy rejected")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// ReentrancyGuard protects a group of mutating entry points. Enter must be
// paired with Exit on every return path.
type ReentrancyGuard struct {
	mu sync.Mutex
}

func (g *ReentrancyGuard) Enter() error {
	if !g.mu.TryLock() {
		return ErrReentrancyRejected
	}
	return nil
}

func (g *ReentrancyGuard) Exit() {
	g.mu.Unlock()
}
