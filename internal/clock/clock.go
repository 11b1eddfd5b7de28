// Package clock provides slot clocks for the game engine.
package clock

import (
	"sync"
	"time"

	"github.com/HouseOfHufflepuff/kill/internal/core"
)

// Wall derives slots from wall-clock time elapsed since genesis.
// It never goes backwards, even if the system clock does.
type Wall struct {
	mu      sync.Mutex
	genesis time.Time
	slot    time.Duration
	now     func() time.Time
	last    uint64
}

// NewWall creates a wall clock. Times before genesis read as slot 0.
func NewWall(genesis time.Time, slot time.Duration) *Wall {
	if slot <= 0 {
		slot = 400 * time.Millisecond
	}
	return &Wall{genesis: genesis, slot: slot, now: time.Now}
}

// Now returns the current slot.
func (w *Wall) Now() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := w.now().Sub(w.genesis)
	var s uint64
	if elapsed > 0 {
		s = uint64(elapsed / w.slot)
	}
	if s < w.last {
		return w.last
	}
	w.last = s
	return s
}

// SlotDuration returns the length of one slot.
func (w *Wall) SlotDuration() time.Duration {
	return w.slot
}

// Manual is a clock that only moves when told to. Used for scripted
// replays, pinned CLI slots and tests.
type Manual struct {
	mu   sync.RWMutex
	slot uint64
}

// NewManual creates a manual clock at start.
func NewManual(start uint64) *Manual {
	return &Manual{slot: start}
}

// Now returns the current slot.
func (m *Manual) Now() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slot
}

// Set moves the clock to slot.
func (m *Manual) Set(slot uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot = slot
}

// Advance moves the clock forward by n slots, saturating at the maximum.
func (m *Manual) Advance(n uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot = core.SatAdd(m.slot, n)
	return m.slot
}
