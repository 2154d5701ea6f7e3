package model

import (
	"time"
)

// Slots maps timestamps to forging slots. A slot is one block time long and
// slot 0 starts at the epoch.
type Slots struct {
	epoch     time.Time
	blockTime time.Duration
	now       func() time.Time
}

func NewSlots(epoch time.Time, blockTime time.Duration) *Slots {
	if blockTime < time.Second {
		blockTime = time.Second
	}

	return &Slots{
		epoch:     epoch,
		blockTime: blockTime,
		now:       time.Now,
	}
}

// WithClock replaces the clock used by CurrentSlot.
func (s *Slots) WithClock(now func() time.Time) *Slots {
	s.now = now
	return s
}

func (s *Slots) Epoch() time.Time {
	return s.epoch
}

func (s *Slots) BlockTime() time.Duration {
	return s.blockTime
}

// SlotNumber returns the slot containing the given unix timestamp.
func (s *Slots) SlotNumber(timestamp uint32) int64 {
	elapsed := int64(timestamp) - s.epoch.Unix()
	seconds := int64(s.blockTime / time.Second)

	if elapsed < 0 {
		// round towards minus infinity
		return (elapsed - seconds + 1) / seconds
	}

	return elapsed / seconds
}

func (s *Slots) CurrentSlot() int64 {
	return s.SlotNumber(uint32(s.now().Unix())) //nolint:gosec // unix time fits until 2106
}

// SlotTime returns the unix timestamp at which the slot starts.
func (s *Slots) SlotTime(slot int64) uint32 {
	return uint32(s.epoch.Unix() + slot*int64(s.blockTime/time.Second)) //nolint:gosec
}
