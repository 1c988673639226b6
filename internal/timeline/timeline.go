// Package timeline maps wall-clock time onto the discrete minute slots that
// make up the rolling publication window.
package timeline

import (
	"fmt"
	"time"
)

// SafetyMarginMinutes is the number of trailing minutes excluded from the
// window so that a slot still being produced upstream is never validated.
const SafetyMarginMinutes = 1

// Slot is one fixed-duration time bucket in the rolling window. It carries the
// full UTC instant of its start; the four-digit HHMM key is only a rendering
// used for filenames and manifests, so window arithmetic never has to parse a
// key back into a time.
type Slot struct {
	start time.Time
}

// SlotAt returns the slot containing the given instant, truncated to the
// minute in UTC.
func SlotAt(t time.Time) Slot {
	return Slot{start: t.UTC().Truncate(time.Minute)}
}

// Start returns the UTC instant at which the slot begins.
func (s Slot) Start() time.Time {
	return s.start
}

// Key renders the slot as a zero-padded HHMM string, e.g. "0930" for 09:30 UTC.
func (s Slot) Key() string {
	return fmt.Sprintf("%02d%02d", s.start.Hour(), s.start.Minute())
}

// InstantForKey reconstructs an absolute instant from an HHMM key by combining
// it with ref's UTC calendar date.
//
// This is a lossy inverse: a key carries no date, so a key seen shortly after
// midnight may resolve to the wrong calendar day. Callers that can, should
// hold on to the Slot itself; only the pruner, which has nothing but
// filenames, goes through this.
func InstantForKey(key string, ref time.Time) (time.Time, error) {
	if len(key) != 4 {
		return time.Time{}, fmt.Errorf("slot key %q: want 4 digits", key)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(key, "%02d%02d", &hh, &mm); err != nil {
		return time.Time{}, fmt.Errorf("slot key %q: %w", key, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return time.Time{}, fmt.Errorf("slot key %q: out of range", key)
	}
	r := ref.UTC()
	return time.Date(r.Year(), r.Month(), r.Day(), hh, mm, 0, 0, time.UTC), nil
}

// Window returns the ordered sequence of the horizonMinutes most recent slots,
// ending safetyMarginMinutes before now. The sequence is strictly
// chronological with slots exactly one minute apart.
func Window(now time.Time, horizonMinutes, safetyMarginMinutes int) []Slot {
	end := SlotAt(now).Start().Add(-time.Duration(safetyMarginMinutes) * time.Minute)

	slots := make([]Slot, 0, horizonMinutes)
	for i := horizonMinutes - 1; i >= 0; i-- {
		slots = append(slots, Slot{start: end.Add(-time.Duration(i) * time.Minute)})
	}
	return slots
}
