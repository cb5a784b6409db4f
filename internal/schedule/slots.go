// Package schedule derives bookable time slots from a doctor's recurring
// weekly availability. Slot generation is pure: the same window always yields
// the same sequence.
package schedule

import (
	"fmt"
	"iter"
	"time"
)

// Granularity is the fixed duration between consecutive candidate slots.
const Granularity = 30 * time.Minute

// excludedHour is the clinic-wide lunch break. Any slot starting within this
// hour is never offered, regardless of the doctor's window.
const excludedHour = 12

// Window is one doctor's open interval for a single weekday.
// DayOfWeek uses 0 = Monday .. 6 = Sunday.
type Window struct {
	DayOfWeek int
	Start     TimeOfDay
	End       TimeOfDay
}

func (w Window) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range [0..6]", w.DayOfWeek)
	}
	if w.Start >= w.End {
		return fmt.Errorf("window start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

// Times yields the candidate slot times for a window in ascending order,
// stepping by Granularity from Start up to but excluding End, skipping the
// lunch hour. The sequence is restartable; ranging over it twice gives
// identical output.
func Times(w Window) iter.Seq[TimeOfDay] {
	step := TimeOfDay(Granularity / time.Minute)
	return func(yield func(TimeOfDay) bool) {
		for t := w.Start; t < w.End; t += step {
			if t.Hour() == excludedHour {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// ValidSlot reports whether t is one of the candidate times Times(w) would
// produce. Booking requests are re-checked with this server-side; the slot
// listing endpoint is advisory only.
func ValidSlot(w Window, t TimeOfDay) bool {
	for s := range Times(w) {
		if s == t {
			return true
		}
		if s > t {
			return false
		}
	}
	return false
}

// DayOfWeek maps a calendar date onto the stored weekday convention
// (0 = Monday .. 6 = Sunday).
func DayOfWeek(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}
