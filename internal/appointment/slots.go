package appointment

import (
	"iter"
	"time"
)

// GenerateSlots partitions a window into consecutive slots of SlotDuration.
// now must be expressed in the scheduling location; on the window's own date
// generation starts at the first slot boundary at or after now.
// A nil window yields nothing. The sequence can be ranged over repeatedly.
func GenerateSlots(avail *DoctorAvailability, now time.Time) iter.Seq[*Slot] {
	return func(yield func(*Slot) bool) {
		if avail == nil {
			return
		}

		start := avail.Start
		if avail.Date == DateOf(now) {
			if current := ClockOf(now); start < current {
				start = current.Ceil(SlotDuration)
			}
		}

		for t := start; t.Add(SlotDuration) <= avail.End; t = t.Add(SlotDuration) {
			if !yield(NewSlot(avail.DoctorID, avail.Date, t)) {
				return
			}
		}
	}
}
