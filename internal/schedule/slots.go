// Package schedule derives concrete bookable slots for one calendar date from
// a professional's recurring weekly availability. Generation is pure and
// side-effect free: slots are never persisted and are recomputed on every
// query.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/serviq/booking-engine/internal/availability"
	"github.com/serviq/booking-engine/internal/booking"
)

// Slot is a derived bookable window on a specific date.
type Slot struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Available       bool
}

// Generate emits the 30 and 60 minute slots for the given date.
//
// For each availability range: all 30-minute slots are emitted first, walking
// the range in 30-minute steps; then, independently, the 60-minute slots over
// the same walk, requiring the full window to fit. A 60-minute slot is
// available only if both of its 30-minute halves are independently unbooked,
// so a half-hour appointment at :30 correctly knocks out the overlapping
// 60-minute windows.
//
// A date whose weekday has no ranges yields an empty sequence: the caller
// treats that as fully booked out, not as an error.
func Generate(ranges []availability.TimeRange, date time.Time, loc *time.Location, existing []booking.Appointment) ([]Slot, error) {
	local := date.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var slots []Slot

	for _, r := range ranges {
		startMin, endMin, err := r.Minutes()
		if err != nil {
			return nil, fmt.Errorf("availability range %s-%s: %w", r.Start, r.End, err)
		}

		rangeStart := midnight.Add(time.Duration(startMin) * time.Minute)
		rangeEnd := midnight.Add(time.Duration(endMin) * time.Minute)

		for t := rangeStart; !t.Add(booking.DurationShort * time.Minute).After(rangeEnd); t = t.Add(booking.SlotStep) {
			end := t.Add(booking.DurationShort * time.Minute)
			slots = append(slots, Slot{
				Start:           t,
				End:             end,
				DurationMinutes: booking.DurationShort,
				Available:       !booking.WindowBooked(existing, t, end),
			})
		}

		for t := rangeStart; !t.Add(booking.DurationLong * time.Minute).After(rangeEnd); t = t.Add(booking.SlotStep) {
			mid := t.Add(booking.DurationShort * time.Minute)
			end := t.Add(booking.DurationLong * time.Minute)

			firstHalfFree := !booking.WindowBooked(existing, t, mid)
			secondHalfFree := !booking.WindowBooked(existing, mid, end)

			slots = append(slots, Slot{
				Start:           t,
				End:             end,
				DurationMinutes: booking.DurationLong,
				Available:       firstHalfFree && secondHalfFree,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].DurationMinutes < slots[j].DurationMinutes
	})

	return slots, nil
}

// ForDate picks the right weekday's ranges out of a weekly schedule and
// generates that date's slots.
func ForDate(weekly availability.Weekly, date time.Time, loc *time.Location, existing []booking.Appointment) ([]Slot, error) {
	day := availability.FromTime(date.In(loc).Weekday())
	return Generate(weekly.Ranges(day), date, loc, existing)
}
