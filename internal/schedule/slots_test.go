package schedule

import (
	"strconv"
	"testing"
	"time"

	"github.com/serviq/booking-engine/internal/availability"
	"github.com/serviq/booking-engine/internal/booking"
)

// 2026-08-31 is a Monday.
var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 31, hour, min, 0, 0, time.UTC)
}

func appt(start time.Time, durationMinutes int, status booking.Status) booking.Appointment {
	return booking.Appointment{
		StartTime:       start,
		DurationMinutes: durationMinutes,
		Status:          status,
	}
}

func TestGenerateEmptyRange(t *testing.T) {
	slots, err := Generate(nil, monday, time.UTC, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestGenerateMorningGrid(t *testing.T) {
	ranges := []availability.TimeRange{{Start: "09:00", End: "12:00"}}

	slots, err := Generate(ranges, monday, time.UTC, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 30-minute slots at 09:00..11:30 and 60-minute slots at 09:00..11:00.
	if len(slots) != 11 {
		t.Fatalf("expected 11 slots, got %d", len(slots))
	}

	// Sorted by start, shorter duration first at equal starts.
	if !slots[0].Start.Equal(at(9, 0)) || slots[0].DurationMinutes != 30 {
		t.Fatalf("first slot wrong: %+v", slots[0])
	}
	if !slots[1].Start.Equal(at(9, 0)) || slots[1].DurationMinutes != 60 {
		t.Fatalf("second slot wrong: %+v", slots[1])
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(at(11, 30)) || last.DurationMinutes != 30 {
		t.Fatalf("last slot wrong: %+v", last)
	}

	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s/%d should be available with no bookings", s.Start, s.DurationMinutes)
		}
		if !s.End.Equal(s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)) {
			t.Fatalf("slot end inconsistent: %+v", s)
		}
	}
}

func TestGenerateHalfHourBookingKnocksOutHourSlots(t *testing.T) {
	ranges := []availability.TimeRange{{Start: "09:00", End: "12:00"}}
	existing := []booking.Appointment{
		appt(at(9, 30), 30, booking.StatusConfirmed),
	}

	slots, err := Generate(ranges, monday, time.UTC, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unavailable := map[string]bool{}
	for _, s := range slots {
		if !s.Available {
			unavailable[s.Start.Format("15:04")+"/"+strconv.Itoa(s.DurationMinutes)] = true
		}
	}

	// The 09:30 half-hour itself, plus both 60-minute windows that contain it.
	want := []string{"09:30/30", "09:00/60", "09:30/60"}
	if len(unavailable) != len(want) {
		t.Fatalf("expected %d unavailable slots, got %v", len(want), unavailable)
	}
	for _, key := range want {
		if !unavailable[key] {
			t.Errorf("expected %s to be unavailable", key)
		}
	}
}

func TestGenerateCancelledDoesNotBlock(t *testing.T) {
	ranges := []availability.TimeRange{{Start: "09:00", End: "10:00"}}
	existing := []booking.Appointment{
		appt(at(9, 0), 60, booking.StatusCancelledByClient),
		appt(at(9, 0), 30, booking.StatusCancelledByPro),
	}

	slots, err := Generate(ranges, monday, time.UTC, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("cancelled appointments must not block, got unavailable %+v", s)
		}
	}
}

func TestGeneratePendingBlocks(t *testing.T) {
	ranges := []availability.TimeRange{{Start: "09:00", End: "10:00"}}
	existing := []booking.Appointment{
		appt(at(9, 0), 30, booking.StatusPending),
	}

	slots, err := Generate(ranges, monday, time.UTC, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.Start.Equal(at(9, 0)) && s.Available {
			t.Fatalf("pending appointment must block slot %+v", s)
		}
	}
}

func TestGenerateShortRangeHasNoHourSlots(t *testing.T) {
	ranges := []availability.TimeRange{{Start: "09:00", End: "09:30"}}

	slots, err := Generate(ranges, monday, time.UTC, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 || slots[0].DurationMinutes != 30 {
		t.Fatalf("expected exactly one 30-minute slot, got %+v", slots)
	}
}

func TestForDatePicksWeekday(t *testing.T) {
	var weekly availability.Weekly
	weekly.Days[availability.Monday] = []availability.TimeRange{{Start: "09:00", End: "10:00"}}

	slots, err := ForDate(weekly, monday, time.UTC, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected monday slots")
	}

	tuesday := monday.AddDate(0, 0, 1)
	slots, err = ForDate(weekly, tuesday, time.UTC, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no tuesday slots, got %d", len(slots))
	}
}

func TestGenerateBadRange(t *testing.T) {
	ranges := []availability.TimeRange{{Start: "nine", End: "12:00"}}
	if _, err := Generate(ranges, monday, time.UTC, nil); err == nil {
		t.Fatal("malformed range should error")
	}
}
