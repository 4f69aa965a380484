package availability

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidFormat = errors.New("time bound is not a well-formed 24h HH:MM value")
	ErrInvalidOrder  = errors.New("range start must be before range end")
	ErrOverlapping   = errors.New("ranges for the same day must not overlap")
)

// Weekday is Monday-first, unlike time.Weekday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// FromTime maps Go's Sunday-first weekday onto the Monday-first one.
func FromTime(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday accepts the lowercase day names used on the wire.
func ParseWeekday(name string) (Weekday, error) {
	for i, n := range weekdayNames {
		if n == name {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// TimeRange is a same-day open window with minute granularity, e.g. {"09:00","12:30"}.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes returns both bounds as minutes since midnight.
func (r TimeRange) Minutes() (start, end int, err error) {
	start, err = ParseClock(r.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(r.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Weekly is a professional's full recurring schedule. Each save replaces the
// whole structure; no history is kept.
type Weekly struct {
	Days [7][]TimeRange
}

// Ranges returns the ranges for one weekday, never nil.
func (w Weekly) Ranges(d Weekday) []TimeRange {
	if d < Monday || d > Sunday {
		return nil
	}
	return w.Days[d]
}

// Validate runs the per-day checks over the whole week.
func (w Weekly) Validate() error {
	for d := Monday; d <= Sunday; d++ {
		if err := ValidateDay(d, w.Days[d]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDay rejects malformed bounds, inverted ranges and overlapping
// ranges for a single weekday. It must be called before persisting any
// schedule update.
func ValidateDay(day Weekday, ranges []TimeRange) error {
	bounds := make([][2]int, 0, len(ranges))

	for _, r := range ranges {
		start, end, err := r.Minutes()
		if err != nil {
			return fmt.Errorf("%s %s-%s: %w", day, r.Start, r.End, ErrInvalidFormat)
		}
		if start >= end {
			return fmt.Errorf("%s %s-%s: %w", day, r.Start, r.End, ErrInvalidOrder)
		}
		bounds = append(bounds, [2]int{start, end})
	}

	for i := 0; i < len(bounds); i++ {
		for j := i + 1; j < len(bounds); j++ {
			if Overlaps(bounds[i][0], bounds[i][1], bounds[j][0], bounds[j][1]) {
				return fmt.Errorf("%s %s-%s and %s-%s: %w",
					day, ranges[i].Start, ranges[i].End, ranges[j].Start, ranges[j].End, ErrOverlapping)
			}
		}
	}

	return nil
}

// Overlaps is the half-open interval test: [aStart,aEnd) and [bStart,bEnd)
// overlap iff aStart < bEnd && bStart < aEnd.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ParseClock parses a strict 24h "HH:MM" value into minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
