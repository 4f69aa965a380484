package availability

import (
	"encoding/json"
	"fmt"
)

// The wire and storage shape is a map keyed by lowercase weekday name:
//
//	{"monday":[{"start":"09:00","end":"12:00"}], "tuesday":[], ...}
//
// Absent days mean no open hours.

func (w Weekly) MarshalJSON() ([]byte, error) {
	out := make(map[string][]TimeRange, 7)
	for d := Monday; d <= Sunday; d++ {
		if len(w.Days[d]) > 0 {
			out[d.String()] = w.Days[d]
		}
	}
	return json.Marshal(out)
}

func (w *Weekly) UnmarshalJSON(data []byte) error {
	var raw map[string][]TimeRange
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var parsed Weekly
	for name, ranges := range raw {
		d, err := ParseWeekday(name)
		if err != nil {
			return fmt.Errorf("weekly schedule: %w", err)
		}
		parsed.Days[d] = ranges
	}

	*w = parsed
	return nil
}
