package entities

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleRecord is an irrigation schedule as stored in ORDS. RepeatDays is
// either a day-of-week set like "mon,wed,fri" or a literal calendar date
// ("2026-08-23") for a one-time run.
type ScheduleRecord struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	StartTimeOfDay string `json:"start_time_of_day"` // HH:MM:SS
	DurationMin    int    `json:"duration_min"`
	RepeatDays     string `json:"repeat_days"`
	IsActive       int    `json:"is_active"` // ORDS keeps 1/0
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Active reports whether the record is enabled.
func (r ScheduleRecord) Active() bool { return r.IsActive == 1 }

// OneShot reports whether RepeatDays encodes a literal date rather than a
// day-of-week set. Dates contain "-", day sets never do.
func (r ScheduleRecord) OneShot() bool {
	return strings.Contains(r.RepeatDays, "-")
}

// StartClock parses StartTimeOfDay into hour, minute, second.
func (r ScheduleRecord) StartClock() (h, m, s int, err error) {
	parts := strings.Split(strings.TrimSpace(r.StartTimeOfDay), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid start_time_of_day %q", r.StartTimeOfDay)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		if _, err := fmt.Sscanf(p, "%d", &vals[i]); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid start_time_of_day %q", r.StartTimeOfDay)
		}
	}
	h, m, s = vals[0], vals[1], vals[2]
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, 0, 0, fmt.Errorf("start_time_of_day %q out of range", r.StartTimeOfDay)
	}
	return h, m, s, nil
}

// Weekdays parses the RepeatDays day set. Returns an error for empty sets,
// unknown day names, and one-shot (dated) records.
func (r ScheduleRecord) Weekdays() ([]time.Weekday, error) {
	if r.OneShot() {
		return nil, fmt.Errorf("schedule %d: repeat_days %q is a date, not a day set", r.ID, r.RepeatDays)
	}
	var out []time.Weekday
	for _, p := range strings.Split(r.RepeatDays, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		wd, ok := weekdayNames[p]
		if !ok {
			return nil, fmt.Errorf("schedule %d: unknown day %q", r.ID, p)
		}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("schedule %d: empty repeat_days", r.ID)
	}
	return out, nil
}

// Validate checks the fields the compiler depends on.
func (r ScheduleRecord) Validate() error {
	if r.DurationMin <= 0 {
		return fmt.Errorf("schedule %d: duration_min must be positive, got %d", r.ID, r.DurationMin)
	}
	if _, _, _, err := r.StartClock(); err != nil {
		return err
	}
	if strings.TrimSpace(r.RepeatDays) == "" {
		return fmt.Errorf("schedule %d: repeat_days is empty", r.ID)
	}
	return nil
}
