package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleOneShotDetection(t *testing.T) {
	assert.True(t, ScheduleRecord{RepeatDays: "2026-08-23"}.OneShot())
	assert.False(t, ScheduleRecord{RepeatDays: "mon,wed,fri"}.OneShot())
	assert.False(t, ScheduleRecord{RepeatDays: "sun"}.OneShot())
}

func TestScheduleStartClock(t *testing.T) {
	r := ScheduleRecord{StartTimeOfDay: "06:30:15"}
	h, m, s, err := r.StartClock()
	require.NoError(t, err)
	assert.Equal(t, [3]int{6, 30, 15}, [3]int{h, m, s})

	for _, bad := range []string{"", "06:30", "25:00:00", "06:61:00", "six am"} {
		_, _, _, err := ScheduleRecord{StartTimeOfDay: bad}.StartClock()
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestScheduleWeekdays(t *testing.T) {
	days, err := ScheduleRecord{RepeatDays: "Mon, wed ,FRI"}.Weekdays()
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, days)

	_, err = ScheduleRecord{RepeatDays: "mon,funday"}.Weekdays()
	assert.Error(t, err)

	_, err = ScheduleRecord{RepeatDays: ""}.Weekdays()
	assert.Error(t, err)

	_, err = ScheduleRecord{RepeatDays: "2026-08-23"}.Weekdays()
	assert.Error(t, err, "dated records have no weekday set")
}

func TestScheduleValidate(t *testing.T) {
	ok := ScheduleRecord{ID: 1, StartTimeOfDay: "06:00:00", DurationMin: 15, RepeatDays: "mon"}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.DurationMin = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.StartTimeOfDay = "nope"
	assert.Error(t, bad.Validate())

	bad = ok
	bad.RepeatDays = "  "
	assert.Error(t, bad.Validate())
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{CriticalLowThreshold: 40, CriticalHighThreshold: 80}.Validate())
	assert.Error(t, Settings{CriticalLowThreshold: 80, CriticalHighThreshold: 40}.Validate())
	assert.Error(t, Settings{CriticalLowThreshold: 50, CriticalHighThreshold: 50}.Validate())
	assert.Error(t, Settings{CriticalLowThreshold: -1, CriticalHighThreshold: 80}.Validate())
	assert.Error(t, Settings{CriticalLowThreshold: 40, CriticalHighThreshold: 101}.Validate())
}
