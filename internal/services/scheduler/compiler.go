package scheduler

import (
	"fmt"
	"time"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/metrics"
	"github.com/arcfarm/irrigation-backend/internal/model"
)

// PumpController is the slice of the arbitrator the compiled triggers drive.
// Routing through the same primitives as every other caller keeps
// idempotency and side effects centralized.
type PumpController interface {
	PumpOn(source string)
	PumpOff(source string)
	SetActiveSchedule(name string, end time.Time)
	ClearActiveSchedule()
}

// Compiler keeps the trigger registry in sync with the schedule records.
// Each active day-of-week record compiles to an on_<id>/off_<id> pair.
type Compiler struct {
	cron *Cron
	pump PumpController
	now  func() time.Time
}

// NewCompiler builds a compiler over the given registry.
func NewCompiler(cron *Cron, pump PumpController) *Compiler {
	return &Compiler{cron: cron, pump: pump, now: time.Now}
}

func onID(id int64) string  { return fmt.Sprintf("on_%d", id) }
func offID(id int64) string { return fmt.Sprintf("off_%d", id) }

// Compile replaces the triggers for a record. Inactive records end up with
// no triggers; dated one-time records are accepted but produce no triggers
// (the node firmware predates one-shot firing, so they are stored and
// surfaced in the API without ever running).
func (c *Compiler) Compile(rec model.ScheduleRecord) error {
	c.Decompile(rec.ID)

	if !rec.Active() {
		return nil
	}
	if rec.OneShot() {
		logger.Warnf("schedule %d (%s): dated one-time schedules are not compiled into triggers", rec.ID, rec.Name)
		return nil
	}
	if err := rec.Validate(); err != nil {
		logger.Errorf("skipping schedule %d: %v", rec.ID, err)
		return err
	}

	days, err := rec.Weekdays()
	if err != nil {
		logger.Errorf("skipping schedule %d: %v", rec.ID, err)
		return err
	}
	h, m, s, err := rec.StartClock()
	if err != nil {
		logger.Errorf("skipping schedule %d: %v", rec.ID, err)
		return err
	}

	name := rec.Name
	if name == "" {
		name = fmt.Sprintf("Schedule %d", rec.ID)
	}
	duration := time.Duration(rec.DurationMin) * time.Minute

	c.cron.Add(onID(rec.ID), days, h, m, s, func() {
		metrics.TriggersFired.Inc()
		c.pump.SetActiveSchedule(name, c.now().Add(duration))
		c.pump.PumpOn("Scheduled: " + name)
	})

	offH, offM, offS := addMinutes(h, m, s, rec.DurationMin)
	c.cron.Add(offID(rec.ID), days, offH, offM, offS, func() {
		metrics.TriggersFired.Inc()
		c.pump.PumpOff("Scheduled: " + name + " (complete)")
		c.pump.ClearActiveSchedule()
	})

	logger.Infof("scheduled %q at %02d:%02d:%02d for %d min (days=%s)", name, h, m, s, rec.DurationMin, rec.RepeatDays)
	return nil
}

// Decompile removes both triggers for a record id. Absent triggers are fine.
func (c *Compiler) Decompile(id int64) {
	c.cron.Remove(onID(id))
	c.cron.Remove(offID(id))
}

// Reload compiles every record, skipping the ones that fail; used at
// startup against the active set from the store.
func (c *Compiler) Reload(recs []model.ScheduleRecord) int {
	n := 0
	for _, rec := range recs {
		if err := c.Compile(rec); err != nil {
			continue
		}
		if rec.Active() && !rec.OneShot() {
			n++
		}
	}
	return n
}

// addMinutes advances a clock time by mins, rolling over hour and day.
// Day rollover keeps the same weekday set, matching the stored semantics.
func addMinutes(h, m, s, mins int) (int, int, int) {
	total := (h*60+m)*60 + s + mins*60
	total %= 24 * 60 * 60
	if total < 0 {
		total += 24 * 60 * 60
	}
	return total / 3600, (total % 3600) / 60, total % 60
}
