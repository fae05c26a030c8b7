package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next fire time for sched strictly after after, per
// spec §4.9. ScheduleCron delegates to robfig/cron's standard five-field
// expression parser; the other kinds are computed directly since they
// describe a single daily/weekday/interval slot rather than a full
// crontab.
func NextRun(sched models.ScheduleDescriptor, after time.Time) (time.Time, error) {
	loc, err := zoneFor(sched.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	switch sched.Kind {
	case models.ScheduleCron:
		schedule, err := cronParser.Parse(sched.CronExpr)
		if err != nil {
			return time.Time{}, errs.Wrap(errs.Validation, "invalid cron_expr", err)
		}
		return schedule.Next(after), nil

	case models.ScheduleEveryNHours:
		if sched.EveryNHours <= 0 {
			return time.Time{}, errs.New(errs.Validation, "every_n_hours must be positive")
		}
		step := time.Duration(sched.EveryNHours) * time.Hour
		return after.Add(step), nil

	case models.ScheduleTimeOfDay:
		hh, mm, err := parseHHMM(sched.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}
		return nextDailySlot(after.In(loc), hh, mm), nil

	case models.ScheduleWeekdays:
		hh, mm, err := parseHHMM(sched.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}
		if len(sched.Weekdays) == 0 {
			return time.Time{}, errs.New(errs.Validation, "weekdays_time requires at least one weekday")
		}
		return nextWeekdaySlot(after.In(loc), hh, mm, sched.Weekdays), nil

	default:
		return time.Time{}, errs.New(errs.Validation, "unknown schedule kind "+string(sched.Kind))
	}
}

func zoneFor(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, "invalid timezone "+name, err)
	}
	return loc, nil
}

func parseHHMM(s string) (hour, minute int, err error) {
	t, parseErr := time.Parse("15:04", s)
	if parseErr != nil {
		return 0, 0, errs.Wrap(errs.Validation, "invalid time_of_day "+s, parseErr)
	}
	return t.Hour(), t.Minute(), nil
}

func nextDailySlot(after time.Time, hour, minute int) time.Time {
	candidate := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, after.Location())
	if !candidate.After(after) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func nextWeekdaySlot(after time.Time, hour, minute int, weekdays []int) time.Time {
	allowed := make(map[int]bool, len(weekdays))
	for _, d := range weekdays {
		allowed[d%7] = true
	}
	candidate := nextDailySlot(after, hour, minute)
	for !allowed[int(candidate.Weekday())] {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
