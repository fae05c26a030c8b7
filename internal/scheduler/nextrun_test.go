package scheduler

import (
	"testing"
	"time"

	"mediahub/pkg/models"
)

func TestNextRunTimeOfDayRollsToTomorrowWhenPassed(t *testing.T) {
	sched := models.ScheduleDescriptor{Kind: models.ScheduleTimeOfDay, TimeOfDay: "06:00", Timezone: "UTC"}
	after := time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC)
	next, err := NextRun(sched, after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := time.Date(2026, 7, 30, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextRunTimeOfDaySameDayWhenNotYetPassed(t *testing.T) {
	sched := models.ScheduleDescriptor{Kind: models.ScheduleTimeOfDay, TimeOfDay: "18:00", Timezone: "UTC"}
	after := time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC)
	next, err := NextRun(sched, after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := time.Date(2026, 7, 29, 18, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextRunEveryNHours(t *testing.T) {
	sched := models.ScheduleDescriptor{Kind: models.ScheduleEveryNHours, EveryNHours: 4}
	after := time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC)
	next, err := NextRun(sched, after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := after.Add(4 * time.Hour)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextRunWeekdaysSkipsToAllowedDay(t *testing.T) {
	// 2026-07-29 is a Wednesday; only Mondays (1) and Fridays (5) allowed.
	sched := models.ScheduleDescriptor{
		Kind: models.ScheduleWeekdays, TimeOfDay: "09:00", Timezone: "UTC", Weekdays: []int{1, 5},
	}
	after := time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC)
	next, err := NextRun(sched, after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if next.Weekday() != time.Friday {
		t.Fatalf("expected next Friday, got %v (%v)", next.Weekday(), next)
	}
}

func TestNextRunCronExpression(t *testing.T) {
	sched := models.ScheduleDescriptor{Kind: models.ScheduleCron, CronExpr: "0 6 * * *"}
	after := time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC)
	next, err := NextRun(sched, after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := time.Date(2026, 7, 30, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextRunRejectsUnknownKind(t *testing.T) {
	_, err := NextRun(models.ScheduleDescriptor{Kind: "bogus"}, time.Now())
	if err == nil {
		t.Fatal("expected error for unknown schedule kind")
	}
}
