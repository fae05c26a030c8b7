// Package validation checks the shapes core.Core accepts from callers
// before they reach a repository: templates, matching rules, automation
// schedules, sources, and output presets.
package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"mediahub/pkg/models"
)

// Validator performs struct-tag validation plus the dispatch-by-kind
// checks a single struct tag can't express (matching rule pattern syntax,
// schedule descriptor field combinations).
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: validator.New()}
}

type templateInput struct {
	Name     string `validate:"required,min=1,max=200"`
	Priority int    `validate:"gte=0,lte=1000"`
}

// ValidateTemplate checks the template's own fields and every matching
// rule and output config attached to it.
func (v *Validator) ValidateTemplate(tmpl models.Template) error {
	if err := v.validate.Struct(templateInput{Name: tmpl.Name, Priority: tmpl.Priority}); err != nil {
		return fmt.Errorf("template: %w", err)
	}
	for i, rule := range tmpl.Rules {
		if err := v.ValidateMatchingRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	for i, oc := range tmpl.OutputConfigs {
		if oc.PresetID == "" {
			return fmt.Errorf("output config %d: preset_id is required", i)
		}
	}
	return nil
}

// ValidateMatchingRule dispatches on MatchType since a regex pattern must
// actually compile while an exact/contains pattern just needs to be
// non-empty.
func (v *Validator) ValidateMatchingRule(rule models.MatchingRule) error {
	if rule.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	switch rule.MatchType {
	case models.MatchExact, models.MatchContains:
		return nil
	case models.MatchRegex:
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown match type: %s", rule.MatchType)
	}
}

// ValidateSchedule dispatches on ScheduleKind: each kind requires a
// different subset of ScheduleDescriptor's fields to be set.
func (v *Validator) ValidateSchedule(sched models.ScheduleDescriptor) error {
	switch sched.Kind {
	case models.ScheduleTimeOfDay:
		if !timeOfDayPattern.MatchString(sched.TimeOfDay) {
			return fmt.Errorf("time_of_day must be HH:MM")
		}
	case models.ScheduleWeekdays:
		if !timeOfDayPattern.MatchString(sched.TimeOfDay) {
			return fmt.Errorf("time_of_day must be HH:MM")
		}
		if len(sched.Weekdays) == 0 {
			return fmt.Errorf("weekdays must list at least one day")
		}
		for _, d := range sched.Weekdays {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekday %d out of range 0-6", d)
			}
		}
	case models.ScheduleEveryNHours:
		if sched.EveryNHours <= 0 {
			return fmt.Errorf("every_n_hours must be positive")
		}
	case models.ScheduleCron:
		if sched.CronExpr == "" {
			return fmt.Errorf("cron_expr is required")
		}
	default:
		return fmt.Errorf("unknown schedule kind: %s", sched.Kind)
	}
	if sched.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts cannot be negative")
	}
	return nil
}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type sourceInput struct {
	Name string `validate:"required,min=1,max=200"`
}

func (v *Validator) ValidateSource(src models.Source) error {
	if err := v.validate.Struct(sourceInput{Name: src.Name}); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	switch src.Type {
	case models.SourceTypeConferencing, models.SourceTypeCloudDrive, models.SourceTypeLocalFile:
	default:
		return fmt.Errorf("unknown source type: %s", src.Type)
	}
	return nil
}

type presetInput struct {
	Name         string `validate:"required,min=1,max=200"`
	CredentialID string `validate:"required"`
}

func (v *Validator) ValidatePreset(preset models.OutputPreset) error {
	if err := v.validate.Struct(presetInput{Name: preset.Name, CredentialID: preset.CredentialID}); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	switch preset.TargetPlatform {
	case models.PlatformHostingA, models.PlatformHostingB, models.PlatformCloudDrive:
	default:
		return fmt.Errorf("unsupported target platform: %s", preset.TargetPlatform)
	}
	return nil
}
