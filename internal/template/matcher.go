// Package template implements the Template Matcher: binding an incoming
// Recording to at most one Template via ordered rule evaluation, per spec
// §4.4.
package template

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// Repo is the persistence boundary the matcher needs.
type Repo interface {
	ListActive(ctx context.Context, tc tenantctx.Context) ([]models.Template, error)
	BindTemplate(ctx context.Context, tc tenantctx.Context, recordingID, templateID string) error
	Unbind(ctx context.Context, tc tenantctx.Context, recordingID string) error
	ListUnmapped(ctx context.Context, tc tenantctx.Context) ([]models.Recording, error)
	ListBoundTo(ctx context.Context, tc tenantctx.Context, templateID string) ([]models.Recording, error)
	ListAll(ctx context.Context, tc tenantctx.Context) ([]models.Recording, error)
}

// Matcher is the Template Matcher.
type Matcher struct {
	repo Repo
}

func New(repo Repo) *Matcher { return &Matcher{repo: repo} }

// Match picks at most one Template for rec: active templates ordered by
// priority descending then creation time ascending; within a template,
// rules are evaluated in rule-priority order and the first matching rule
// wins (first-match across the whole ordered scan).
func (m *Matcher) Match(ctx context.Context, tc tenantctx.Context, rec models.Recording) (*models.Template, error) {
	templates, err := m.repo.ListActive(ctx, tc)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(templates, func(i, j int) bool {
		if templates[i].Priority != templates[j].Priority {
			return templates[i].Priority > templates[j].Priority
		}
		return templates[i].CreatedAt.Before(templates[j].CreatedAt)
	})

	for _, tmpl := range templates {
		rules := append([]models.MatchingRule(nil), tmpl.Rules...)
		sort.SliceStable(rules, func(i, j int) bool {
			return rules[i].Priority > rules[j].Priority
		})
		for _, rule := range rules {
			ok, err := ruleMatches(rule, rec)
			if err != nil {
				return nil, err
			}
			if ok {
				t := tmpl
				return &t, nil
			}
		}
	}
	return nil, nil
}

// BindRecording runs Match and, on a hit, persists the binding.
func (m *Matcher) BindRecording(ctx context.Context, tc tenantctx.Context, rec models.Recording) (*models.Template, error) {
	tmpl, err := m.Match(ctx, tc, rec)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, nil
	}
	if err := m.repo.BindTemplate(ctx, tc, rec.ID, tmpl.ID); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Rematch re-evaluates eligible recordings against the current template
// set. When onlyUnmapped is true, only currently-unmapped recordings are
// considered; otherwise every recording is re-evaluated. Rematch is
// idempotent: running it twice in a row yields identical bindings.
func (m *Matcher) Rematch(ctx context.Context, tc tenantctx.Context, onlyUnmapped bool) (int, error) {
	var candidates []models.Recording
	var err error
	if onlyUnmapped {
		candidates, err = m.repo.ListUnmapped(ctx, tc)
	} else {
		candidates, err = m.repo.ListAll(ctx, tc)
	}
	if err != nil {
		return 0, err
	}

	rebound := 0
	for _, rec := range candidates {
		tmpl, err := m.Match(ctx, tc, rec)
		if err != nil {
			return rebound, err
		}
		if tmpl == nil {
			continue
		}
		if rec.TemplateID != nil && *rec.TemplateID == tmpl.ID {
			continue
		}
		if err := m.repo.BindTemplate(ctx, tc, rec.ID, tmpl.ID); err != nil {
			return rebound, err
		}
		rebound++
	}
	return rebound, nil
}

// OnTemplateDeleted unmaps every recording bound to templateID, preserving
// their status, per §4.4's template-deletion side effect.
func (m *Matcher) OnTemplateDeleted(ctx context.Context, tc tenantctx.Context, templateID string) error {
	bound, err := m.repo.ListBoundTo(ctx, tc, templateID)
	if err != nil {
		return err
	}
	for _, rec := range bound {
		if err := m.repo.Unbind(ctx, tc, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

func ruleMatches(rule models.MatchingRule, rec models.Recording) (bool, error) {
	if !nameMatches(rule, rec.DisplayName) {
		return false, nil
	}
	if rule.SourceType != nil && *rule.SourceType != rec.SourceType {
		return false, nil
	}
	if rule.SourceID != nil && *rule.SourceID != rec.SourceID {
		return false, nil
	}
	return true, nil
}

func nameMatches(rule models.MatchingRule, displayName string) bool {
	switch rule.MatchType {
	case models.MatchExact:
		return displayName == rule.Pattern
	case models.MatchContains:
		return strings.Contains(strings.ToLower(displayName), strings.ToLower(rule.Pattern))
	case models.MatchRegex:
		re, err := regexp.Compile(anchor(rule.Pattern))
		if err != nil {
			return false
		}
		return re.MatchString(displayName)
	default:
		return false
	}
}

func anchor(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return pattern
	}
	return "^(?:" + pattern + ")$"
}
