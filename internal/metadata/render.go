// Package metadata renders the title/description templates used by the
// Upload stage, substituting the placeholder set defined in spec §6.
// Every substitution contract is matched byte-for-byte; unknown
// placeholders are left untouched in the output.
package metadata

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"mediahub/pkg/models"
)

// TopicsDisplay configures how {topics} is rendered, mirroring the
// metadata_config.topics_display object from spec §6.
type TopicsDisplay struct {
	Format            string // numbered_list | bullet_list | dash_list | comma_separated | inline
	MaxCount          int
	IncludeTimestamps bool
}

// RenderContext carries every value a placeholder can draw from.
type RenderContext struct {
	DisplayName   string
	SourceName    string
	StartTime     time.Time
	Now           time.Time
	Timezone      *time.Location
	Locale        string // "ru" selects "Xч Yм"; anything else selects "Xh Ym"
	DurationS     float64
	Topics        []models.Topic
	ThemeCount    int // top-N for {themes}, default 3
	TopicsDisplay TopicsDisplay
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)(?::([^}]*))?\}`)

// Render substitutes every recognized placeholder in tmpl. Unknown
// placeholders (unrecognized name) are left exactly as written.
func Render(tmpl string, rc RenderContext) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		name, arg := groups[1], groups[2]
		val, ok := resolve(name, arg, rc)
		if !ok {
			return match
		}
		return val
	})
}

func resolve(name, arg string, rc RenderContext) (string, bool) {
	switch name {
	case "display_name":
		return rc.DisplayName, true
	case "themes":
		return renderThemes(rc), true
	case "topics":
		return renderTopics(rc), true
	case "duration":
		return renderDuration(rc), true
	case "source_name":
		return rc.SourceName, true
	case "record_time":
		return renderTime(rc.StartTime, rc.Timezone, arg), true
	case "publish_time":
		return renderTime(rc.Now, rc.Timezone, arg), true
	case "topic":
		return renderFirstTopic(rc), true
	default:
		return "", false
	}
}

func renderThemes(rc RenderContext) string {
	n := rc.ThemeCount
	if n <= 0 {
		n = 3
	}
	var titles []string
	for _, t := range rc.Topics {
		if t.IsBreak {
			continue
		}
		titles = append(titles, t.Title)
		if len(titles) == n {
			break
		}
	}
	return strings.Join(titles, ", ")
}

func renderFirstTopic(rc RenderContext) string {
	for _, t := range rc.Topics {
		if !t.IsBreak {
			return t.Title
		}
	}
	return ""
}

func renderTopics(rc RenderContext) string {
	cfg := rc.TopicsDisplay
	format := cfg.Format
	if format == "" {
		format = "numbered_list"
	}
	max := cfg.MaxCount
	if max <= 0 {
		max = len(rc.Topics)
	}

	lines := make([]string, 0, len(rc.Topics))
	i := 0
	for _, t := range rc.Topics {
		if t.IsBreak {
			continue
		}
		if i >= max {
			break
		}
		entry := t.Title
		if cfg.IncludeTimestamps {
			entry = fmt.Sprintf("%s — %s", formatHMS(t.StartS), t.Title)
		}
		lines = append(lines, entry)
		i++
	}

	switch format {
	case "bullet_list":
		return joinLines(lines, "• ")
	case "dash_list":
		return joinLines(lines, "- ")
	case "comma_separated":
		return strings.Join(lines, ", ")
	case "inline":
		return strings.Join(lines, "; ")
	case "numbered_list":
		fallthrough
	default:
		out := make([]string, len(lines))
		for i, l := range lines {
			out[i] = fmt.Sprintf("%d. %s", i+1, l)
		}
		return strings.Join(out, "\n")
	}
}

func joinLines(lines []string, prefix string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = prefix + l
	}
	return strings.Join(out, "\n")
}

func formatHMS(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func renderDuration(rc RenderContext) string {
	total := int(rc.DurationS)
	hours := total / 3600
	minutes := (total % 3600) / 60
	if rc.Locale == "ru" {
		return fmt.Sprintf("%dч %dм", hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// renderTime applies fmt tokens DD, MM, YY, YYYY, hh, mm, ss, date, time,
// datetime to t in the given timezone. Example: "DD.MM.YYYY" -> "25.12.2024".
func renderTime(t time.Time, loc *time.Location, fmtArg string) string {
	if loc != nil {
		t = t.In(loc)
	}
	if fmtArg == "" {
		fmtArg = "datetime"
	}

	switch fmtArg {
	case "date":
		fmtArg = "YYYY-MM-DD"
	case "time":
		fmtArg = "hh:mm:ss"
	case "datetime":
		fmtArg = "YYYY-MM-DD hh:mm:ss"
	}

	replacer := strings.NewReplacer(
		"YYYY", fmt.Sprintf("%04d", t.Year()),
		"YY", fmt.Sprintf("%02d", t.Year()%100),
		"MM", fmt.Sprintf("%02d", int(t.Month())),
		"DD", fmt.Sprintf("%02d", t.Day()),
		"hh", fmt.Sprintf("%02d", t.Hour()),
		"mm", fmt.Sprintf("%02d", t.Minute()),
		"ss", fmt.Sprintf("%02d", t.Second()),
	)
	return replacer.Replace(fmtArg)
}
