package slack

import (
	"fmt"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/wisbric/gieplan/pkg/roster"
)

// maxWeeksShown bounds how many weeks one message lists; longer rosters
// get a trailing summary line instead.
const maxWeeksShown = 8

// RosterBlocks builds Slack Block Kit blocks announcing a roster.
func RosterBlocks(r roster.Response, warnings []string) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType,
			fmt.Sprintf("🪴 Watering roster: %d weeks from %s", r.Weeks, r.StartDate), true, false),
	)

	blocks := []goslack.Block{header}

	var lines []string
	for i, wa := range r.Assignments {
		if i >= maxWeeksShown {
			lines = append(lines, fmt.Sprintf("_…and %d more weeks_", len(r.Assignments)-maxWeeksShown))
			break
		}
		line := fmt.Sprintf("*%s* — %s", wa.WeekStart, strings.Join(wa.Main, ", "))
		if len(wa.Substitutes) > 0 {
			line += fmt.Sprintf(" (subs: %s)", strings.Join(wa.Substitutes, ", "))
		}
		if !wa.HasMentor {
			line += " ⚠️ no mentor"
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncate(strings.Join(lines, "\n"), 2900), false, false),
			nil, nil,
		))
	}

	if len(warnings) > 0 {
		blocks = append(blocks, goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType,
				truncate(fmt.Sprintf("⚠️ %d warnings: %s", len(warnings), strings.Join(warnings, "; ")), 2900),
				false, false),
		))
	}

	return blocks
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(rs[:n-1]) + "…"
}
