package engine

import (
	"fmt"
	"strings"
)

// ParseStat parses user or backend input to a Stat.
// Accepts the short codes and a few long names.
func ParseStat(input string) (Stat, bool) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "str", "strength":
		return StatSTR, true
	case "int", "intelligence":
		return StatINT, true
	case "wis", "wisdom":
		return StatWIS, true
	case "dex", "dexterity":
		return StatDEX, true
	case "cha", "charisma":
		return StatCHA, true
	case "vit", "vitality":
		return StatVIT, true
	default:
		return "", false
	}
}

// ParseStats keeps the recognised stats of in, in order, without duplicates.
func ParseStats(in []string) []Stat {
	seen := map[Stat]bool{}
	var out []Stat
	for _, raw := range in {
		s, ok := ParseStat(raw)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ParseTimeframe parses a goal timeframe. Empty input yields DefaultTimeframe.
func ParseTimeframe(input string) (Timeframe, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "":
		return DefaultTimeframe, nil
	case "week", "weekly":
		return TimeframeWeekly, nil
	case "month", "monthly":
		return TimeframeMonthly, nil
	case "quarter", "quarterly":
		return TimeframeQuarterly, nil
	case "year", "yearly", "annual":
		return TimeframeAnnual, nil
	default:
		return "", fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, input)
	}
}

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return t, nil
}
