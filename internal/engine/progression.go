package engine

import "time"

// CompletionOutcome is what a single completion did to the player record.
type CompletionOutcome struct {
	XPGained    int
	LevelBefore int
	NewLevel    int
	LeveledUp   bool
	TreeDone    bool
}

// ApplyCompletion folds one node completion into stats and returns the new
// record. It reads nothing but its arguments. Calendar days are taken in loc;
// a nil loc means UTC. treeDone tells whether this completion brought the
// owning tree to 100%.
func ApplyCompletion(stats UserStats, node *SkillNode, at time.Time, loc *time.Location, treeDone bool) (UserStats, CompletionOutcome) {
	before := stats.Level
	if before < MinLevel {
		before = MinLevel
	}

	xp := node.XPValue
	if xp < 0 {
		xp = 0
	}
	stats.TotalXP += xp

	stats.Level = LevelForTotalXP(stats.TotalXP)
	if stats.Level < before {
		stats.Level = before
	}

	for _, s := range node.LinkedStats {
		addAttribute(&stats, s, 1)
	}

	stats = updateStreak(stats, at, loc)

	stats.NodesCompleted++
	if treeDone {
		stats.TreesCompleted++
	}

	return stats, CompletionOutcome{
		XPGained:    xp,
		LevelBefore: before,
		NewLevel:    stats.Level,
		LeveledUp:   stats.Level > before,
		TreeDone:    treeDone,
	}
}

// addAttribute adds n to the counter of s. Unknown stats are ignored.
func addAttribute(u *UserStats, s Stat, n int) {
	switch s {
	case StatSTR:
		u.STR += n
	case StatINT:
		u.INT += n
	case StatWIS:
		u.WIS += n
	case StatDEX:
		u.DEX += n
	case StatCHA:
		u.CHA += n
	case StatVIT:
		u.VIT += n
	}
}

func updateStreak(u UserStats, at time.Time, loc *time.Location) UserStats {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(at, loc)

	if u.LastActivityDate == nil {
		u.CurrentStreak = 1
	} else {
		last := startOfDay(*u.LastActivityDate, loc)
		switch gap := daysBetween(last, today); {
		case gap <= 0:
			// Same day, or a timestamp older than the last activity.
			if u.CurrentStreak < 1 {
				u.CurrentStreak = 1
			}
			if gap < 0 {
				today = last
			}
		case gap == 1:
			u.CurrentStreak++
		default:
			u.CurrentStreak = 1
		}
	}

	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	u.LastActivityDate = &today
	return u
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from a to b, both midnights in the same
// location. Date arithmetic keeps DST transitions from skewing the count.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
