package engine

const (
	// XPRequiredCoef scales the level curve: XP_req(L) = 100 * L^2.
	XPRequiredCoef = 100

	// MinLevel is the level of a brand new player.
	MinLevel = 1

	maxLevelSearch = 1_000_000
)

// XPRequiredForLevel returns the total XP threshold required to be at the given level.
// Levels at or below MinLevel require 0 XP.
func XPRequiredForLevel(level int) int {
	if level <= MinLevel {
		return 0
	}
	return XPRequiredCoef * level * level
}

// LevelForTotalXP returns the highest level L such that totalXP >= XPRequiredForLevel(L).
func LevelForTotalXP(totalXP int) int {
	if totalXP <= 0 {
		return MinLevel
	}

	// Exponential search upper bound, then binary search.
	low := MinLevel
	high := MinLevel + 1
	for XPRequiredForLevel(high) <= totalXP {
		low = high
		high *= 2
		if high > maxLevelSearch {
			break
		}
	}

	for low+1 < high {
		mid := low + (high-low)/2
		if XPRequiredForLevel(mid) <= totalXP {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// XPToNextLevel is how much XP is still missing to reach level+1.
func XPToNextLevel(level, totalXP int) int {
	if level < MinLevel {
		level = MinLevel
	}
	left := XPRequiredForLevel(level+1) - totalXP
	if left < 0 {
		return 0
	}
	return left
}

// LevelProgress returns the XP earned inside the current level and the size
// of that level's band.
func LevelProgress(totalXP int) (into int, span int) {
	lvl := LevelForTotalXP(totalXP)
	cur := XPRequiredForLevel(lvl)
	next := XPRequiredForLevel(lvl + 1)
	return totalXP - cur, next - cur
}
