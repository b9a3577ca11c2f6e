package engine

import "time"

// Achievement represents a badge the player can earn.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earnedAt,omitempty"`
}

// AchievementChecker calculates which achievements the player has earned.
type AchievementChecker struct {
	stats UserStats
	trees []*SkillTree
}

func NewAchievementChecker(stats UserStats, trees []*SkillTree) *AchievementChecker {
	return &AchievementChecker{stats: stats, trees: trees}
}

// GetAchievements returns all achievements with their earned status.
func (c *AchievementChecker) GetAchievements() []Achievement {
	return []Achievement{
		// Level milestones
		c.levelAchievement("getting_started", "Getting Started", "Reach level 2", "🌱", 2),
		c.levelAchievement("on_the_path", "On the Path", "Reach level 5", "🌳", 5),
		c.levelAchievement("seasoned", "Seasoned Adventurer", "Reach level 10", "⭐", 10),
		c.levelAchievement("master", "Master", "Reach level 20", "💫", 20),

		// Quest completion milestones
		c.nodeCountAchievement("first_quest", "First Quest", "Complete 1 quest", "✓", 1),
		c.nodeCountAchievement("productive", "Productive", "Complete 10 quests", "📋", 10),
		c.nodeCountAchievement("achiever", "Achiever", "Complete 50 quests", "🏅", 50),

		// Trees
		c.treeCountAchievement("first_tree", "Tree Climber", "Finish a skill tree", "🌲", 1),
		c.treeCountAchievement("arborist", "Arborist", "Finish 5 skill trees", "🏞", 5),

		// Streaks
		c.streakAchievement("on_a_roll", "On a Roll", "Keep a 3 day streak", "🔥", 3),
		c.streakAchievement("unstoppable", "Unstoppable", "Keep a 14 day streak", "⚡", 14),

		// Attributes
		c.attrAchievement("strong", "Strong", "STR 15", "💪", StatSTR, 15),
		c.attrAchievement("smart", "Smart", "INT 15", "🧠", StatINT, 15),
		c.attrAchievement("wise", "Wise", "WIS 15", "🧘", StatWIS, 15),
		c.attrAchievement("nimble", "Nimble", "DEX 15", "🎯", StatDEX, 15),
		c.attrAchievement("charming", "Charming", "CHA 15", "🎭", StatCHA, 15),
		c.attrAchievement("hardy", "Hardy", "VIT 15", "❤", StatVIT, 15),

		// Regeneration kept finished work around
		c.legacyAchievement("keeper", "Keeper of Lore", "Keep a completed quest through a refresh", "📜"),
	}
}

// CountEarned returns how many of list are earned and how long list is.
func CountEarned(list []Achievement) (earned, total int) {
	for _, a := range list {
		if a.Earned {
			earned++
		}
	}
	return earned, len(list)
}

// Newly returns earned achievements missing from already.
func (c *AchievementChecker) Newly(already map[string]time.Time) []Achievement {
	var out []Achievement
	for _, a := range c.GetAchievements() {
		if _, seen := already[a.ID]; a.Earned && !seen {
			out = append(out, a)
		}
	}
	return out
}

func (c *AchievementChecker) levelAchievement(id, name, desc, icon string, level int) Achievement {
	earned := c.stats.Level >= level
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) nodeCountAchievement(id, name, desc, icon string, count int) Achievement {
	earned := c.stats.NodesCompleted >= count
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) treeCountAchievement(id, name, desc, icon string, count int) Achievement {
	earned := c.stats.TreesCompleted >= count
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) streakAchievement(id, name, desc, icon string, days int) Achievement {
	earned := c.stats.LongestStreak >= days
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) attrAchievement(id, name, desc, icon string, s Stat, value int) Achievement {
	earned := c.stats.Attribute(s) >= value
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

func (c *AchievementChecker) legacyAchievement(id, name, desc, icon string) Achievement {
	earned := false
	for _, t := range c.trees {
		if b := t.Branch(LegacyBranchID); b != nil && len(b.NodeIDs) > 0 {
			earned = true
			break
		}
	}
	return Achievement{ID: id, Name: name, Description: desc, Icon: icon, Earned: earned}
}

// Achievements returns every achievement with the time it was first earned.
func (s *Service) Achievements() []Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := NewAchievementChecker(s.st.stats, s.st.allTrees()).GetAchievements()
	for i := range all {
		if at, ok := s.st.earned[all[i].ID]; ok {
			t := at
			all[i].Earned = true
			all[i].EarnedAt = &t
		}
	}
	return all
}
