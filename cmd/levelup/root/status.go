package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"levelup/internal/engine"
	"levelup/internal/ui"
)

var statIcons = map[engine.Stat]string{
	engine.StatSTR: "💪",
	engine.StatINT: "🧠",
	engine.StatWIS: "🦉",
	engine.StatDEX: "🎯",
	engine.StatCHA: "🗣️",
	engine.StatVIT: "❤️",
}

func newStatusCmd() *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, XP, streak and attributes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			st := svc.Stats()
			into, span := engine.LevelProgress(st.TotalXP)
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Player Status"))
			fmt.Fprintln(out, ui.LabelValue("Level", st.Level))
			fmt.Fprintln(out, ui.LabelValue("Total XP", fmt.Sprintf("%d %s %s", st.TotalXP,
				ui.ProgressBar(into, span, 20),
				ui.Muted.Render(fmt.Sprintf("(%d to level %d)", engine.XPToNextLevel(st.Level, st.TotalXP), st.Level+1)))))
			fmt.Fprintln(out, ui.LabelValue("Streak", fmt.Sprintf("%s %d days %s", ui.IconFlame, st.CurrentStreak, ui.Muted.Render(fmt.Sprintf("(best %d)", st.LongestStreak)))))
			fmt.Fprintln(out, ui.LabelValue("Completed", fmt.Sprintf("%d quests, %d trees", st.NodesCompleted, st.TreesCompleted)))
			earned, total := engine.CountEarned(svc.Achievements())
			fmt.Fprintln(out, ui.LabelValue("Achievements", fmt.Sprintf("%s %d/%d", ui.IconTrophy, earned, total)))
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render("📊 Attributes"))
			for _, s := range engine.AllStats {
				fmt.Fprintf(out, "- %s %s: %d\n", statIcons[s], s, st.Attribute(s))
			}

			if recent > 0 {
				rows, err := svc.RecentCompletions(ctx, recent)
				if err != nil {
					return err
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, "")
					fmt.Fprintln(out, ui.H2.Render(ui.IconScroll+" Recent"))
					for _, r := range rows {
						title := r.NodeID
						if n, _, err := svc.Node(r.NodeID); err == nil {
							title = n.Title
						}
						fmt.Fprintf(out, "- %s %s %s\n", ui.Muted.Render(r.CompletedAt.Local().Format("Jan 02 15:04")), title, ui.Gold.Render(fmt.Sprintf("+%d", r.XPAwarded)))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&recent, "recent", "r", 5, "Show this many recent completions")
	return cmd
}

func newAchievementsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "List achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			list := svc.Achievements()
			earned, total := engine.CountEarned(list)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconTrophy, fmt.Sprintf("Achievements %d/%d", earned, total)))
			for _, a := range list {
				switch {
				case a.Earned:
					fmt.Fprintf(out, "%s %s %s\n", a.Icon, ui.Gold.Render(a.Name), ui.Muted.Render(a.Description))
				case all:
					fmt.Fprintf(out, "%s %s %s\n", ui.IconLock, ui.Muted.Render(a.Name), ui.Muted.Render(a.Description))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include locked achievements")
	return cmd
}
