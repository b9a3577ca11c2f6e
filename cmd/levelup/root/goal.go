package root

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"levelup/internal/engine"
	"levelup/internal/ui"
)

const dateLayout = "2006-01-02"

func newGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals"},
		Short:   "Manage goals",
	}
	cmd.AddCommand(
		newGoalAddCmd(),
		newGoalListCmd(),
		newGoalEditCmd(),
		newGoalArchiveCmd(),
		newGoalRmCmd(),
	)
	return cmd
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return &d, nil
}

func newGoalAddCmd() *cobra.Command {
	var desc, timeframe, target string
	var demo bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a goal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
				return errors.New("title is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tf, err := engine.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			td, err := parseDate(target)
			if err != nil {
				return err
			}
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			g, err := svc.AddGoal(ctx, engine.GoalInput{
				Title:       strings.Join(args, " "),
				Description: desc,
				Timeframe:   tf,
				TargetDate:  td,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render(ui.IconGoal+" Added"), g.Title, ui.Muted.Render("#"+shortID(g.ID)))

			if demo {
				t, err := svc.CreateDemoTree(ctx, g.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d quests)\n", ui.Good.Render(ui.IconTree+" Planted"), t.Title, t.TotalNodes())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe (weekly|monthly|quarterly|annual)")
	cmd.Flags().StringVar(&target, "target", "", "Target date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&demo, "demo", false, "Attach the built-in demo tree")
	return cmd
}

func newGoalListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			goals := svc.Goals()
			shown := 0
			for _, g := range goals {
				if g.Status == engine.GoalArchived && !all {
					continue
				}
				shown++
				line := fmt.Sprintf("%s %s %s [%s]", ui.Muted.Render(shortID(g.ID)), g.Title, ui.StatusText(string(g.Status)), g.Timeframe)
				if t, err := svc.TreeForGoal(g.ID); err == nil {
					line += " " + ui.Percent(t.ProgressPercentage(), 10)
				}
				if g.TargetDate != nil {
					line += " " + ui.Muted.Render("due "+g.TargetDate.Format(dateLayout))
				}
				fmt.Fprintln(out, line)
			}
			if shown == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(no goals, try: levelup goal add \"Learn Go\" --demo)"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include archived goals")
	return cmd
}

func newGoalEditCmd() *cobra.Command {
	var title, desc, timeframe, target string
	var clearTarget bool

	cmd := &cobra.Command{
		Use:   "edit <goal>",
		Short: "Change a goal's title, description, timeframe or target date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var patch engine.GoalPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("desc") {
				patch.Description = &desc
			}
			if cmd.Flags().Changed("timeframe") {
				tf, err := engine.ParseTimeframe(timeframe)
				if err != nil {
					return err
				}
				patch.Timeframe = &tf
			}
			td, err := parseDate(target)
			if err != nil {
				return err
			}
			patch.TargetDate = td
			patch.ClearTargetDate = clearTarget

			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveGoal(svc, args[0])
			if err != nil {
				return err
			}
			g, err := svc.UpdateGoal(ctx, id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render("Updated"), g.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "New description")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "New timeframe")
	cmd.Flags().StringVar(&target, "target", "", "New target date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearTarget, "clear-target", false, "Remove the target date")
	return cmd
}

func newGoalArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <goal>",
		Short: "Archive a goal; its tree stays but leaves the focus list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveGoal(svc, args[0])
			if err != nil {
				return err
			}
			g, err := svc.ArchiveGoal(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Muted.Render("Archived"), g.Title)
			return nil
		},
	}
}

func newGoalRmCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <goal>",
		Short: "Delete a goal and its tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveGoal(svc, args[0])
			if err != nil {
				return err
			}
			g, err := svc.Goal(id)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("deleting %q removes its tree for good; rerun with --yes", g.Title)
			}
			if err := svc.DeleteGoal(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Warn.Render("Deleted"), g.Title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
