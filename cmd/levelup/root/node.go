package root

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"levelup/internal/engine"
	"levelup/internal/ui"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"quest"},
		Short:   "Work on skill tree nodes",
	}
	cmd.AddCommand(newNodeShowCmd(), newNodeStartCmd(), newDoCmd())
	return cmd
}

func newNodeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <node>",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveNode(svc, args[0])
			if err != nil {
				return err
			}
			n, _, err := svc.Node(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.StatusIcon(string(n.Status)), n.Title))
			if n.Description != "" {
				fmt.Fprintln(out, n.Description)
			}
			fmt.Fprintln(out, ui.LabelValue("Status", ui.StatusText(string(n.Status))))
			fmt.Fprintln(out, ui.LabelValue("Tier", n.Tier))
			fmt.Fprintln(out, ui.LabelValue("XP", n.XPValue))
			fmt.Fprintln(out, ui.LabelValue("Estimate", fmt.Sprintf("%gh", n.EstimatedHours)))
			if len(n.LinkedStats) > 0 {
				fmt.Fprintln(out, ui.LabelValue("Stats", statList(n.LinkedStats)))
			}
			for _, c := range n.CompletionCriteria {
				fmt.Fprintf(out, "  - %s\n", c)
			}
			if n.CompletedAt != nil {
				fmt.Fprintln(out, ui.LabelValue("Completed", n.CompletedAt.Local().Format("2006-01-02 15:04")))
			}
			if n.CompletionNotes != "" {
				fmt.Fprintln(out, ui.LabelValue("Notes", n.CompletionNotes))
			}
			return nil
		},
	}
}

func newNodeStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <node>",
		Short: "Mark an available node as in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveNode(svc, args[0])
			if err != nil {
				return err
			}
			n, err := svc.StartNode(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Warn.Render(ui.IconProgress+" Started"), n.Title)
			return nil
		},
	}
}

func newDoCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:     "do <node>",
		Aliases: []string{"complete"},
		Short:   "Complete a node and collect its XP",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveNode(svc, args[0])
			if err != nil {
				return err
			}
			res, err := svc.CompleteNode(ctx, id, notes)
			if err != nil {
				return err
			}
			printCompletion(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Completion notes")
	return cmd
}

func printCompletion(w io.Writer, res *engine.CompleteResult) {
	fmt.Fprintf(w, "%s %s %s\n", ui.Good.Render(ui.IconDone+" Completed"), res.Node.Title, ui.Gold.Render(fmt.Sprintf("+%d XP", res.XPGained)))
	if len(res.Node.LinkedStats) > 0 {
		fmt.Fprintf(w, "   %s +1\n", statList(res.Node.LinkedStats))
	}
	if res.LevelUp {
		fmt.Fprintf(w, "%s %s %s\n", ui.IconBolt, ui.BadgeLevelUp, ui.Gold.Render(fmt.Sprintf("level %d", res.NewLevel)))
	}
	if len(res.NewNodes) > 0 {
		titles := make([]string, len(res.NewNodes))
		for i, n := range res.NewNodes {
			titles[i] = n.Title
		}
		fmt.Fprintf(w, "%s Unlocked: %s\n", ui.IconOpen, strings.Join(titles, ", "))
	}
	if res.TreeCompleted {
		fmt.Fprintf(w, "%s %s\n", ui.IconTrophy, ui.Gold.Render("Tree complete!"))
	}
	for _, a := range res.Achievements {
		fmt.Fprintf(w, "%s %s %s\n", a.Icon, ui.Gold.Render(a.Name), ui.Muted.Render(a.Description))
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"focus"},
		Short:   "List quests you can work on now",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			focus := svc.AvailableNodes()
			if len(focus) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(nothing available)"))
				return nil
			}
			goal := ""
			for _, f := range focus {
				if f.GoalID != goal {
					goal = f.GoalID
					fmt.Fprintln(out, ui.H2.Render(ui.IconGoal+" "+f.GoalTitle))
				}
				fmt.Fprintf(out, "  %s %s %s %s\n",
					ui.StatusIcon(string(f.Node.Status)),
					ui.Muted.Render(shortID(f.Node.ID)),
					f.Node.Title,
					ui.Muted.Render(fmt.Sprintf("(%d XP)", f.Node.XPValue)))
			}
			return nil
		},
	}
}
