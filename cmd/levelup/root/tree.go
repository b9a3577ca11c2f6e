package root

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"levelup/internal/engine"
	"levelup/internal/ui"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tree",
		Aliases: []string{"trees"},
		Short:   "Generate, inspect and refresh skill trees",
	}
	cmd.AddCommand(
		newTreeGenerateCmd(),
		newTreeDemoCmd(),
		newTreeShowCmd(),
		newTreeRefreshCmd(),
	)
	return cmd
}

func newTreeGenerateCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "generate <goal>",
		Short: "Ask the configured backend for the goal's skill tree",
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
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Muted.Render("Generating…"))
			t, err := svc.GenerateTree(ctx, id, sources)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d quests in %d branches)\n",
				ui.Good.Render(ui.IconTree+" Generated"), t.Title, t.TotalNodes(), len(t.Branches))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "Context source id to ground the tree on (repeatable)")
	return cmd
}

func newTreeDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo <goal>",
		Short: "Attach the built-in four-quest demo tree",
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
			t, err := svc.CreateDemoTree(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d quests)\n", ui.Good.Render(ui.IconTree+" Planted"), t.Title, t.TotalNodes())
			return nil
		},
	}
}

func newTreeShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <tree|goal>",
		Short: "Print a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveTree(svc, args[0])
			if err != nil {
				return err
			}
			t, err := svc.Tree(id)
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), t, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json|yaml)")
	return cmd
}

func writeTree(w io.Writer, t *engine.SkillTree, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.Payload())
	case "yaml", "yml":
		// Round-trip through JSON so keys match the wire names.
		raw, err := json.Marshal(t.Payload())
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		writeTreeText(w, t)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeTreeText(w io.Writer, t *engine.SkillTree) {
	fmt.Fprintln(w, ui.Heading(ui.IconTree, t.Title))
	fmt.Fprintf(w, "%s %s\n\n", ui.Percent(t.ProgressPercentage(), 20), ui.Muted.Render(fmt.Sprintf("%d/%d quests", t.CompletedNodes(), t.TotalNodes())))
	for _, b := range t.Branches {
		fmt.Fprintf(w, "%s %s\n", ui.H2.Render(b.Name), ui.Muted.Render(fmt.Sprintf("%.0f%%", t.BranchProgress(b))))
		for _, n := range t.BranchNodes(b) {
			fmt.Fprintf(w, "  %s %s %s %s\n",
				ui.StatusIcon(string(n.Status)),
				ui.Muted.Render(shortID(n.ID)),
				n.Title,
				ui.Muted.Render(fmt.Sprintf("T%d %d XP %s", n.Tier, n.XPValue, statList(n.LinkedStats))))
			if len(n.Prerequisites) > 0 {
				var pre []string
				for _, id := range n.Prerequisites {
					if p := t.Node(id); p != nil {
						pre = append(pre, p.Title)
					}
				}
				fmt.Fprintf(w, "      %s\n", ui.Muted.Render("needs "+strings.Join(pre, ", ")))
			}
		}
		fmt.Fprintln(w)
	}
}

func statList(stats []engine.Stat) string {
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = string(s)
	}
	return strings.Join(parts, "/")
}

func newTreeRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <tree|goal>",
		Short: "Regenerate a tree and merge it with your progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := resolveTree(svc, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), ui.Muted.Render("Refreshing… (ctrl+c cancels)"))
			o := <-svc.RefreshTreeAsync(ctx, id)
			switch {
			case o.Discarded:
				fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render("Refresh cancelled; the tree is unchanged."))
				return nil
			case o.Err != nil:
				return o.Err
			}
			res := o.Result
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d added, %d modified, %d removed\n",
				ui.Good.Render("Refreshed"), res.Tree.Title, res.NodesAdded, res.NodesModified, res.NodesRemoved)
			if len(res.Retained) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d completed quests kept in %q\n", ui.IconScroll, len(res.Retained), engine.LegacyBranchName)
			}
			if len(res.Unlocked) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d quests unlocked\n", ui.IconOpen, len(res.Unlocked))
			}
			return nil
		},
	}
}
