package root

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"levelup/internal/config"
	"levelup/internal/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render("Wrote"), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(configDoc(cfg)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// configDoc mirrors the file layout with the API key masked.
func configDoc(cfg *config.Config) map[string]any {
	key := cfg.OpenAI.APIKey
	if len(key) > 4 {
		key = "…" + key[len(key)-4:]
	}
	return map[string]any{
		"db_path":  cfg.DBPath,
		"timezone": cfg.Timezone,
		"backend": map[string]any{
			"kind":    cfg.Backend.Kind,
			"url":     cfg.Backend.URL,
			"timeout": cfg.Backend.Timeout.String(),
		},
		"openai": map[string]any{
			"api_key":  key,
			"model":    cfg.OpenAI.Model,
			"base_url": cfg.OpenAI.BaseURL,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"file":  cfg.Log.File,
		},
		"server": map[string]any{
			"addr": cfg.Server.Addr,
			"mode": cfg.Server.Mode,
		},
	}
}
