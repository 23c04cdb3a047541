package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/aelpxy/searxops/internal/config"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage searxops configuration",
	Long:  "inspect and initialize the searxops TOML configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "write a config file with the default settings",
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigFile
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		manager := config.NewDefaultManager(path)
		if err := manager.Save(); err != nil {
			return err
		}

		fmt.Println(successStyle.Render("  [done]") + " wrote " + path)
		fmt.Println(dimStyle.Render("  edit stack_dir, volumes and health settings to match your host"))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the effective configuration",
	Long:  "print the configuration after applying the file, environment and flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(titleStyle.Render("==> effective configuration"))
		fmt.Println()
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
