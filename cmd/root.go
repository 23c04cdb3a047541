package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aelpxy/searxops/internal/config"
	"github.com/aelpxy/searxops/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

var (
	configPath string
	stackDir   string
	backupDir  string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg *config.Config
)

// skipConfigAnnotation marks commands that must run without a loaded config.
const skipConfigAnnotation = "searxops/skip-config"

var rootCmd = &cobra.Command{
	Use:   "searxops",
	Short: "deploy, back up, restore and health-check a searxng stack",
	Long: titleStyle.Render("searxops") + "\n" + subtitleStyle.Render("operations for a docker compose searxng stack") + "\n\n" +
		"Snapshots volumes and config, restores them, redeploys from git\nand checks the health of searxng, redis/valkey and caddy.",
	Version:           "dev",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// ExitError carries a process exit code out of a command. A nil Err means the
// command already reported its outcome.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
	rootCmd.Version = fmt.Sprintf("%s (built: %s, commit: %s)", version, buildTime, gitCommit)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			printError(exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}

	printError(err)
	os.Exit(1)
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	manager, err := config.NewConfigManager(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := manager.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	c := manager.GetConfig()
	if stackDir != "" {
		c.StackDir = stackDir
	}
	if backupDir != "" {
		c.BackupDir = backupDir
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if verbose && logLevel == "" {
		c.Log.Level = "debug"
	}

	if err := c.Resolve(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", manager.Path(), err)
	}

	logging.Init(logging.Config{Level: c.Log.Level, Format: c.Log.Format})
	logging.Component("config").Debug().
		Str("stack_dir", c.StackDir).
		Str("backup_dir", c.BackupDir).
		Bool("ci_mode", c.Health.CIMode).
		Msg("configuration loaded")

	cfg = c
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./searxops.toml)")
	flags.StringVar(&stackDir, "stack-dir", "", "directory holding docker-compose.yaml")
	flags.StringVar(&backupDir, "backup-dir", "", "snapshot root (relative to the stack dir)")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: console or json")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
