package cmd

import (
	"context"
	"fmt"

	"github.com/aelpxy/searxops/internal/docker"
	"github.com/aelpxy/searxops/internal/health"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/spf13/cobra"
)

var healthCI bool

var healthCmd = &cobra.Command{
	Use:     "health-check [quick|full|help]",
	Aliases: []string{"doctor", "health"},
	Short:   "check the health of the searxng stack",
	Long: "Run the stack diagnostics.\n\n" +
		"  quick  docker daemon and containers only\n" +
		"  full   daemon, containers, volumes, connectivity, disk, memory, logs (default)\n\n" +
		"Exit status: 0 healthy, 1 warnings (0 with --ci or CI_MODE=true), 2 critical.\n" +
		"Quick mode exits 0 when both checks pass and 1 otherwise.",
	ValidArgs: []string{health.ModeQuick, health.ModeFull, "help"},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE:      runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	mode := health.ModeFull
	if len(args) > 0 {
		mode = args[0]
	}
	if mode == "help" {
		return cmd.Help()
	}
	if healthCI {
		cfg.Health.CIMode = true
	}

	var rt health.Runtime
	client, err := docker.NewClient(cfg.HelperImage)
	if err != nil {
		rt = unavailableRuntime{err: err}
	} else {
		defer client.Close()
		rt = client
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> checking stack health (%s)", mode)))
	fmt.Println()

	report, err := health.NewChecker(cfg, rt).Run(cmd.Context(), mode)
	if err != nil {
		return err
	}

	for _, check := range report.Checks {
		printCheck(check)
	}
	printVerdict(report)

	if code := report.ExitCode(); code != models.ExitHealthy {
		return &ExitError{Code: code}
	}
	return nil
}

func printCheck(check models.HealthCheck) {
	var marker string
	switch check.Status {
	case models.HealthOK:
		marker = successStyle.Render("[✓]")
	case models.HealthWarn:
		marker = warnStyle.Render("[!]")
	default:
		marker = errorStyle.Render("[✗]")
	}

	fmt.Printf("  %s %s %s\n", marker, labelStyle.Render(check.Name), dimStyle.Render("("+string(check.Severity)+")"))
	if verbose || !check.Passed() {
		for _, d := range check.Details {
			fmt.Printf("      %s\n", dimStyle.Render(d))
		}
	}
}

func printVerdict(report *models.HealthReport) {
	fmt.Println()
	fmt.Printf("  %s %s\n", dimStyle.Render("passed:"), valueStyle.Render(fmt.Sprintf("%d/%d", report.Passed(), report.Total)))

	switch {
	case report.Critical > 0:
		fmt.Println(errorStyle.Render(fmt.Sprintf("  [error] %d critical failure(s), %d warning(s)", report.Critical, report.Warnings)))
	case report.Warnings > 0 && report.CIMode:
		fmt.Println(warnStyle.Render(fmt.Sprintf("  [!] %d warning(s), tolerated in ci mode", report.Warnings)))
	case report.Warnings > 0:
		fmt.Println(warnStyle.Render(fmt.Sprintf("  [!] %d warning(s)", report.Warnings)))
	default:
		fmt.Println(successStyle.Render("  [done] all checks passed"))
	}
	fmt.Println()
}

// unavailableRuntime lets the checks run and report when no docker client
// could be created at all.
type unavailableRuntime struct {
	err error
}

func (u unavailableRuntime) Ping(context.Context) error { return u.err }

func (u unavailableRuntime) ListContainers(context.Context) ([]models.ContainerSummary, error) {
	return nil, u.err
}

func (u unavailableRuntime) VolumeExists(context.Context, string) (bool, error) {
	return false, u.err
}

func (u unavailableRuntime) ContainerLogs(context.Context, string, int) ([]string, error) {
	return nil, u.err
}

func (u unavailableRuntime) Exec(context.Context, string, []string) (string, int, error) {
	return "", -1, u.err
}

func init() {
	healthCmd.Flags().BoolVar(&healthCI, "ci", false, "treat warnings as non-fatal")
	rootCmd.AddCommand(healthCmd)
}
