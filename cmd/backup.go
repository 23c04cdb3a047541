package cmd

import (
	"fmt"
	"strings"

	"github.com/aelpxy/searxops/internal/utils"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup [name]",
	Short: "snapshot volumes and configuration",
	Long: "Create a snapshot under the backup directory holding an archive of each\n" +
		"configured volume, copies of the compose file, Caddyfile, .env and searxng\n" +
		"settings, plus backup-info.txt. The name defaults to a timestamp.",
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reporter := newReporter()
	defer reporter.Close()

	op, client, err := newStack(reporter)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Println(titleStyle.Render("==> creating snapshot"))
	fmt.Println()

	res, err := op.Backup(cmd.Context(), name)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done]") + " snapshot created")
	fmt.Println()
	printSummaryRow("name:", res.Snapshot.Name)
	printSummaryRow("path:", res.Snapshot.Path)
	printSummaryRow("size:", utils.FormatBytes(res.Snapshot.SizeBytes))
	printSummaryRow("volumes:", strings.Join(res.Snapshot.Volumes, ", "))
	if len(res.SkippedVolumes) > 0 {
		printSummaryRow("skipped:", strings.Join(res.SkippedVolumes, ", "))
	}
	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("  restore with: searxops restore %s", res.Snapshot.Name)))
	return nil
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
