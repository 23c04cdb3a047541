package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/aelpxy/searxops/internal/stack"
	"github.com/aelpxy/searxops/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	restoreList bool
	restoreYes  bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "restore volumes and configuration from a snapshot",
	Long: "Stop the stack, copy the snapshot's configuration over the live files,\n" +
		"recreate each archived volume from its tarball, then start the stack and\n" +
		"wait for it to become ready. Use --list to show available snapshots.",
	Args: func(cmd *cobra.Command, args []string) error {
		if restoreList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	if restoreList {
		return listSnapshots(snapshot.NewStore(cfg.BackupDir))
	}
	name := args[0]

	reporter := newReporter()
	defer reporter.Close()

	op, client, err := newStack(reporter)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> restoring snapshot: %s", name)))
	fmt.Println()

	res, err := op.Restore(cmd.Context(), name, newConfirmer(restoreYes))
	if errors.Is(err, stack.ErrAborted) {
		fmt.Println()
		fmt.Println(dimStyle.Render("  restore cancelled, nothing was changed"))
		return nil
	}
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotNotFound) {
			fmt.Println(dimStyle.Render("  list snapshots with: searxops restore --list"))
		}
		return err
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done]") + " snapshot restored")
	fmt.Println()
	printSummaryRow("snapshot:", res.Snapshot.Name)
	printSummaryRow("volumes:", strings.Join(res.Volumes, ", "))
	printSummaryRow("config:", strings.Join(res.ConfigFiles, ", "))
	printSummaryRow("duration:", res.Duration.Round(time.Second).String())
	return nil
}

func listSnapshots(store *snapshot.Store) error {
	snaps, err := store.List()
	if err != nil {
		return err
	}

	if len(snaps) == 0 {
		fmt.Println(dimStyle.Render("no snapshots found in " + store.Root()))
		fmt.Println()
		fmt.Println(dimStyle.Render("create one with: searxops backup [name]"))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> snapshots (%d)", len(snaps))))
	fmt.Println()

	rows := [][]string{}
	var totalSize int64
	for _, s := range snaps {
		totalSize += s.SizeBytes
		volumes := strings.Join(s.Volumes, ", ")
		if volumes == "" {
			volumes = "-"
		}
		rows = append(rows, []string{
			s.Name,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			utils.FormatBytes(s.SizeBytes),
			volumes,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Foreground(lipgloss.Color("86")).
					Bold(true).
					Align(lipgloss.Center)
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}).
		Headers("name", "created", "size", "volumes").
		Rows(rows...)

	fmt.Println(t)
	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("  total: %s in %s", utils.FormatBytes(totalSize), store.Root())))
	fmt.Println()
	fmt.Println(dimStyle.Render("  restore with: searxops restore <name>"))
	return nil
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreList, "list", false, "list available snapshots")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(restoreCmd)
}
