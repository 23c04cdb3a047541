package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aelpxy/searxops/internal/gitsync"
	"github.com/aelpxy/searxops/internal/runtime"
	"github.com/aelpxy/searxops/internal/stack"
	"github.com/aelpxy/searxops/internal/utils"
	"github.com/spf13/cobra"
)

var (
	deployForceRebuild bool
	deploySkipGit      bool
	deployBranch       string
	deployRemote       string
)

var deployCmd = &cobra.Command{
	Use:   "deploy [force_rebuild] [skip_git]",
	Short: "update from git, snapshot, pull and recreate the stack",
	Long: "Sync the stack directory with its git remote, take a pre-deploy snapshot,\n" +
		"pull fresh images, recreate the containers, wait for readiness, then prune\n" +
		"dangling images and old snapshots.\n\n" +
		"The positional arguments mirror --force-rebuild and --skip-git:\n" +
		"  searxops deploy true false",
	Args: cobra.MaximumNArgs(2),
	RunE: runDeploy,
}

func runDeploy(cmd *cobra.Command, args []string) error {
	opts := stack.DeployOptions{
		ForceRebuild: deployForceRebuild,
		SkipGit:      deploySkipGit,
		Branch:       deployBranch,
		Remote:       deployRemote,
	}
	positional := []*bool{&opts.ForceRebuild, &opts.SkipGit}
	for i, arg := range args {
		v, err := strconv.ParseBool(arg)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: expected true or false", arg, []string{"force_rebuild", "skip_git"}[i])
		}
		*positional[i] = v
	}

	reporter := newReporter()
	defer reporter.Close()

	op, client, err := newStack(reporter,
		stack.WithTools(runtime.NewToolChecker()),
		stack.WithGit(gitsync.NewSyncer(cfg.StackDir, cfg.BackupDir)),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Println(titleStyle.Render("==> deploying searxng"))
	fmt.Println()

	res, err := op.Deploy(cmd.Context(), opts)
	if err != nil {
		return err
	}

	env, err := cfg.StackEnv()
	if err != nil {
		reporter.Warn(err.Error())
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done]") + " deployment finished")
	fmt.Println()
	if host := env["SEARXNG_HOSTNAME"]; host != "" {
		printSummaryRow("url:", "https://"+host)
	}
	if res.Commit != nil {
		printSummaryRow("commit:", fmt.Sprintf("%s %s", res.Commit.ShortHash, res.Commit.Subject))
		printSummaryRow("author:", fmt.Sprintf("%s, %s", res.Commit.Author, res.Commit.When.Format("2006-01-02 15:04")))
	} else {
		printSummaryRow("commit:", "git sync skipped")
	}
	printSummaryRow("snapshot:", filepath.Base(res.Snapshot.Path))
	printSummaryRow("backup:", res.Snapshot.Path)
	if len(res.Rebuilt) > 0 {
		printSummaryRow("rebuilt:", strings.Join(res.Rebuilt, ", "))
	}
	printSummaryRow("images pruned:", fmt.Sprintf("%d (%s)", res.Reclaimed.ImagesDeleted, utils.FormatBytes(int64(res.Reclaimed.SpaceReclaimed))))
	if len(res.Removed) > 0 {
		printSummaryRow("old snapshots removed:", strings.Join(res.Removed, ", "))
	}
	printSummaryRow("duration:", res.Duration.Round(time.Second).String())
	printSummaryRow("run id:", res.RunID)
	return nil
}

func init() {
	deployCmd.Flags().BoolVar(&deployForceRebuild, "force-rebuild", false, "rebuild images without cache and force-recreate containers")
	deployCmd.Flags().BoolVar(&deploySkipGit, "skip-git", false, "do not sync with the git remote")
	deployCmd.Flags().StringVar(&deployBranch, "branch", "", "branch to deploy (default from config)")
	deployCmd.Flags().StringVar(&deployRemote, "remote", "", "git remote to pull from (default from config)")
	rootCmd.AddCommand(deployCmd)
}
