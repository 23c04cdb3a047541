// Package gitsync brings the stack work tree up to date with its remote.
//
// Inspection and checkout go through go-git; stash and rebase-pull shell out
// to git because go-git implements neither.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aelpxy/searxops/internal/logging"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var ErrNotRepository = errors.New("not a git repository")

// CommandRunner runs git with args in dir and returns combined output.
type CommandRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

func gitRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

type Syncer struct {
	dir     string
	exclude []string
	run     CommandRunner
	now     func() time.Time
}

// NewSyncer returns a syncer for the work tree containing dir. Paths in
// exclude (absolute, or relative to dir) are ignored when deciding whether the
// tree is dirty and are never stashed.
func NewSyncer(dir string, exclude ...string) *Syncer {
	return &Syncer{
		dir:     dir,
		exclude: exclude,
		run:     gitRunner,
		now:     time.Now,
	}
}

func (s *Syncer) WithRunner(run CommandRunner) *Syncer {
	s.run = run
	return s
}

func (s *Syncer) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(s.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, s.dir)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// Sync stashes local changes, switches to branch and rebases onto
// remote/branch, then reports the resulting HEAD.
func (s *Syncer) Sync(ctx context.Context, branch, remote, runID string) (*models.GitCommit, error) {
	log := logging.Component("git")

	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	root, err := workTreeRoot(repo)
	if err != nil {
		return nil, err
	}

	excludes := s.relExcludes(root)
	dirty, err := dirtyTree(repo, excludes)
	if err != nil {
		return nil, err
	}
	if dirty {
		msg := fmt.Sprintf("searxops auto-stash %s %s", runID, s.now().UTC().Format(time.RFC3339))
		args := []string{"stash", "push", "-u", "-m", msg, "--", "."}
		for _, ex := range excludes {
			args = append(args, ":(exclude)"+ex)
		}
		if err := s.git(ctx, root, args...); err != nil {
			return nil, err
		}
		log.Warn().Str("message", msg).Msg("local changes stashed")
	}

	current, err := CurrentBranch(repo)
	if err != nil {
		return nil, err
	}
	if current != branch {
		if err := checkout(repo, branch, remote); err != nil {
			return nil, err
		}
		log.Info().Str("from", current).Str("to", branch).Msg("switched branch")
	}

	if err := s.git(ctx, root, "pull", "--rebase", "--autostash", remote, branch); err != nil {
		return nil, err
	}

	// pull rewrote refs behind go-git's back
	repo, err = s.open()
	if err != nil {
		return nil, err
	}
	commit, err := HeadCommit(repo)
	if err != nil {
		return nil, err
	}
	log.Info().Str("commit", commit.ShortHash).Str("branch", branch).Msg("work tree synced")
	return commit, nil
}

func (s *Syncer) git(ctx context.Context, dir string, args ...string) error {
	out, err := s.run(ctx, dir, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		return fmt.Errorf("git %s failed: %w: %s", args[0], err, msg)
	}
	return nil
}

// Dirty reports uncommitted or untracked changes outside excluded paths.
func (s *Syncer) Dirty() (bool, error) {
	repo, err := s.open()
	if err != nil {
		return false, err
	}
	root, err := workTreeRoot(repo)
	if err != nil {
		return false, err
	}
	return dirtyTree(repo, s.relExcludes(root))
}

func dirtyTree(repo *git.Repository, excludes []string) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open work tree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read status: %w", err)
	}

	for path, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		if excluded(path, excludes) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// relExcludes maps exclude paths to slash-separated paths relative to root,
// dropping any that fall outside the work tree.
func (s *Syncer) relExcludes(root string) []string {
	var out []string
	for _, ex := range s.exclude {
		abs := ex
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(s.dir, ex)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func excluded(path string, excludes []string) bool {
	path = filepath.ToSlash(path)
	for _, ex := range excludes {
		if path == ex || strings.HasPrefix(path, ex+"/") {
			return true
		}
	}
	return false
}

func workTreeRoot(repo *git.Repository) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open work tree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// CurrentBranch returns the checked-out branch, or "" on a detached HEAD.
func CurrentBranch(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// checkout switches to branch, creating it from remote/branch when no local
// branch exists yet.
func checkout(repo *git.Repository, branch, remote string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open work tree: %w", err)
	}

	local := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(local, true); err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local}); err != nil {
			return fmt.Errorf("failed to checkout %s: %w", branch, err)
		}
		return nil
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return fmt.Errorf("branch %s not found locally or on %s: %w", branch, remote, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: local, Hash: remoteRef.Hash(), Create: true}); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return nil
}

func HeadCommit(repo *git.Repository) (*models.GitCommit, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	c, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", head.Hash(), err)
	}

	hash := c.Hash.String()
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	branch := ""
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	return &models.GitCommit{
		Hash:      hash,
		ShortHash: hash[:7],
		Subject:   subject,
		Author:    c.Author.Name,
		When:      c.Author.When,
		Branch:    branch,
	}, nil
}

// Head opens the work tree and reports its HEAD commit.
func (s *Syncer) Head() (*models.GitCommit, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	return HeadCommit(repo)
}
