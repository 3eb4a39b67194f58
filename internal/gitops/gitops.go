// Package gitops versions workspace snapshots with the git CLI.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Author identifies who snapshot commits are attributed to.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if out, err := git(ctx, dir, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Commit stages paths (relative to dir, all of the worktree when none are
// given) and commits them. It returns the
// short hash of the new commit, or "" when the staged paths match HEAD.
func Commit(ctx context.Context, dir, message string, author Author, paths ...string) (string, error) {
	args := []string{"add", "-A"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	if out, err := git(ctx, dir, args...); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	// exit status 1 means there are staged changes
	_, err := git(ctx, dir, "diff", "--cached", "--quiet")
	if err == nil {
		return "", nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return "", fmt.Errorf("git diff: %w", err)
	}

	if out, err := git(ctx, dir, "commit", "--quiet", "-m", message, "--author", author.String()); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	out, err := git(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	// commits need a committer identity even when the machine has none
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME=subscan",
		"GIT_COMMITTER_EMAIL=subscan@localhost",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
