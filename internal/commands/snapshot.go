package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/activity"
	"github.com/cleared-dev/subscan/internal/export"
	"github.com/cleared-dev/subscan/internal/gitops"
	"github.com/cleared-dev/subscan/internal/review"
)

const exportsDir = "exports"

func newSnapshotCommand(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write candidates and subscriptions to exports/ and commit them",
		Long: "Write candidates and subscriptions to <repo>/exports/<user>/. When git.enabled is\n" +
			"set in subscan.yaml the files are committed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			return runSnapshot(cmd.Context(), cmd.OutOrStdout(), a, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")

	return cmd
}

func runSnapshot(ctx context.Context, out io.Writer, a *app, message string) error {
	user, err := a.userID()
	if err != nil {
		return err
	}
	if user == "." || user == ".." || filepath.Base(user) != user {
		return fmt.Errorf("user %q cannot be used as a directory name", user)
	}

	svc := review.NewService(a.db)
	cands, err := svc.Candidates(ctx, user, "")
	if err != nil {
		return err
	}
	subs, err := svc.Subscriptions(ctx, user, "")
	if err != nil {
		return err
	}

	dir := filepath.Join(a.root, exportsDir, user)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating exports dir: %w", err)
	}
	err = writeTo(nil, filepath.Join(dir, "candidates.csv"), func(w io.Writer) error {
		return export.WriteCandidates(w, cands)
	})
	if err != nil {
		return err
	}
	err = writeTo(nil, filepath.Join(dir, "subscriptions.csv"), func(w io.Writer) error {
		return export.WriteSubscriptions(w, subs)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d candidates and %d subscriptions to %s\n", len(cands), len(subs), dir)

	entry := activity.Entry{
		User:    user,
		Action:  activity.ActionSnapshot,
		Details: fmt.Sprintf("%d candidates, %d subscriptions", len(cands), len(subs)),
	}
	if a.cfg.Git.Enabled && gitops.IsRepo(a.root) {
		if message == "" {
			message = fmt.Sprintf("snapshot: %s %s", user, time.Now().Format(dateFormat))
		}
		author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
		rel := filepath.Join(exportsDir, user)
		hash, err := gitops.Commit(ctx, a.root, message, author, rel)
		if err != nil {
			return err
		}
		if hash == "" {
			fmt.Fprintln(out, "Nothing changed since the last snapshot")
		} else {
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
		entry.Commit = hash
	}

	a.record(ctx, entry)
	return nil
}
