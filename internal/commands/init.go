package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/config"
	"github.com/cleared-dev/subscan/internal/gitops"
	"github.com/cleared-dev/subscan/internal/store"
)

func newInitCommand(a *app) *cobra.Command {
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new subscan workspace",
		Long:  "Initialize a new subscan workspace. --user, when given, becomes the default user.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, a.user, useGit)
		},
	}

	cmd.Flags().BoolVar(&useGit, "git", false, "track exports/ snapshots in a git repository")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, user string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"exports",
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(user)
	cfg.Git.Enabled = useGit
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	// The database and raw bank exports stay out of version control.
	gitignore := "subscan.db\nsubscan.db-*\n.env\nimport/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "exports", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	db, err := store.Open(cfg.DBPath(dir))
	if err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}

	if useGit {
		if err := gitops.Init(ctx, dir); err != nil {
			return err
		}
		author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
		hash, err := gitops.Commit(ctx, dir, "init: Initialize subscan workspace", author)
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		fmt.Fprintf(out, "Initialized subscan workspace at %s (%s)\n", dir, hash)
		return nil
	}

	fmt.Fprintf(out, "Initialized subscan workspace at %s\n", dir)
	return nil
}
