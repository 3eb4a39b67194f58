package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/subscan/internal/activity"
	"github.com/cleared-dev/subscan/internal/importer"
	"github.com/cleared-dev/subscan/internal/ingest"
	"github.com/cleared-dev/subscan/internal/logger"
)

func newImportCommand(a *app) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank CSV exports and detect recurring charges",
		Long: "Import bank CSV exports and detect recurring charges. Without arguments,\n" +
			"every CSV in <repo>/import/ is imported and moved to import/processed/.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), a, args, workers)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 2, "files parsed concurrently; database writes still run one at a time")

	return cmd
}

type importJob struct {
	name    string
	path    string
	fromDir bool
}

func runImport(ctx context.Context, out io.Writer, a *app, paths []string, workers int) error {
	user, err := a.userID()
	if err != nil {
		return err
	}

	var jobs []importJob
	if len(paths) > 0 {
		for _, p := range paths {
			jobs = append(jobs, importJob{name: filepath.Base(p), path: p})
		}
	} else {
		files, err := importer.Scan(a.root)
		if err != nil {
			return err
		}
		for _, f := range files {
			jobs = append(jobs, importJob{name: f.Name, path: f.Path, fromDir: true})
		}
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No CSV files to import.")
		return nil
	}

	log := logger.FromContext(ctx)
	svc := ingest.NewService(a.db, nil)
	results := make([]*ingest.Summary, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			data, err := os.ReadFile(job.path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", job.name, err)
			}
			sum, err := svc.Import(gctx, user, job.name, data)
			if errors.Is(err, ingest.ErrEmptyPayload) {
				log.Warn().Str("file", job.name).Msg("skipping empty file")
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = &sum

			if job.fromDir && a.cfg.Import.MoveProcessed {
				return importer.MarkProcessed(a.root, job.name)
			}
			return nil
		})
	}
	err = g.Wait()

	for _, sum := range results {
		if sum == nil {
			continue
		}
		fmt.Fprintf(out, "%s: %d rows added, %d skipped, %d candidates created, %d updated\n",
			sum.Filename, sum.RowsAdded, sum.RowsSkipped, sum.CandidatesCreated, sum.CandidatesUpdated)
		for _, re := range sum.RowErrors {
			fmt.Fprintf(out, "  skipped %s\n", re.Error())
		}
		a.record(ctx, activity.Entry{
			User:   user,
			Action: activity.ActionImport,
			Target: sum.BatchID,
			Details: fmt.Sprintf("%s: %d added, %d skipped, %d created, %d updated",
				sum.Filename, sum.RowsAdded, sum.RowsSkipped, sum.CandidatesCreated, sum.CandidatesUpdated),
		})
	}
	return err
}
