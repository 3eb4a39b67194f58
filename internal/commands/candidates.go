package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/activity"
	"github.com/cleared-dev/subscan/internal/export"
	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/review"
)

func newCandidatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Review detected recurring charges",
	}
	cmd.AddCommand(
		newCandidatesListCommand(a),
		newCandidateActionCommand(a, "confirm", "Confirm a candidate as an active subscription"),
		newCandidateActionCommand(a, "ignore", "Ignore a pending candidate"),
		newCandidateActionCommand(a, "delete", "Delete a candidate"),
		newCandidatesEditCommand(a),
		newCandidatesExportCommand(a),
	)
	return cmd
}

func parseCandidateStatus(s string) (model.CandidateStatus, error) {
	switch st := model.CandidateStatus(strings.ToLower(s)); st {
	case "", "all":
		return "", nil
	case model.CandidatePending, model.CandidateConfirmed, model.CandidateIgnored:
		return st, nil
	}
	return "", fmt.Errorf("unknown candidate status %q", s)
}

// candidateLister resolves the user and status shared by list and export.
func candidateLister(cmd *cobra.Command, a *app, status string) ([]model.Candidate, error) {
	st, err := parseCandidateStatus(status)
	if err != nil {
		return nil, err
	}
	if err := a.open(cmd.Context()); err != nil {
		return nil, err
	}
	user, err := a.userID()
	if err != nil {
		return nil, err
	}
	return review.NewService(a.db).Candidates(cmd.Context(), user, st)
}

func newCandidatesListCommand(a *app) *cobra.Command {
	var status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates, highest confidence first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cands, err := candidateLister(cmd, a, status)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				views := make([]candidateView, 0, len(cands))
				for _, c := range cands {
					views = append(views, newCandidateView(c))
				}
				return writeJSON(out, views)
			}
			return printCandidates(out, cands)
		},
	}

	cmd.Flags().StringVar(&status, "status", string(model.CandidatePending), "pending, confirmed, ignored or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func printCandidates(w io.Writer, cands []model.Candidate) error {
	if len(cands) == 0 {
		_, err := fmt.Fprintln(w, "No candidates.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMERCHANT\tAMOUNT\tCADENCE\tCONFIDENCE\tLAST SEEN\tNEXT\tSTATUS")
	for _, c := range cands {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.DisplayName, c.AvgAmount.StringFixed(2), c.CadenceGuess,
			strconv.FormatFloat(c.Confidence, 'f', 2, 64),
			formatDay(c.LastSeen), formatDay(c.NextPredicted), c.Status)
	}
	return tw.Flush()
}

func newCandidateActionCommand(a *app, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			user, err := a.userID()
			if err != nil {
				return err
			}

			svc := review.NewService(a.db)
			out := cmd.OutOrStdout()
			entry := activity.Entry{User: user, Target: fmt.Sprintf("candidate:%d", id)}

			switch action {
			case "confirm":
				sub, err := svc.Confirm(ctx, user, id)
				if err != nil {
					return err
				}
				entry.Action = activity.ActionConfirm
				entry.Details = fmt.Sprintf("subscription:%d %s", sub.ID, sub.Name)
				fmt.Fprintf(out, "Confirmed candidate %d as subscription %d (%s, %s %s)\n",
					id, sub.ID, sub.Name, sub.Amount.StringFixed(2), sub.Cadence)
			case "ignore":
				if err := svc.Ignore(ctx, user, id); err != nil {
					return err
				}
				entry.Action = activity.ActionIgnore
				fmt.Fprintf(out, "Ignored candidate %d\n", id)
			case "delete":
				if err := svc.DeleteCandidate(ctx, user, id); err != nil {
					return err
				}
				entry.Action = activity.ActionDelete
				fmt.Fprintf(out, "Deleted candidate %d\n", id)
			}

			a.record(ctx, entry)
			return nil
		},
	}
}

func newCandidatesExportCommand(a *app) *cobra.Command {
	var status string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write candidates as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cands, err := candidateLister(cmd, a, status)
			if err != nil {
				return err
			}
			return writeTo(cmd.OutOrStdout(), outPath, func(w io.Writer) error {
				return export.WriteCandidates(w, cands)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "pending, confirmed, ignored or all")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

// writeTo runs write against path, or stdout when path is empty.
func writeTo(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
