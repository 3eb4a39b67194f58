package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/dashboard"
)

func newDashboardCommand(a *app) *cobra.Command {
	var days int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize active subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			user, err := a.userID()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = a.cfg.Dashboard.UpcomingDays
			}

			sum, err := dashboard.NewService(a.db, days).Summary(ctx, user)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = dashboard.DefaultUpcomingDays
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, newDashboardView(sum))
			}
			return printDashboard(out, sum, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "upcoming window in days (default: dashboard.upcoming_days)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func printDashboard(w io.Writer, sum dashboard.Summary, days int) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Active subscriptions:\t%d\n", sum.ActiveCount)
	fmt.Fprintf(tw, "Monthly total:\t%s\n", sum.MonthlyTotal.StringFixed(2))
	fmt.Fprintf(tw, "Annual total:\t%s\n", sum.AnnualTotal.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nUpcoming (next %d days):\n", days)
	if len(sum.Upcoming) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		tw = newTable(w)
		for _, u := range sum.Upcoming {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", formatDay(u.DueDate), u.Name, u.Amount.StringFixed(2), u.Cadence)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nTop subscriptions:")
	if len(sum.Top) == 0 {
		_, err := fmt.Fprintln(w, "  none")
		return err
	}
	tw = newTable(w)
	for i, s := range sum.Top {
		fmt.Fprintf(tw, "  %d.\t%s\t%s\t%s\n", i+1, s.Name, s.Amount.StringFixed(2), s.Cadence)
	}
	return tw.Flush()
}
