package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/activity"
)

func newLogCommand(a *app) *cobra.Command {
	var limit int
	var everyone bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent activity, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			user := ""
			if !everyone {
				u, err := a.userID()
				if err != nil {
					return err
				}
				user = u
			}

			entries, err := activity.Read(a.root)
			if err != nil {
				return err
			}
			recent := activity.Recent(entries, user, limit)

			out := cmd.OutOrStdout()
			if len(recent) == 0 {
				_, err := fmt.Fprintln(out, "No activity.")
				return err
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "TIME\tUSER\tACTION\tTARGET\tDETAILS\tCOMMIT")
			for _, e := range recent {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Time.Local().Format("2006-01-02 15:04"), e.User, e.Action, e.Target, e.Details, e.Commit)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "entries to show, 0 for all")
	cmd.Flags().BoolVar(&everyone, "all-users", false, "show every user's activity")

	return cmd
}
