package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/activity"
	"github.com/cleared-dev/subscan/internal/export"
	"github.com/cleared-dev/subscan/internal/importer"
	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/review"
)

func newSubscriptionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage confirmed subscriptions",
	}
	cmd.AddCommand(
		newSubscriptionsListCommand(a),
		newSubscriptionsAddCommand(a),
		newSubscriptionActionCommand(a, "cancel", "Mark a subscription canceled"),
		newSubscriptionActionCommand(a, "reactivate", "Mark a canceled subscription active"),
		newSubscriptionActionCommand(a, "delete", "Delete a subscription"),
		newSubscriptionsEditCommand(a),
		newSubscriptionsExportCommand(a),
		newSubscriptionsImportCommand(a),
	)
	return cmd
}

func parseSubscriptionStatus(s string) (model.SubscriptionStatus, error) {
	switch st := model.SubscriptionStatus(strings.ToLower(s)); st {
	case "", "all":
		return "", nil
	case model.SubscriptionActive, model.SubscriptionCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown subscription status %q", s)
}

func subscriptionLister(cmd *cobra.Command, a *app, status string) ([]model.Subscription, error) {
	st, err := parseSubscriptionStatus(status)
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
	return review.NewService(a.db).Subscriptions(cmd.Context(), user, st)
}

func newSubscriptionsListCommand(a *app) *cobra.Command {
	var status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := subscriptionLister(cmd, a, status)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				views := make([]subscriptionView, 0, len(subs))
				for _, s := range subs {
					views = append(views, newSubscriptionView(s))
				}
				return writeJSON(out, views)
			}
			return printSubscriptions(out, subs)
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "active, canceled or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func printSubscriptions(w io.Writer, subs []model.Subscription) error {
	if len(subs) == 0 {
		_, err := fmt.Fprintln(w, "No subscriptions.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tAMOUNT\tCADENCE\tNEXT DUE\tCATEGORY\tSTATUS")
	for _, s := range subs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Amount.StringFixed(2), s.Cadence,
			formatDay(s.NextDueDate), s.Category, s.Status)
	}
	return tw.Flush()
}

func newSubscriptionsAddCommand(a *app) *cobra.Command {
	var name, amount, cadence, nextDue, category, notes string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a subscription by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return fmt.Errorf("invalid amount %q", amount)
			}
			due, err := importer.ParseDate(nextDue)
			if err != nil {
				return fmt.Errorf("invalid --next-due: %w", err)
			}

			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			user, err := a.userID()
			if err != nil {
				return err
			}

			sub, err := review.NewService(a.db).AddSubscription(ctx, user, review.AddParams{
				Name:        name,
				Amount:      amt,
				Cadence:     model.Cadence(cadence),
				NextDueDate: due,
				Category:    category,
				Notes:       notes,
			})
			if err != nil {
				return err
			}

			a.record(ctx, activity.Entry{
				User:    user,
				Action:  activity.ActionAdd,
				Target:  fmt.Sprintf("subscription:%d", sub.ID),
				Details: sub.Name,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Added subscription %d (%s, %s %s)\n",
				sub.ID, sub.Name, sub.Amount.StringFixed(2), sub.Cadence)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "subscription name (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount per charge (required)")
	cmd.Flags().StringVar(&cadence, "cadence", string(model.CadenceMonthly), "weekly, monthly, quarterly or yearly")
	cmd.Flags().StringVar(&nextDue, "next-due", "", "next due date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("next-due")

	return cmd
}

func newSubscriptionActionCommand(a *app, action, short string) *cobra.Command {
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
			entry := activity.Entry{User: user, Target: fmt.Sprintf("subscription:%d", id)}
			var verb string
			switch action {
			case "cancel":
				entry.Action, verb = activity.ActionCancel, "Canceled"
				err = svc.Cancel(ctx, user, id)
			case "reactivate":
				entry.Action, verb = activity.ActionReactivate, "Reactivated"
				err = svc.Reactivate(ctx, user, id)
			case "delete":
				entry.Action, verb = activity.ActionDelete, "Deleted"
				err = svc.DeleteSubscription(ctx, user, id)
			}
			if err != nil {
				return err
			}

			a.record(ctx, entry)
			fmt.Fprintf(cmd.OutOrStdout(), "%s subscription %d\n", verb, id)
			return nil
		},
	}
}

func newSubscriptionsExportCommand(a *app) *cobra.Command {
	var status string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write subscriptions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := subscriptionLister(cmd, a, status)
			if err != nil {
				return err
			}
			return writeTo(cmd.OutOrStdout(), outPath, func(w io.Writer) error {
				return export.WriteSubscriptions(w, subs)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "active, canceled or all")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func newSubscriptionsImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore subscriptions from a CSV written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			subs, err := export.ReadSubscriptions(f)
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

			n, err := review.NewService(a.db).Restore(ctx, user, subs)
			if err != nil {
				return err
			}

			a.record(ctx, activity.Entry{
				User:    user,
				Action:  activity.ActionRestore,
				Details: fmt.Sprintf("%d subscriptions from %s", n, args[0]),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d subscriptions\n", n)
			return nil
		},
	}
}
