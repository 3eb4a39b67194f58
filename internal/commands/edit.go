package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/activity"
	"github.com/cleared-dev/subscan/internal/importer"
	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/review"
)

var errNothingToEdit = errors.New("nothing to change: pass at least one field flag")

// stringFlag returns a pointer to v when the flag was given on the command line.
func stringFlag(cmd *cobra.Command, name, v string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func amountFlag(cmd *cobra.Command, v string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed("amount") {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	return &d, nil
}

func cadenceFlag(cmd *cobra.Command, v string) *model.Cadence {
	if !cmd.Flags().Changed("cadence") {
		return nil
	}
	c := model.Cadence(v)
	return &c
}

func newCandidatesEditCommand(a *app) *cobra.Command {
	var name, amount, cadence string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a candidate's name, amount or cadence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			edit := review.CandidateEdit{
				DisplayName: stringFlag(cmd, "name", name),
				Cadence:     cadenceFlag(cmd, cadence),
			}
			if edit.AvgAmount, err = amountFlag(cmd, amount); err != nil {
				return err
			}
			if edit == (review.CandidateEdit{}) {
				return errNothingToEdit
			}

			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			user, err := a.userID()
			if err != nil {
				return err
			}

			c, err := review.NewService(a.db).EditCandidate(ctx, user, id, edit)
			if err != nil {
				return err
			}

			a.record(ctx, activity.Entry{
				User:    user,
				Action:  activity.ActionEdit,
				Target:  fmt.Sprintf("candidate:%d", id),
				Details: fmt.Sprintf("%s %s %s", c.DisplayName, c.AvgAmount.StringFixed(2), c.CadenceGuess),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Updated candidate %d (%s, %s %s)\n",
				c.ID, c.DisplayName, c.AvgAmount.StringFixed(2), c.CadenceGuess)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name; also changes the merchant key")
	cmd.Flags().StringVar(&amount, "amount", "", "average amount per charge")
	cmd.Flags().StringVar(&cadence, "cadence", "", "weekly, monthly, quarterly or yearly")

	return cmd
}

func newSubscriptionsEditCommand(a *app) *cobra.Command {
	var name, amount, cadence, nextDue, category, notes string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a subscription's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			edit := review.SubscriptionEdit{
				Name:     stringFlag(cmd, "name", name),
				Cadence:  cadenceFlag(cmd, cadence),
				Category: stringFlag(cmd, "category", category),
				Notes:    stringFlag(cmd, "notes", notes),
			}
			if edit.Amount, err = amountFlag(cmd, amount); err != nil {
				return err
			}
			if cmd.Flags().Changed("next-due") {
				due, err := importer.ParseDate(nextDue)
				if err != nil {
					return fmt.Errorf("invalid --next-due: %w", err)
				}
				edit.NextDueDate = &due
			}
			if edit == (review.SubscriptionEdit{}) {
				return errNothingToEdit
			}

			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			user, err := a.userID()
			if err != nil {
				return err
			}

			sub, err := review.NewService(a.db).EditSubscription(ctx, user, id, edit)
			if err != nil {
				return err
			}

			a.record(ctx, activity.Entry{
				User:    user,
				Action:  activity.ActionEdit,
				Target:  fmt.Sprintf("subscription:%d", id),
				Details: fmt.Sprintf("%s %s %s", sub.Name, sub.Amount.StringFixed(2), sub.Cadence),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Updated subscription %d (%s, %s %s, next due %s)\n",
				sub.ID, sub.Name, sub.Amount.StringFixed(2), sub.Cadence, formatDay(sub.NextDueDate))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "subscription name")
	cmd.Flags().StringVar(&amount, "amount", "", "amount per charge")
	cmd.Flags().StringVar(&cadence, "cadence", "", "weekly, monthly, quarterly or yearly")
	cmd.Flags().StringVar(&nextDue, "next-due", "", "next due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&category, "category", "", "category; empty clears it")
	cmd.Flags().StringVar(&notes, "notes", "", "notes; empty clears them")

	return cmd
}
