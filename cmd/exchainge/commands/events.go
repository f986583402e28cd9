package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/exchange"
)

var eventsLimit int

// ErrOutboxDisabled is returned by the events commands when events.outbox is off.
var ErrOutboxDisabled = errors.Reason("outbox_disabled", errors.ErrValidation, "events.outbox is disabled")

// EventsCmd reads and acknowledges the event outbox
var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read and acknowledge the event outbox",
	Long: `Read and acknowledge the event outbox.

With events.outbox enabled every committed operation appends an event to the
ledger database. A relay reads pending events and acknowledges each one
once delivered.

Examples:
  exchainge events pending --limit 50 --json
  exchainge events ack <event-id> <event-id>`,
}

var eventsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List undelivered events, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			if x.Outbox == nil {
				return errors.WithStack(ErrOutboxDisabled)
			}
			evs, err := x.Outbox.Pending(ctx, eventsLimit)
			if err != nil {
				return err
			}
			return display.Render(cmd, evs, func() error {
				rows := make([][]string, 0, len(evs))
				for _, e := range evs {
					rows = append(rows, []string{
						e.ID.String(), e.OccurredAt.Format(time.RFC3339), e.Type, e.Subject, e.Actor.Short(),
					})
				}
				return display.Table([]string{"ID", "OCCURRED", "TYPE", "SUBJECT", "ACTOR"}, rows, "No pending events")
			})
		})
	},
}

var eventsAckCmd = &cobra.Command{
	Use:   "ack EVENT_ID...",
	Short: "Mark events as delivered",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uuid.UUID, 0, len(args))
		for _, a := range args {
			id, err := uuid.Parse(a)
			if err != nil {
				return errors.Wrapf(err, "event id %q", a)
			}
			ids = append(ids, id)
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			if x.Outbox == nil {
				return errors.WithStack(ErrOutboxDisabled)
			}
			now := time.Now().UTC()
			for _, id := range ids {
				if err := x.Outbox.MarkSent(ctx, id, now); err != nil {
					return err
				}
			}
			if !display.ShouldOutputJSON(cmd) {
				pterm.Success.Printf("Acknowledged %d events\n", len(ids))
				return nil
			}
			return display.OutputJSON(map[string]int{"acknowledged": len(ids)})
		})
	},
}

func init() {
	eventsPendingCmd.Flags().IntVar(&eventsLimit, "limit", 100, "Maximum events to list")

	EventsCmd.AddCommand(eventsPendingCmd)
	EventsCmd.AddCommand(eventsAckCmd)
}
