package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/interleave/internal/eventstore"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	DB    string `name:"events-db" help:"SQLite event store (defaults to events.sqlite from the config)"`
	Limit int    `short:"n" help:"Number of cycles to show" default:"20"`
	JSON  bool   `help:"Print JSON instead of a table"`
	Cycle string `help:"Show the events recorded for one cycle ID"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	db := h.DB
	if db == "" {
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		db = cfg.Events.SQLite
	}
	if db == "" {
		return errors.ValidationError("no event store configured (set events.sqlite or --events-db)").Build()
	}

	store, err := eventstore.NewSQLiteStore(db)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.Cycle != "" {
		return ShowCycle(context.Background(), os.Stdout, store, h.Cycle, h.JSON)
	}
	return ShowHistory(context.Background(), os.Stdout, store, h.Limit, h.JSON)
}

// ShowHistory prints the newest finished cycles in store.
func ShowHistory(ctx context.Context, out io.Writer, store eventstore.Store, limit int, asJSON bool) error {
	projection := eventstore.NewCycleHistoryProjection(store, limit)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}
	history := projection.History()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CYCLE\tSTARTED\tTRIGGER\tSTATUS\tDURATION\tDETAIL")
	for _, c := range history {
		detail := fmt.Sprintf("%d output(s)", len(c.Outputs))
		if c.Status == eventstore.StatusFailed {
			detail = c.ErrorStage + ": " + c.ErrorMessage
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.CycleID, c.StartedAt.Format(time.RFC3339), c.Trigger, c.Status,
			c.Duration.Round(time.Millisecond), detail)
	}
	return tw.Flush()
}

type cycleEvent struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ShowCycle prints every event stored for cycleID in the order it was
// recorded.
func ShowCycle(ctx context.Context, out io.Writer, store eventstore.Store, cycleID string, asJSON bool) error {
	events, err := store.GetByCycleID(ctx, cycleID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.ValidationError("no events recorded for cycle").WithContext("cycle_id", cycleID).Build()
	}

	if asJSON {
		list := make([]cycleEvent, 0, len(events))
		for _, e := range events {
			list = append(list, cycleEvent{Type: e.Type(), Timestamp: e.Timestamp(), Payload: e.Payload(), Metadata: e.Metadata()})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tTYPE\tPAYLOAD")
	for _, e := range events {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp().Format(time.RFC3339), e.Type(), e.Payload())
	}
	return tw.Flush()
}
