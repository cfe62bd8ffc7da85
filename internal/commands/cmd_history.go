package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/directory"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/printer"
)

type HistoryCmd struct {
	flags *Flags

	// Command-specific flags
	format string
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "history",
		Usage:       "Print a customer's conversation",
		UsageText:   "supportrelay history [options] <customer-id>",
		Description: "Prints every message in the customer's conversation, oldest first.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one customer id")
	}
	customer := c.Args().First()

	store, err := openStore(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dir := directory.New(store, cmd.flags.Config.Directory.PreviewLength, log.Logger)
	messages, err := dir.History(ctx, customer)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(messages)
	}

	p := printer.Ctx(ctx)
	if len(messages) == 0 {
		p.Infof("No messages for %s", customer)
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tFROM\tSTATUS\tMESSAGE")

	for _, m := range messages {
		status := p.StatusWarn("unread")
		if m.IsRead {
			status = p.StatusOK("read")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			author(m),
			status,
			chat.Preview(m.Content, 60),
		)
	}

	return w.Flush()
}

// author labels a message's author relative to its conversation.
func author(m chat.Message) string {
	if m.FromCustomer() {
		return m.AuthorID
	}
	return m.AuthorID + " (staff)"
}
