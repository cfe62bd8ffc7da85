package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/directory"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/printer"
)

type MarkReadCmd struct {
	flags *Flags

	// Command-specific flags
	sender string
	reader string
}

// NewMarkReadCmd creates a new mark-read command
func NewMarkReadCmd(flags *Flags) *MarkReadCmd {
	return &MarkReadCmd{flags: flags}
}

// Register adds the mark-read command to the application
func (cmd *MarkReadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "mark-read",
		Usage:     "Mark a conversation's messages as read",
		UsageText: "supportrelay mark-read [options] <customer-id>",
		Description: `Marks unread messages in a customer's conversation as read.

By default the customer's own messages are marked, as if an operator read them.
Use --sender to mark only one author's messages, or --reader to mark the
messages of whoever is on the other side from that reader.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "sender",
				Usage:       "only mark messages written by this identity",
				Destination: &cmd.sender,
			},
			&cli.StringFlag{
				Name:        "reader",
				Usage:       "mark the other party's messages on behalf of this identity",
				Destination: &cmd.reader,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *MarkReadCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one customer id")
	}
	if cmd.sender != "" && cmd.reader != "" {
		return fmt.Errorf("--sender and --reader are mutually exclusive")
	}
	customer := c.Args().First()

	store, err := openStore(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dir := directory.New(store, cmd.flags.Config.Directory.PreviewLength, log.Logger)

	var n int
	switch {
	case cmd.sender != "":
		n, err = dir.MarkReadFrom(ctx, customer, cmd.sender)
	case cmd.reader != "":
		n, err = dir.MarkRead(ctx, customer, cmd.reader)
	default:
		n, err = dir.MarkReadFrom(ctx, customer, customer)
	}
	if err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Marked %d message(s) read in %s", n, customer)
	return nil
}
