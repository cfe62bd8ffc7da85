package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/directory"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/printer"
)

type ConversationsCmd struct {
	flags *Flags

	// Command-specific flags
	format     string
	unreadOnly bool
}

// NewConversationsCmd creates a new conversations command
func NewConversationsCmd(flags *Flags) *ConversationsCmd {
	return &ConversationsCmd{flags: flags}
}

// Register adds the conversations command to the application
func (cmd *ConversationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "conversations",
		Aliases:     []string{"ls"},
		Usage:       "List customer conversations",
		UsageText:   "supportrelay conversations [options]",
		Description: "Displays one row per customer conversation, most recent first, with its unread count.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "unread",
				Aliases:     []string{"u"},
				Usage:       "only show conversations with unread customer messages",
				Destination: &cmd.unreadOnly,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ConversationsCmd) run(ctx context.Context, c *cli.Command) error {
	store, err := openStore(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dir := directory.New(store, cmd.flags.Config.Directory.PreviewLength, log.Logger)
	convs, err := dir.ListConversations(ctx)
	if err != nil {
		return err
	}

	if cmd.unreadOnly {
		filtered := convs[:0]
		for _, conv := range convs {
			if conv.UnreadCount > 0 {
				filtered = append(filtered, conv)
			}
		}
		convs = filtered
	}

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(convs)
	}

	p := printer.Ctx(ctx)
	if len(convs) == 0 {
		p.Infof("No conversations found")
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CUSTOMER\tUNREAD\tLAST MESSAGE\tTIME")

	for _, conv := range convs {
		unread := p.StatusOK("0")
		if conv.UnreadCount > 0 {
			unread = p.StatusWarn(strconv.Itoa(conv.UnreadCount))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			conv.CustomerID,
			unread,
			conv.LastMessage,
			conv.LastMessageTime.Local().Format("2006-01-02 15:04:05"),
		)
	}

	return w.Flush()
}
