package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/printer"
)

type MigrateCmd struct {
	flags *Flags
}

// NewMigrateCmd creates a new migrate command
func NewMigrateCmd(flags *Flags) *MigrateCmd {
	return &MigrateCmd{flags: flags}
}

// Register adds the migrate command to the application
func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "migrate",
		Usage:       "Create or update the message store schema",
		UsageText:   "supportrelay migrate",
		Description: "Creates the chat_messages table and its indexes if they are missing. Safe to run repeatedly.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *MigrateCmd) run(ctx context.Context, c *cli.Command) error {
	store, err := openStore(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := migrate(ctx, store); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Store %s is up to date", cmd.flags.Config.Store.Driver)
	return nil
}
