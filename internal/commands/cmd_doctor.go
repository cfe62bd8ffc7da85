package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/commands/doctor"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/config"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/printer"
)

type DoctorCmd struct {
	flags  *Flags
	format string
	fix    bool
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your relay setup",
		UsageText:   "supportrelay doctor [options]",
		Description: "Runs diagnostic checks on configuration and the message store.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "fix",
				Usage:       "delete stale conversation files",
				Destination: &cmd.fix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	checks := []doctor.Check{
		doctor.NewConfigCheck(cfg, cmd.flags.ConfigPath),
	}

	if cfg != nil {
		store, err := openStore(ctx, cfg)
		if err != nil {
			checks = append(checks, failedCheck{name: "Message Store", label: "Open store", err: err})
		} else {
			defer func() { _ = store.Close() }()
			checks = append(checks, doctor.NewStoreCheck(store, cfg.Store.Driver))
		}

		if cfg.Store.Driver == config.DriverJSONFile {
			checks = append(checks, doctor.NewStaleFileCheck(cfg.Store.DataDir, cmd.fix))
		}
	}

	results := doctor.RunAll(ctx, checks, doctor.DefaultCheckTimeout)

	if cmd.format == "json" {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(ctx, results)
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	totals := doctor.Tally(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary doctor.Totals   `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: totals.Healthy(),
		Summary: totals,
		Checks:  results,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if !totals.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(ctx context.Context, results []doctor.Result) error {
	p := printer.Ctx(ctx)

	for _, result := range results {
		p.Section(fmt.Sprintf("%s (%dms)", result.Name, result.ElapsedMS))

		for _, item := range result.Items {
			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, item.Detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, item.Detail)
			case doctor.StatusFail:
				p.FailItem(item.Label, item.Detail)
			}
		}

		p.Printf("")
	}

	totals := doctor.Tally(results)
	p.Printf("Summary: %d passed, %d warnings, %d failed", totals.Passed, totals.Warned, totals.Failed)

	if totals.Fixable > 0 && !cmd.fix {
		p.Printf("Run 'supportrelay doctor --fix' to clean up %d issue(s)", totals.Fixable)
	}

	if !totals.Healthy() {
		return cli.Exit("", 1)
	}

	return nil
}

// failedCheck reports a check that could not be constructed.
type failedCheck struct {
	name  string
	label string
	err   error
}

func (c failedCheck) Name() string { return c.name }

func (c failedCheck) Run(context.Context) doctor.Result {
	return doctor.Result{
		Name:  c.name,
		Items: []doctor.CheckItem{{Label: c.label, Status: doctor.StatusFail, Detail: c.err.Error()}},
	}
}
