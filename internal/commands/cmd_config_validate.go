package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/config"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/printer"
)

type ConfigValidateCmd struct {
	flags       *Flags
	format      string
	printConfig bool
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate the relay configuration",
				UsageText: "supportrelay config validate [options]",
				Description: `Validates the resolved configuration: the config file merged with DATABASE_URL,
PORT and defaults. Checks the listen address, store settings, relay timings and paths.

Use --print to show the resolved configuration with credentials masked.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
					&cli.BoolFlag{
						Name:        "print",
						Usage:       "print the resolved configuration as YAML",
						Destination: &cmd.printConfig,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	if cmd.printConfig {
		if err := writeResolvedConfig(c.Root().Writer, cfg); err != nil {
			return err
		}
	}

	err := cfg.ValidateDeep(cmd.flags.ConfigPath)
	warnings := cfg.Warnings()

	if cmd.format == "json" {
		return cmd.outputJSON(c, cfg, err, warnings)
	}

	return cmd.outputText(printer.Ctx(ctx), cfg, err, warnings)
}

// writeResolvedConfig prints cfg as YAML with the DSN password masked.
func writeResolvedConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func (cmd *ConfigValidateCmd) outputJSON(c *cli.Command, cfg *config.Config, validationErr error, warnings []config.ValidationWarning) error {
	type fieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	out := struct {
		Valid    bool                       `json:"valid"`
		Addr     string                     `json:"addr"`
		Store    string                     `json:"store"`
		Errors   []fieldError               `json:"errors,omitempty"`
		Warnings []config.ValidationWarning `json:"warnings,omitempty"`
	}{
		Valid:    validationErr == nil,
		Addr:     cfg.HTTP.Addr,
		Store:    cfg.StoreTarget(),
		Warnings: warnings,
	}

	for _, fe := range extractFieldErrors(validationErr) {
		out.Errors = append(out.Errors, fieldError{Field: fe.Field, Message: fe.Err.Error()})
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if validationErr != nil {
		return cli.Exit("", 1)
	}
	return nil
}

// extractFieldErrors extracts field errors from a validation error.
func extractFieldErrors(err error) criterio.FieldErrors {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return criterio.FieldErrors{{Err: err}}
}

func (cmd *ConfigValidateCmd) outputText(p *printer.Printer, cfg *config.Config, validationErr error, warnings []config.ValidationWarning) error {
	fieldErrs := extractFieldErrors(validationErr)

	p.Section("Relay")
	p.CheckItem("Listen address", cfg.HTTP.Addr)
	p.CheckItem("Message store", cfg.StoreTarget())
	p.Printf("")

	if len(fieldErrs) > 0 {
		p.Section("Errors")
		for _, fe := range fieldErrs {
			field := fe.Field
			if field == "" {
				field = "config"
			}
			p.FailItem(field, fe.Err.Error())
		}
		p.Printf("")
	}

	if len(warnings) > 0 {
		p.Section("Warnings")
		for _, warn := range warnings {
			label := warn.Category
			if warn.Item != "" {
				label += " " + warn.Item
			}
			p.WarnItem(label, warn.Message)
		}
		p.Printf("")
	}

	if validationErr == nil {
		if len(warnings) > 0 {
			p.Successf("Configuration is valid (%d warning(s))", len(warnings))
		} else {
			p.Successf("Configuration is valid")
		}
		return nil
	}

	p.Errorf("%d error(s), %d warning(s)", len(fieldErrs), len(warnings))
	return cli.Exit("", 1)
}
