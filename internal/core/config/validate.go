package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks file access, the listen address and the dsn.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			errs = errs.Append("config", fmt.Errorf("%s is a directory, not a file", configPath))
		} else if err != nil && !os.IsNotExist(err) {
			errs = errs.Append("config", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.HTTP.Addr != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
			errs = errs.Append("http.addr", fmt.Errorf("invalid listen address %q: %w", c.HTTP.Addr, err))
		}
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN != "" {
			if err := checkDSN(c.Store.DSN); err != nil {
				errs = errs.Append("store.dsn", err)
			}
		}
	case DriverJSONFile:
		if c.Store.DataDir != "" {
			if info, err := os.Stat(c.Store.DataDir); err == nil && !info.IsDir() {
				errs = errs.Append("store.data_dir", fmt.Errorf("%s exists but is not a directory", c.Store.DataDir))
			} else if err != nil && !os.IsNotExist(err) {
				errs = errs.Append("store.data_dir", fmt.Errorf("cannot access %s: %w", c.Store.DataDir, err))
			}
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues worth surfacing to the operator.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.HTTP.AllowedOrigins) == 0 || (len(c.HTTP.AllowedOrigins) == 1 && c.HTTP.AllowedOrigins[0] == "*") {
		warnings = append(warnings, ValidationWarning{
			Category: "HTTP",
			Item:     "allowed_origins",
			Message:  "every origin is accepted; list the storefront origins in production",
		})
	}

	if c.Store.Driver == DriverJSONFile {
		warnings = append(warnings, ValidationWarning{
			Category: "Store",
			Item:     "driver",
			Message:  "jsonfile store is meant for single-node and development use",
		})
	}

	return warnings
}

// checkDSN accepts postgres:// URLs and key=value connection strings.
func checkDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// lib/pq also accepts "host=... dbname=..." strings.
		return nil
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q (want postgres)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
