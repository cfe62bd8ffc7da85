package config

import (
	"net/url"
	"strings"
)

const redactedSecret = "xxxxx"

// StoreTarget describes where messages are kept without exposing credentials:
// the database host for postgres, the directory for jsonfile.
func (c *Config) StoreTarget() string {
	switch c.Store.Driver {
	case DriverPostgres:
		u, err := url.Parse(c.Store.DSN)
		if err == nil && u.Host != "" {
			return "postgres " + u.Host + u.Path
		}
		for _, field := range strings.Fields(c.Store.DSN) {
			if host, ok := strings.CutPrefix(field, "host="); ok {
				return "postgres " + host
			}
		}
		return "postgres"
	case DriverJSONFile:
		return "jsonfile " + c.Store.DataDir
	default:
		return c.Store.Driver
	}
}

// Redacted returns a copy safe to print, with any DSN password masked.
func (c Config) Redacted() Config {
	c.HTTP.AllowedOrigins = append([]string(nil), c.HTTP.AllowedOrigins...)
	c.Store.DSN = redactDSN(c.Store.DSN)
	return c
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}

	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redactedSecret)
		}
		return u.String()
	}

	fields := strings.Fields(dsn)
	for i, field := range fields {
		if strings.HasPrefix(field, "password=") {
			fields[i] = "password=" + redactedSecret
		}
	}
	return strings.Join(fields, " ")
}
