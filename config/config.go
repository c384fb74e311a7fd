package config

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
)

// Config defines the configuration for an embedded PostgreSQL server that
// test databases can be created on. It is only needed when no external
// server is available.
type Config struct {
	Version  embeddedpostgres.PostgresVersion // e.g., embeddedpostgres.V16
	Host     string                           // Host for the server to listen on. Defaults to "localhost".
	Port     uint32                           // Port for the server to listen on. 0 means select a random free port.
	Username string                           // Superuser name. Must not be empty.
	Password string                           // Superuser password. Must not be empty.

	BinariesPath    string        // Optional: Path to existing postgres binaries. If empty, downloads.
	RuntimeBasePath string        // Directory holding per-server runtime directories. Default ".testdb".
	StartTimeout    time.Duration // How long to wait for Postgres to start. Default 15s.
	Logger          io.Writer     // Where to write raw Postgres output. Default os.Stderr. nil discards.
}

// Validate checks if the essential configuration fields are set correctly.
func (c *Config) Validate() error {
	var errs []string
	if c.Username == "" {
		errs = append(errs, "Username must not be empty")
	}
	if c.Password == "" {
		errs = append(errs, "Password must not be empty")
	}
	if c.StartTimeout < 0 {
		errs = append(errs, "StartTimeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, ", "))
	}
	return nil
}

// DefaultConfig returns a default configuration for the embedded server.
func DefaultConfig() Config {
	return Config{
		Version:         embeddedpostgres.V16,
		Host:            "localhost",
		Port:            0, // Random free port
		Username:        "postgres",
		Password:        "postgres",
		RuntimeBasePath: ".testdb",
		StartTimeout:    15 * time.Second,
		Logger:          os.Stderr,
	}
}

// ServerURL builds the URL of the server without a database component, the
// form test databases are created from. It assumes Port has been assigned.
func (c *Config) ServerURL() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(host, strconv.FormatUint(uint64(c.Port), 10)),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
