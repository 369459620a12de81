// Package config loads the server configuration.
//
// Values are layered, later layers winning: built-in defaults, an optional
// YAML file (--config), PRESKRBA_* environment variables and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	DB    string `yaml:"db"`
	Addr  string `yaml:"addr"`
	Log   string `yaml:"log"`
	Admin string `yaml:"admin"`

	// Warehouse is the central location created with a new database.
	Warehouse WarehouseConfig `yaml:"warehouse"`

	TokenTTL        time.Duration `yaml:"token_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// AuditBuffer is the number of audit events held before new ones are dropped.
	AuditBuffer int `yaml:"audit_buffer"`
}

// WarehouseConfig names the central warehouse.
type WarehouseConfig struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DB:    "preskrba.sqlite3",
		Addr:  ":8080",
		Admin: "Admin",
		Warehouse: WarehouseConfig{
			Name: "Central warehouse",
			Code: "CEN",
		},
		TokenTTL:        7 * 24 * time.Hour,
		ShutdownTimeout: 5 * time.Second,
		AuditBuffer:     256,
	}
}

// Load builds the configuration from args (without the program name) and the
// environment. It returns pflag.ErrHelp when help was requested.
func Load(args []string, getenv func(string) string) (*Config, error) {
	var (
		path  string
		flags Config
	)
	fs := pflag.NewFlagSet("preskrba", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&path, "config", "c", "", "YAML configuration file")
	fs.StringVarP(&flags.DB, "db", "d", "", "SQLite database path")
	fs.StringVarP(&flags.Addr, "addr", "a", "", "listen address")
	fs.StringVarP(&flags.Log, "log", "l", "", "log file path")
	fs.StringVarP(&flags.Admin, "user", "u", "", "admin username on first run")
	fs.DurationVar(&flags.TokenTTL, "token-ttl", 0, "session token lifetime")
	fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if help, _ := fs.GetBool("help"); help {
		return nil, pflag.ErrHelp
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if path == "" {
		path = getenv("PRESKRBA_CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(getenv)

	if fs.Changed("db") {
		cfg.DB = flags.DB
	}
	if fs.Changed("addr") {
		cfg.Addr = flags.Addr
	}
	if fs.Changed("log") {
		cfg.Log = flags.Log
	}
	if fs.Changed("user") {
		cfg.Admin = flags.Admin
	}
	if fs.Changed("token-ttl") {
		cfg.TokenTTL = flags.TokenTTL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	for key, dst := range map[string]*string{
		"PRESKRBA_DB":    &c.DB,
		"PRESKRBA_ADDR":  &c.Addr,
		"PRESKRBA_LOG":   &c.Log,
		"PRESKRBA_ADMIN": &c.Admin,
	} {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
}

// Validate checks that required values are present and sane.
func (c *Config) Validate() error {
	var errs []error
	if c.DB == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Admin == "" {
		errs = append(errs, errors.New("admin username is required"))
	}
	if c.Warehouse.Name == "" || c.Warehouse.Code == "" {
		errs = append(errs, errors.New("warehouse name and code are required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.AuditBuffer <= 0 {
		errs = append(errs, errors.New("audit_buffer must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Usage is the help text of the server binary.
const Usage = `Usage: preskrba [flags]

Flags:
  -c, --config <path>       YAML configuration file (env PRESKRBA_CONFIG)
  -d, --db <path>           SQLite database path (default: preskrba.sqlite3)
  -a, --addr <host:port>    listen address (default: :8080)
  -u, --user <name>         admin username on first run (default: Admin)
  -l, --log <path>          log file path (default: stdout/stderr only)
      --token-ttl <dur>     session token lifetime (default: 168h)
  -h, --help                show this help and exit
`
