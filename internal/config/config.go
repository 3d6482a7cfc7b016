// Package config loads server settings from flags, the environment and an
// optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"arena-battle/internal/game"
	"arena-battle/internal/server"
	"arena-battle/pkg/logger"
)

var ErrInvalid = errors.New("invalid configuration")

// Environment variables consulted for flag defaults.
const (
	EnvHost             = "ARENA_HOST"
	EnvPort             = "ARENA_PORT"
	EnvLogLevel         = "ARENA_LOG_LEVEL"
	EnvLogFile          = "ARENA_LOG_FILE"
	EnvLogDir           = "ARENA_LOG_DIR"
	EnvWidth            = "ARENA_WIDTH"
	EnvHeight           = "ARENA_HEIGHT"
	EnvTick             = "ARENA_TICK"
	EnvTurnTimeout      = "ARENA_TURN_TIMEOUT"
	EnvIdleTurns        = "ARENA_IDLE_TURNS"
	EnvResync           = "ARENA_RESYNC"
	EnvHandshakeTimeout = "ARENA_HANDSHAKE_TIMEOUT"
	EnvJoinRate         = "ARENA_JOIN_RATE"
	EnvSpectatorAddr    = "ARENA_SPECTATOR_ADDR"
)

// Config holds everything cmd/server needs.
type Config struct {
	Host     string
	Port     string
	LogLevel string
	LogFile  string
	// LogDir receives per-component log files when LogFile is empty.
	LogDir   string

	Width            int
	Height           int
	Tick             time.Duration
	TurnTimeout      time.Duration
	IdleTurns        int
	Resync           time.Duration
	HandshakeTimeout time.Duration
	JoinRate         float64

	// SpectatorAddr enables the HTTP spectator API when non-empty.
	SpectatorAddr string

	Help    bool
	Version bool
}

// Default returns the built-in configuration.
func Default() *Config {
	s := server.DefaultSettings()
	return &Config{
		Host:             "localhost",
		Port:             "0",
		LogLevel:         "INFO",
		LogDir:           "./logs",
		Width:            s.Width,
		Height:           s.Height,
		Tick:             s.Tick,
		TurnTimeout:      s.TurnTimeout,
		IdleTurns:        s.IdleTurns,
		Resync:           s.ResyncInterval,
		HandshakeTimeout: s.HandshakeTimeout,
		JoinRate:         s.JoinRate,
	}
}

// LoadDotEnv loads path into the process environment. A missing file is not
// an error. Variables already set win over the file.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays ARENA_* variables on the defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, key, v))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, key, v))
				return
			}
			*dst = d
		}
	}

	str(EnvHost, &c.Host)
	str(EnvPort, &c.Port)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFile, &c.LogFile)
	str(EnvLogDir, &c.LogDir)
	str(EnvSpectatorAddr, &c.SpectatorAddr)
	integer(EnvWidth, &c.Width)
	integer(EnvHeight, &c.Height)
	integer(EnvIdleTurns, &c.IdleTurns)
	duration(EnvTick, &c.Tick)
	duration(EnvTurnTimeout, &c.TurnTimeout)
	duration(EnvResync, &c.Resync)
	duration(EnvHandshakeTimeout, &c.HandshakeTimeout)
	if v := getenv(EnvJoinRate); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvJoinRate, v))
		} else {
			c.JoinRate = f
		}
	}
	return c, errors.Join(errs...)
}

// Load reads .env, the environment and then args, each overriding the last.
func Load(args []string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	c, err := FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if err := c.ParseFlags(args, io.Discard); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseFlags applies command-line flags on top of c. Usage errors are
// written to output.
func (c *Config) ParseFlags(args []string, output io.Writer) error {
	set := flag.NewFlagSet("arena-server", flag.ContinueOnError)
	set.SetOutput(output)

	set.StringVar(&c.Host, "host", c.Host, "Server host")
	set.StringVar(&c.Port, "port", c.Port, "Server port (0 picks a free port)")
	set.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	set.StringVar(&c.LogFile, "log-file", c.LogFile, "Log file path (optional)")
	set.StringVar(&c.LogDir, "log-dir", c.LogDir, "Directory for per-component logs when -log-file is unset (empty disables)")
	set.IntVar(&c.Width, "width", c.Width, "Arena width including the border")
	set.IntVar(&c.Height, "height", c.Height, "Arena height including the border")
	set.DurationVar(&c.Tick, "tick", c.Tick, "Longest wait for input between loop iterations")
	set.DurationVar(&c.TurnTimeout, "turn-timeout", c.TurnTimeout, "Forfeit pending turns after this long (0 disables)")
	set.IntVar(&c.IdleTurns, "idle-turns", c.IdleTurns, "Eliminate after this many forfeited turns in a row (0 disables)")
	set.DurationVar(&c.Resync, "resync", c.Resync, "Re-broadcast positions this often (0 disables)")
	set.DurationVar(&c.HandshakeTimeout, "handshake-timeout", c.HandshakeTimeout, "Drop connections that do not enroll in time")
	set.Float64Var(&c.JoinRate, "join-rate", c.JoinRate, "Accepted connections per second during enrollment (0 unlimited)")
	set.StringVar(&c.SpectatorAddr, "spectator-addr", c.SpectatorAddr, "Serve the spectator HTTP API on this address (optional)")
	set.BoolVar(&c.Help, "help", false, "Show help information")
	set.BoolVar(&c.Version, "version", false, "Show version information")

	if err := set.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Width < game.MinWidth || c.Height < game.MinHeight {
		errs = append(errs, fmt.Errorf("%w: arena %dx%d is smaller than %dx%d", ErrInvalid, c.Width, c.Height, game.MinWidth, game.MinHeight))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("%w: tick must be positive", ErrInvalid))
	}
	if c.TurnTimeout < 0 || c.Resync < 0 || c.HandshakeTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: durations must not be negative", ErrInvalid))
	}
	if c.IdleTurns < 0 {
		errs = append(errs, fmt.Errorf("%w: idle-turns must not be negative", ErrInvalid))
	}
	if c.JoinRate < 0 {
		errs = append(errs, fmt.Errorf("%w: join-rate must not be negative", ErrInvalid))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %q", ErrInvalid, c.Port))
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel))
	}
	return errors.Join(errs...)
}

// Address is the TCP listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Settings converts c to the server's tuning knobs.
func (c *Config) Settings() server.Settings {
	s := server.DefaultSettings()
	s.Width = c.Width
	s.Height = c.Height
	s.Tick = c.Tick
	s.TurnTimeout = c.TurnTimeout
	s.IdleTurns = c.IdleTurns
	s.ResyncInterval = c.Resync
	s.HandshakeTimeout = c.HandshakeTimeout
	s.JoinRate = c.JoinRate
	return s
}
