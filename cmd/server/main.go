// Arena Battle Server - Main Entry Point
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"arena-battle/internal/config"
	"arena-battle/internal/httpapi"
	"arena-battle/internal/server"
	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

var (
	version   = "1.0.0"
	buildTime = "dev"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\nRun %s -help for usage.\n", err, os.Args[0])
		os.Exit(2)
	}

	if cfg.Help {
		showHelp()
		return
	}
	if cfg.Version {
		showVersion()
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Server.Sync()
	defer logger.Game.Sync()

	if err := run(cfg); err != nil {
		logger.Server.Error("%v", err)
		logger.Server.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger.Server.Info("Starting Arena Battle Server v%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := spectate.NewHub(ctx)
	opts := []server.Option{}
	if cfg.SpectatorAddr != "" {
		opts = append(opts, server.WithObserver(hub))
	}

	gameServer := server.NewServer(cfg.Address(), cfg.Settings(), opts...)
	addr, err := gameServer.Listen()
	if err != nil {
		return err
	}
	showBanner(addr.String(), gameServer.Session(), cfg)

	g, gctx := errgroup.WithContext(ctx)
	gameCtx, cancelGame := context.WithCancel(gctx)
	defer cancelGame()

	g.Go(func() error {
		// Ending the game also stops the spectator API.
		defer stop()
		res, err := gameServer.Run(gameCtx)
		if err != nil {
			return err
		}
		reportResult(res)
		return nil
	})

	if cfg.SpectatorAddr != "" {
		httpServer := &http.Server{
			Addr:              cfg.SpectatorAddr,
			Handler:           httpapi.SetupRoutes(hub, logger.Server),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Server.Info("Spectator API listening on %s", cfg.SpectatorAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cancelGame()
				return fmt.Errorf("spectator api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	select {
	case hub.Inbox() <- spectate.Shutdown{}:
	case <-hub.Done():
	}
	<-hub.Done()
	return err
}

// initLogging sets up the logging system
func initLogging(cfg *config.Config) error {
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetGlobalLogLevel(level)

	if cfg.LogFile != "" {
		if err := logger.Server.SetFile(cfg.LogFile); err != nil {
			return fmt.Errorf("failed to set log file: %w", err)
		}
		logger.Server.Info("Logging to file: %s", cfg.LogFile)
	} else if cfg.LogDir != "" {
		if err := logger.InitializeFileLogging(cfg.LogDir); err != nil {
			logger.Server.Warn("Could not initialize file logging: %v", err)
		}
	}
	return nil
}

func showBanner(addr, session string, cfg *config.Config) {
	title := color.New(color.FgCyan, color.Bold)
	title.Println("=== ARENA BATTLE SERVER ===")
	fmt.Printf("Listening on %s\n", color.GreenString(addr))
	fmt.Printf("Session %s\n", session)
	fmt.Printf("Arena %dx%d, waiting for 4 players\n", cfg.Width, cfg.Height)
	if cfg.TurnTimeout > 0 {
		fmt.Printf("Turn timeout %s, idle limit %d turns\n", cfg.TurnTimeout, cfg.IdleTurns)
	}
	if cfg.SpectatorAddr != "" {
		fmt.Printf("Spectators: http://%s/state\n", cfg.SpectatorAddr)
	}
}

func reportResult(res server.Result) {
	switch res.Reason {
	case server.StopVictory:
		color.New(color.FgGreen, color.Bold).Printf("%s wins after %d turns\n", res.Winner, res.Turns)
	case server.StopDraw:
		color.New(color.FgYellow, color.Bold).Printf("Draw after %d turns\n", res.Turns)
	default:
		color.New(color.FgRed).Printf("Game ended: %s after %d turns\n", res.Reason, res.Turns)
	}
}

// showHelp displays help information
func showHelp() {
	fmt.Printf(`Arena Battle Server v%s

USAGE:
    %s [OPTIONS]

OPTIONS:
    -host string               Server host (default "localhost", env ARENA_HOST)
    -port string               Server port, 0 picks a free one (default "0", env ARENA_PORT)
    -width int                 Arena width including the border (default 25)
    -height int                Arena height including the border (default 11)
    -tick duration             Longest wait for input per loop (default 100ms)
    -turn-timeout duration     Forfeit pending turns after this long, 0 disables (default 60s)
    -idle-turns int            Eliminate after this many forfeits in a row, 0 disables (default 3)
    -resync duration           Re-broadcast positions this often, 0 disables (default 5s)
    -handshake-timeout dur     Drop connections that do not enroll in time (default 30s)
    -join-rate float           Accepted connections per second while enrolling (default 10)
    -spectator-addr string     Serve the spectator HTTP API on this address (optional)
    -log-level string          Set log level (DEBUG, INFO, WARN, ERROR) (default "INFO")
    -log-file string           Set log file path (optional)
    -log-dir string            Per-component logs when -log-file is unset (default "./logs")
    -help                      Show this help message
    -version                   Show version information

Every option can also be set through ARENA_* environment variables or a
.env file in the working directory.

EXAMPLES:
    # Start on a free port
    %s

    # Fixed port on all interfaces with spectators
    %s -host 0.0.0.0 -port 9000 -spectator-addr :8081

    # Start with debug logging
    %s -log-level DEBUG

PROTOCOL:
    Each message is one line. Clients join with "<name>,<avatar>" and then
    send UP, DOWN, LEFT, RIGHT or one of the attack keys E T Y F H C G B.
`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

// showVersion displays version information
func showVersion() {
	fmt.Printf(`Arena Battle Server
Version: %s
Build Time: %s
Go Version: %s
Platform: %s/%s
`, version, buildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
