// Arena Battle Client - Main Entry Point
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"arena-battle/internal/client"
	"arena-battle/internal/network"
	"arena-battle/pkg/logger"
)

var (
	version    = "1.0.0"
	serverAddr = flag.String("server", "localhost:8080", "Server address (host:port)")
	name       = flag.String("name", "", "Display name")
	avatar     = flag.String("avatar", "", "Single character shown on the board")
	logLevel   = flag.String("log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile    = flag.String("log-file", "", "Log file path (optional)")
)

func main() {
	flag.Parse()

	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Client.Sync()

	av, err := parseIdentity(*name, *avatar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger.Client.Info("Starting Arena Battle Client v%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameClient := client.NewClient(*serverAddr, *name, av, client.NewDisplay(), client.NewInputHandler(os.Stdin))
	if err := gameClient.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Client.Error("Client stopped: %v", err)
		if errors.Is(err, client.ErrRejected) {
			os.Exit(3)
		}
		os.Exit(1)
	}
	logger.Client.Info("Client shutting down gracefully")
}

// parseIdentity checks the name and avatar the same way the server does.
func parseIdentity(name, avatar string) (rune, error) {
	if utf8.RuneCountInString(avatar) != 1 {
		return 0, fmt.Errorf("-avatar must be exactly one character")
	}
	req, err := network.DecodeEnrollment([]byte(name + "," + avatar))
	if err != nil {
		return 0, fmt.Errorf("invalid -name/-avatar: %w", err)
	}
	return req.Avatar, nil
}

// initLogging sets up the logging system
func initLogging() error {
	level, ok := logger.ParseLevel(*logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", *logLevel)
	}
	logger.SetGlobalLogLevel(level)

	if *logFile != "" {
		if err := logger.Client.SetFile(*logFile); err != nil {
			return fmt.Errorf("failed to set log file: %w", err)
		}
		logger.Client.Info("Logging to file: %s", *logFile)
	}
	return nil
}
