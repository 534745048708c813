package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpt/cobrowse/internal/gateway"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to gateway config (default: $HOME/.cobrowse/gateway.json)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	out := os.Stdout
	pkgLogger.SetGlobalLoggerWithConsoleWriter(pkgLogger.LogLevel(*logLevel), out)
	logger := pkgLogger.NewLoggerWithConsoleWriter(pkgLogger.LogLevel(*logLevel), out)

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = gateway.DefaultConfigPath()
	}

	cfg, err := gateway.LoadGatewayConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config from %s: %v\n", cfgPath, err)
		fmt.Fprintf(os.Stderr, "Create a config file or specify --config path\n")
		os.Exit(1)
	}
	if cfg.Discord.Token == "" {
		fmt.Fprintln(os.Stderr, "No Discord token configured (discord.token or DISCORD_BOT_TOKEN)")
		os.Exit(1)
	}

	gw, err := gateway.NewGateway(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create gateway: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.InfoWithIntention(pkgLogger.IntentionCancel, "Received signal, shutting down", "signal", sig)
		cancel()
	}()

	fmt.Println("cobrowse gateway starting...")
	fmt.Printf("  Service: %s\n", cfg.ServerAddr)
	fmt.Printf("  Idle timeout: %s\n", cfg.IdleTimeout())
	fmt.Printf("  Execute tools: %v\n", cfg.ExecuteTools)
	fmt.Println()

	if err := gw.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Gateway error: %v\n", err)
		os.Exit(1)
	}
}
