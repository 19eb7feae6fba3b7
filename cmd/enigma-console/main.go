package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	cli "github.com/spf13/pflag"

	"enigma/internal/config"
	"enigma/internal/console"
)

func main() {
	cfgPath := cli.StringP("config", "c", config.DefaultConfigPath, "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	socket := cli.String("socket", "", "Control socket path (default: from config)")
	timeout := cli.Duration("timeout", 3*time.Minute, "How long to wait for a reply")
	cli.Parse()

	cfg, err := config.Load(*cfgPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *socket != "" {
		cfg.Socket = *socket
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = console.Run(ctx, console.Options{
		Name:    cfg.Assistant.Name,
		Socket:  cfg.Socket,
		Timeout: *timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
