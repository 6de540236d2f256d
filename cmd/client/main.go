package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"workmap/internal/cli"
	"workmap/internal/common/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.New("workmap-client")

	mode, rest, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	if err := run(ctx, logger, mode, rest); err != nil {
		log.Error(ctx, logger, "command_failed", "Command failed", err)
		os.Exit(1)
	}
}
