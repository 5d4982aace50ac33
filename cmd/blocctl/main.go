// Command blocctl inspects the blocs of a page through the bloc API and runs
// scripted editing sessions against it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bloc-editor/internal/config"
	"bloc-editor/internal/logging"
)

func main() {
	config.LoadConfig()
	log := logging.New(config.AppConfig.Environment, config.AppConfig.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(log).RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("blocctl failed")
	}
}
