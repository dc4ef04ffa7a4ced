package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"goldrush/server/internal/app"
	"goldrush/server/internal/config"
	"goldrush/server/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := app.Run(ctx, app.Config{Settings: settings, Logger: telemetry.WrapLogger(log.Default())}); err != nil {
		log.Fatalf("%v", err)
	}
}
