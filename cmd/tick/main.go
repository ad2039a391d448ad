// Command tick runs one pass of the phase machine and waits for any judging it started.
// It is meant to be run by an external scheduler such as cron.
package main

import (
	"context"
	"flag"
	"time"

	"debatearena/config"
	"debatearena/internal/app"
	"debatearena/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Phases.JudgeTimeout+30*time.Second)
	defer cancel()

	engine, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise engine")
	}
	defer engine.Close(context.Background())

	report, err := engine.Machine.Tick(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Tick failed")
		return
	}
	log.Info().Int("scanned", report.Scanned).Int("advanced", report.Advanced).Int("failed", report.Failed).Msg("Tick finished")
}
