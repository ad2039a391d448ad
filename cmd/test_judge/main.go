package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"debatearena/config"
	"debatearena/internal/logging"
	"debatearena/models"
	"debatearena/services"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logging.Setup(cfg.Log.Level, true)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Phases.JudgeTimeout)
	defer cancel()

	judge, err := services.NewGeminiJudge(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create judge")
	}

	sample := []models.Message{
		{AuthorSlot: models.SlotA, Side: models.SidePro, Content: "Good evening. I firmly support the motion and will outline three reasons."},
		{AuthorSlot: models.SlotA, Side: models.SidePro, Content: "We have data from three pilot programs that show 30 percent efficiency gains."},
		{AuthorSlot: models.SlotB, Side: models.SideCon, Content: "I disagree with the motion and will demonstrate why it fails real-world tests."},
		{AuthorSlot: models.SlotB, Side: models.SideCon, Content: "In closing, the proposal ignores key risks. The safer choice is to reject it."},
	}

	start := time.Now()
	verdict, raw, err := services.JudgeTranscript(ctx, judge, "Cities should ban private cars from their centres", models.PhaseOpening, sample)
	if err != nil {
		fmt.Println("Raw response:")
		fmt.Println(raw)
		log.Fatal().Err(err).Msg("Judging failed")
	}
	fmt.Printf("Judgment Result (%s):\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("winner=%s pro=%d con=%d damage=%d\n", verdict.WinningSide, verdict.ProScore, verdict.ConScore, services.Damage(verdict))
	fmt.Println(verdict.Rationale)
}
