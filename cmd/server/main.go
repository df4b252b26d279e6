package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"territory-arena/internal/api"
	"territory-arena/internal/config"
	"territory-arena/internal/game"
	"territory-arena/internal/pubsub"
	"territory-arena/internal/registry"
	"territory-arena/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" TERRITORY ARENA - GO ENGINE")
	log.Println("================================")

	appConfig := config.Load()

	store, err := repository.Open(appConfig.Server.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", appConfig.Server.DatabaseDSN, err)
	}
	defer store.Close()
	log.Printf("database: %s", appConfig.Server.DatabaseDSN)

	// Any non-finished row on disk belongs to a process that's no longer
	// running (this one just started), so every such row is stale.
	if cleaned, err := store.CleanupStaleMatches(time.Now()); err != nil {
		log.Printf("stale match cleanup failed: %v", err)
	} else if cleaned > 0 {
		log.Printf("cleaned up %d stale match row(s) from a previous run", cleaned)
	}

	if err := os.MkdirAll(appConfig.Server.EventLogDir, 0o755); err != nil {
		log.Printf("event log directory unavailable, logging disabled: %v", err)
		appConfig.Server.EventLogDir = ""
	}

	matchCfg := game.MatchConfig{
		GridSize:        appConfig.Match.GridSize,
		MaxPlayers:      appConfig.Match.MaxPlayersPerMatch,
		MatchDurationMs: appConfig.Match.MatchDurationMs,
	}

	reg := registry.New(appConfig.Registry.MaxConcurrentMatches, matchCfg, appConfig.Server.EventLogDir)
	broker := pubsub.NewBroker()

	janitor := registry.NewJanitor(
		reg,
		appConfig.Registry.JanitorSweepInterval,
		appConfig.Registry.StaleWaitingMinutes,
		appConfig.Registry.StalePlayingMinutes,
	)

	rateLimit := api.RateLimitConfig{
		RequestsPerSecond: appConfig.RateLimit.RequestsPerSecond,
		Burst:             appConfig.RateLimit.Burst,
		CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
	}

	server := api.NewServer(reg, broker, store, janitor, rateLimit)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	go func() {
		log.Printf("api listening on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	server.Stop()
	log.Println("goodbye")
}
