package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	updowntrader "github.com/GoPolymarket/updown-trader"
	"github.com/GoPolymarket/updown-trader/pkg/api"
	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/executor"
	"github.com/GoPolymarket/updown-trader/pkg/logger"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

const (
	polygonChainID  = 137
	ctfAddress      = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"
	exchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
)

func main() {
	var (
		configPath = flag.String("config", "updown.yaml", "Path to YAML configuration")
		paused     = flag.Bool("paused", false, "Start with the entry kill switch engaged")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
		Console:    true,
	})
	log.Info().Str("mode", cfg.Mode).Dur("poll", cfg.PollInterval).Msg("starting")

	var opts []updowntrader.Option
	if cfg.Mode == config.ModeLive {
		approver, err := buildApprover()
		if err != nil {
			log.Fatal().Err(err).Msg("live mode requires working on-chain credentials")
		}
		opts = append(opts,
			updowntrader.WithVenue(venue.NewHTTPClient(cfg.VenueBaseURL, venue.WithAPIKey(os.Getenv("UPDOWN_API_KEY")))),
			updowntrader.WithApprover(approver),
		)
	}

	client, err := updowntrader.New(&cfg, log, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *paused {
		client.SetTradingEnabled(ctx, false)
	}

	srv := api.New(cfg.APIAddr, client, client.Ledger, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("api shutdown dirty")
			}
			return
		case <-ticker.C:
			if err := client.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("tick failed")
			}
		}
	}
}

// buildApprover reads the on-chain credentials from the environment.
func buildApprover() (executor.Approver, error) {
	rpcURL := strings.TrimSpace(os.Getenv("UPDOWN_RPC_URL"))
	pk := strings.TrimSpace(os.Getenv("UPDOWN_PK"))
	if rpcURL == "" || pk == "" {
		return nil, fmt.Errorf("missing UPDOWN_RPC_URL / UPDOWN_PK")
	}
	return venue.NewApprover(rpcURL, pk, ctfAddress, exchangeAddress, polygonChainID)
}
