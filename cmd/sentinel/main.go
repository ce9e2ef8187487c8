package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/sms-sentinel/internal/classifier"
	"github.com/xaenox/sms-sentinel/internal/gate"
	"github.com/xaenox/sms-sentinel/internal/pipeline"
	"github.com/xaenox/sms-sentinel/internal/policy"
	"github.com/xaenox/sms-sentinel/internal/sms"
	"github.com/xaenox/sms-sentinel/internal/source"
	"github.com/xaenox/sms-sentinel/internal/storage"
	"github.com/xaenox/sms-sentinel/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize classifier cascade: crew -> direct -> heuristic
	llmConfig := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		llmConfig.BaseURL = cfg.LLM.BaseURL
	}
	llmClient := openai.NewClientWithConfig(llmConfig)

	var tiers []classifier.Classifier
	if cfg.LLM.CrewMode {
		tiers = append(tiers, classifier.NewCrew(llmClient, cfg.LLM.Model, cfg.LLM.MaxTokens, logger))
	}
	tiers = append(tiers,
		classifier.NewDirect(llmClient, cfg.LLM.Model, cfg.LLM.MaxTokens, logger),
		classifier.NewHeuristic(),
	)
	cascade := classifier.NewCascade(logger, tiers...)

	// Policy cache over storage
	pol := policy.NewStore(store, time.Duration(cfg.Pipeline.PolicyCacheTTLSec)*time.Second)

	// Dispatch gate with local wall-clock hours
	dispatchGate := gate.New(store, pol, func() int { return time.Now().Hour() }, logger)

	// SMS sender
	sender := sms.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, logger)

	// Telegram message source
	tg, err := source.NewTelegram(cfg.Telegram.Token, logger)
	if err != nil {
		logger.Fatal("Failed to create Telegram source", zap.Error(err))
	}

	p := pipeline.New(tg, cascade, dispatchGate, sender, pol, store, cfg.Alert.PhoneNumber, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	go tg.Start(ctx)

	runScheduler(ctx, p, cfg, logger)
	logger.Info("Sentinel stopped")
}

// runScheduler triggers a pipeline run on each tick. A tick arriving
// while the previous run is still executing is skipped, so no two runs
// ever race the rate-limit and dedup state.
func runScheduler(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, logger *zap.Logger) {
	interval := time.Duration(cfg.Pipeline.CheckIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Scheduler started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := p.TryRun(ctx, cfg.Pipeline.MaxMessages, cfg.Pipeline.DemoMode)
			if errors.Is(err, pipeline.ErrRunInProgress) {
				logger.Warn("Previous run still executing, skipping tick")
				continue
			}
			if err != nil {
				logger.Error("Pipeline run failed", zap.Error(err))
				continue
			}
			logger.Info("Run finished",
				zap.String("run_id", result.RunID),
				zap.Int("checked", result.MessagesChecked),
				zap.Int("alerts", result.AlertsSent))
		}
	}
}
