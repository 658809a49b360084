package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/application"
	"telegram-nutrition-bot/internal/config"
	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	aiAdapters "telegram-nutrition-bot/internal/infra/adapters/ai"
	tele "telegram-nutrition-bot/internal/infra/adapters/telegram"
	"telegram-nutrition-bot/internal/infra/api"
	pg "telegram-nutrition-bot/internal/infra/db/postgres"
	"telegram-nutrition-bot/internal/infra/i18n"
	"telegram-nutrition-bot/internal/infra/logging"
	"telegram-nutrition-bot/internal/infra/metrics"
	red "telegram-nutrition-bot/internal/infra/redis"
	"telegram-nutrition-bot/internal/infra/sched"
	"telegram-nutrition-bot/internal/usecase"
)

// set via -ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	mintFor := flag.String("mint-token", "", "print an admin API token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	auth := api.NewAuthManager(cfg.HTTP.JWTSecret, cfg.HTTP.TokenTTL)
	if *mintFor != "" {
		tok, err := auth.Mint(*mintFor)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint admin token")
		}
		fmt.Println(tok)
		return
	}

	if err := run(cfg, auth, logger); err != nil {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
}

func run(cfg *config.Config, auth *api.AuthManager, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting nutrition bot")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	conversations := red.NewConversationRepo(redisClient, cfg.Redis.TTL)
	flood := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	reminderRepo := pg.NewReminderRepo(pool)
	usageRepo := pg.NewUsageRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	processedRepo := pg.NewProcessedUpdateRepo(pool)

	// ---- Use cases ----
	loc := cfg.Usage.Location()
	userUC := usecase.NewUserUseCase(userRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, reminderRepo, tm, nil, cfg.Scheduler.ReminderWindow, logger)
	usageUC := usecase.NewUsageUseCase(usageRepo, subUC, model.UsageLimits{Daily: cfg.Usage.DailyLimit, Total: cfg.Usage.TotalLimit}, cfg.Usage.UnlimitedIDs, loc, logger)
	paymentUC := usecase.NewPaymentUseCase(purchaseRepo, cfg.Payment.Enabled, cfg.Payment.PrecheckoutTimeout, logger)
	dedupUC := usecase.NewDedupUseCase(processedRepo, cfg.Dedup.Retention, cfg.Dedup.PruneEvery, logger)

	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	// ---- Generative backend ----
	gateway, err := buildGateway(ctx, cfg.AI, translator.T("ai.fallback"), logger)
	if err != nil {
		return err
	}

	// ---- Telegram ----
	providerToken := ""
	if cfg.Payment.Enabled {
		providerToken = cfg.Payment.ProviderToken
	}
	bot, err := tele.NewBot(&cfg.Bot, providerToken, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info().Str("username", bot.Username()).Msg("authorized on telegram")

	router := application.NewRouter(application.RouterDeps{
		Conversations: conversations,
		Usage:         usageUC,
		Subscriptions: subUC,
		Payments:      paymentUC,
		Users:         userUC,
		Backend:       gateway,
		Messenger:     bot,
		Translator:    translator,
		Flood:         flood,
	}, application.RouterConfig{
		AdminIDs:   cfg.Bot.AdminIDs,
		FloodLimit: cfg.Bot.FloodLimit,
		Location:   loc,
		PriceMinor: cfg.Payment.PriceMinor,
		Currency:   cfg.Payment.Currency,
		Days:       cfg.Payment.Days,
		NeedEmail:  cfg.Payment.NeedEmail,
		NeedPhone:  cfg.Payment.NeedPhone,
		Receipt:    cfg.Payment.Receipt,
		VATCode:    cfg.Payment.VATCode,
		Dev:        cfg.Runtime.Dev,
	}, logger)
	subUC.SetNotifier(router)

	ingCfg := application.IngestorConfig{
		PollTimeout: cfg.Bot.PollTimeout,
		IdleDelay:   cfg.Bot.IdleDelay,
		MaxBackoff:  cfg.Bot.MaxBackoff,
	}
	var lock application.PollLock
	if cfg.Bot.SinglePoller {
		lock = red.NewLocker(redisClient)
		ingCfg.LockKey = "poller:" + strings.ToLower(bot.Username())
	}
	ingestor := application.NewIngestor(bot, dedupUC, router, lock, ingCfg, logger)

	// ---- HTTP (health, metrics, admin) ----
	server := api.NewServer(subUC, usageUC, auth, map[string]api.HealthCheck{
		"postgres": pool.Ping,
		"redis":    redisClient.Ping,
	}, logger)
	go func() {
		if err := server.Start(cfg.HTTP.Port); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	// ---- Reminders ----
	worker := sched.NewReminderWorker(cfg.Scheduler.ReminderInterval, subUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Polling (blocks) ----
	runErr := ingestor.Run(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	if errors.Is(runErr, domain.ErrPollingConflict) {
		return runErr
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// buildGateway wires the OpenAI-compatible backend, plus Gemini when a key is
// configured, behind one concurrency limit.
func buildGateway(ctx context.Context, c config.AIConfig, fallback string, logger *zerolog.Logger) (*aiAdapters.Gateway, error) {
	providers := map[string]aiAdapters.Provider{}
	if c.APIKey != "" {
		providers["openai"] = aiAdapters.NewHTTPBackend(aiAdapters.HTTPBackendConfig{
			BaseURL: c.BaseURL,
			APIKey:  c.APIKey,
			Options: aiAdapters.RequestOptions{
				Model:               c.Model,
				MaxOutputTokens:     c.MaxOutputTokens,
				Temperature:         c.Temperature,
				ReasoningEffort:     c.ReasoningEffort,
				UseCompletionTokens: c.UseCompletionTokens,
			},
			RetryBase: c.RetryBase,
			Timeout:   c.Timeout,
		}, nil, logger)
	}
	if c.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiProvider(ctx, c.GeminiKey, c.GeminiURL, c.Model, c.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		providers["gemini"] = aiAdapters.NewRetryingProvider(gm, c.RetryBase, logger)
	}
	if len(providers) == 0 {
		logger.Warn().Msg("no AI provider configured; every reply will be the fallback text")
	}

	multi := aiAdapters.NewMultiProvider(c.Model, "openai", providers)
	limited := aiAdapters.NewLimitedProvider(multi, c.ConcurrentLimit)
	return aiAdapters.NewGateway(limited, aiAdapters.NewTokenCounter(c.Model), aiAdapters.GatewayConfig{
		Model:           c.Model,
		Fallback:        fallback,
		MaxPromptTokens: c.MaxPromptTokens,
	}, logger), nil
}
