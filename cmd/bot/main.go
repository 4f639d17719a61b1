package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/escalopa/quran-recite-checker/internal/adapter/i18n"
	"github.com/escalopa/quran-recite-checker/internal/adapter/mushaf"
	"github.com/escalopa/quran-recite-checker/internal/adapter/redis"
	"github.com/escalopa/quran-recite-checker/internal/adapter/telegram"
	"github.com/escalopa/quran-recite-checker/internal/adapter/transcriber"
	"github.com/escalopa/quran-recite-checker/internal/application"
	"github.com/escalopa/quran-recite-checker/internal/config"
	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/observe"
	"github.com/escalopa/quran-recite-checker/internal/recite/alignment"
	"github.com/escalopa/quran-recite-checker/internal/recite/pageflip"
	"github.com/escalopa/quran-recite-checker/internal/recite/pipeline"
	"github.com/escalopa/quran-recite-checker/internal/recite/rangebuilder"
	"github.com/escalopa/quran-recite-checker/internal/recite/similarity"
)

const shutdownTimeout = 10 * time.Second

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observe.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded", zap.String("path", configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	i18nService, err := i18n.NewI18n(cfg.App.LocalesDir, domain.Language(cfg.App.DefaultLanguage))
	if err != nil {
		return err
	}
	logger.Info("i18n initialized")

	layout, err := mushaf.Load(cfg.Mushaf.Path)
	if err != nil {
		return err
	}
	logger.Info("mushaf loaded", zap.Int("tokens", layout.Len()), zap.Int("last_page", layout.LastPage()))

	redisClient, err := redis.Connect(ctx, cfg.Redis.URI)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("redis connected")

	fsm := redis.NewFSM(redisClient)
	reports := redis.NewReportStore(redisClient, cfg.Redis.ReportTTL, cfg.Redis.ReportLimit)

	recognizer := transcriber.NewClient(cfg.Transcriber.BaseURL, cfg.Transcriber.APIKey,
		transcriber.WithTimeout(cfg.Transcriber.Timeout))

	scorer, err := similarity.ByName(cfg.Recite.Scorer)
	if err != nil {
		return err
	}

	service := application.NewRecitationService(
		fsm,
		reports,
		rangebuilder.New(layout, logger.Named("rangebuilder")),
		recognizer,
		application.WithDefaultLanguage(domain.Language(cfg.App.DefaultLanguage)),
		application.WithLogger(logger.Named("service")),
		application.WithSessionOptions(
			pipeline.WithQueueSize(cfg.Recite.QueueSize),
			pipeline.WithMetrics(metrics),
			pipeline.WithEngineOptions(
				alignment.WithScorer(scorer),
				alignment.WithDirectThreshold(cfg.Recite.DirectThreshold),
				alignment.WithLookaheadThreshold(cfg.Recite.LookaheadThreshold),
				alignment.WithLookaheadWindow(cfg.Recite.LookaheadWindow),
				alignment.WithLogger(logger.Named("alignment")),
			),
			pipeline.WithMonitorOptions(
				pageflip.WithSpread(cfg.Mushaf.Spread),
				pageflip.WithLastPage(cfg.Mushaf.LastPage),
				pageflip.WithLogger(logger.Named("pageflip")),
			),
		),
	)
	logger.Info("recitation service initialized")

	if err := tgbotapi.SetLogger(observe.NewPrintfAdapter(logger.Named("tgbotapi"))); err != nil {
		return fmt.Errorf("set telegram logger: %w", err)
	}

	bot, err := telegram.NewBot(cfg.Telegram.Token, service, i18nService, telegram.WithLogger(logger.Named("telegram")))
	if err != nil {
		return err
	}
	logger.Info("telegram bot initialized")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting bot")
		return bot.Start(gctx)
	})

	if cfg.App.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", provider.Handler())
		srv := &http.Server{Addr: cfg.App.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", cfg.App.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	<-gctx.Done()
	logger.Info("shutting down")

	if err := bot.Stop(); err != nil {
		logger.Error("stop bot", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	service.Shutdown(shutdownCtx)
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown metrics", zap.Error(err))
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("bot stopped")
	return nil
}
