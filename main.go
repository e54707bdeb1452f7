package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/internal/api"
	"github.com/akilaramal69-beep/telelinkworking/internal/config"
	"github.com/akilaramal69-beep/telelinkworking/internal/controller"
	"github.com/akilaramal69-beep/telelinkworking/internal/extract"
	"github.com/akilaramal69-beep/telelinkworking/internal/handlers"
	"github.com/akilaramal69-beep/telelinkworking/internal/logger"
	"github.com/akilaramal69-beep/telelinkworking/internal/probe"
	"github.com/akilaramal69-beep/telelinkworking/internal/relay"
	"github.com/akilaramal69-beep/telelinkworking/store"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func main() {
	_ = config.LoadEnvFile("config.env")
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progressStore := buildProgressStore(ctx, cfg, log)

	userStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalw("postgres connection failed", "err", err)
	}
	defer userStore.Close()

	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.ConnectionBoost * 4,
			MaxIdleConnsPerHost: cfg.ConnectionBoost,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	pollTimeout := 50 * time.Second
	b, err := bot.New(cfg.BotToken, bot.WithHTTPClient(pollTimeout, httpClient))
	if err != nil {
		log.Fatalw("bot creation failed", "err", err)
	}

	ytdlp := extract.NewYtdlpRunner(cfg.YtdlpPath, cfg.FFmpegPath, cfg.CookiesFile, cfg.ProxyURL, log)
	cobalt := extract.NewCobaltClient(cfg.FallbackAPIURL, httpClient, int(cfg.ChunkSize), log)
	remuxer := extract.NewFFmpegRemuxer(cfg.FFmpegPath, log)
	direct := extract.NewDirectDownloader(httpClient, int(cfg.ChunkSize), log)
	engine := extract.NewEngine(cfg.StagingDir, cfg.MaxFileSize, ytdlp, cobalt, remuxer, direct, log)

	prober := probe.NewProber(cfg.FFprobePath, cfg.FFmpegPath, log)
	sender := relay.New(b, userStore, log)
	notifier := handlers.NewBotNotifier(b, log)

	ctrl := controller.New(ctx, controller.Options{
		Store:         progressStore,
		Users:         userStore,
		Acquirer:      engine,
		Enricher:      prober,
		Sender:        sender,
		Notifier:      notifier,
		Log:           log,
		Retention:     cfg.Retention,
		ChatEditEvery: cfg.ChatEditEvery,
		ProgressEvery: cfg.ProgressEvery,
		TaskTimeout:   cfg.ProcessTimeout,
		StagingDir:    cfg.StagingDir,
	})
	ctrl.SweepStaging()

	h := handlers.NewHandlers(ctrl, userStore, cfg.OwnerID, log)
	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, h.MainHandler)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.MainHandler)

	srv := api.NewServer(cfg.ListenAddr, ctrl, progressStore, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("web surface stopped", "err", err)
			cancel()
		}
	}()

	log.Infow("bot started", "listen", cfg.ListenAddr, "staging", cfg.StagingDir)
	b.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("web surface shutdown", "err", err)
	}
}

// buildProgressStore prefers Redis so progress survives restarts; with
// no Redis configured the in-memory store keeps a single process fully
// functional.
func buildProgressStore(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) types.ProgressStore {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-memory progress store")
		return store.NewMemoryProgressStore()
	}
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "telelink")
	if err != nil {
		log.Warnw("redis unavailable, using in-memory progress store", "err", err)
		return store.NewMemoryProgressStore()
	}
	return store.NewRedisProgressStore(rdb)
}
