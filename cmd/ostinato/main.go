// Command ostinato is the main entry point for the Ostinato soundboard bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/ostinato/internal/assets"
	"github.com/MrWong99/ostinato/internal/catalog"
	"github.com/MrWong99/ostinato/internal/config"
	discordbot "github.com/MrWong99/ostinato/internal/discord"
	"github.com/MrWong99/ostinato/internal/effects"
	"github.com/MrWong99/ostinato/internal/health"
	"github.com/MrWong99/ostinato/internal/observe"
	"github.com/MrWong99/ostinato/internal/playback"
	"github.com/MrWong99/ostinato/internal/query"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ostinato: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ostinato: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("ostinato starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "ostinato",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Catalog store ─────────────────────────────────────────────────────────
	readyChecks := map[string]health.Check{}
	var store catalog.Store
	if cfg.Database.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			slog.Error("failed to create database pool", "err", err)
			return 1
		}
		defer pool.Close()

		pg := catalog.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "err", err)
			return 1
		}
		store = pg
		readyChecks["database"] = pool.Ping
		slog.Info("catalog ready", "backend", "postgres")
	} else {
		store = catalog.NewMemStore()
		slog.Info("catalog ready", "backend", "memory")
	}

	// ── Audio pipeline & asset storage ────────────────────────────────────────
	pipeline := effects.NewPipeline(&effects.FFmpeg{Path: cfg.Assets.FFmpegPath})
	manager, err := assets.NewManager(cfg.Assets.MediaDir, store, pipeline)
	if err != nil {
		slog.Error("failed to initialise asset storage", "err", err)
		return 1
	}

	// ── Query cache ───────────────────────────────────────────────────────────
	ranker := query.NewRanker(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	cache := query.NewCache(query.CacheConfig{
		Fetcher:     store,
		Ranker:      ranker,
		IdleTimeout: cfg.Cache.IdleTimeout.Std(),
		Metrics:     metrics,
	})
	defer cache.Close()

	// ── Discord bot & orchestrator ────────────────────────────────────────────
	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:         cfg.Discord.Token,
		CommandPrefix: cfg.Discord.CommandPrefix,
	}, store, cache)
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
	}()

	guard := discordbot.NewVoiceGuard(bot.Session())
	orchestrator := playback.New(playback.Config{
		Resolver:     cache,
		Assets:       manager,
		Pipeline:     pipeline,
		Platform:     bot.Platform(),
		Capabilities: guard,
		VoiceStates:  guard,
		Effects: effects.Effects{
			ClippingThreshold: cfg.Playback.ClippingThreshold,
			Volume:            cfg.Playback.Volume,
		},
		Metrics: metrics,
	})
	defer orchestrator.Close()
	bot.SetOrchestrator(orchestrator)

	readyChecks["discord"] = func(context.Context) error {
		if bot.Session().State.User == nil {
			return errors.New("gateway not ready")
		}
		return nil
	}

	// ── Diagnostics server: /metrics, /healthz, /readyz ───────────────────────
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(readyChecks).Register(mux)

	diag := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}
	go func() {
		if err := diag.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("diagnostics server error", "err", err)
		}
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := diag.Shutdown(shutdownCtx); err != nil {
		slog.Warn("diagnostics server shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
