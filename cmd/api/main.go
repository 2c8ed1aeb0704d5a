package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/database"
	"github.com/scythe504/partybox-server/internal/game"
	"github.com/scythe504/partybox-server/internal/moderation"
	"github.com/scythe504/partybox-server/internal/ratelimit"
	"github.com/scythe504/partybox-server/internal/rules/alibi"
	"github.com/scythe504/partybox-server/internal/rules/catalog"
	"github.com/scythe504/partybox-server/internal/rules/trivia"
	"github.com/scythe504/partybox-server/internal/server"
	"github.com/scythe504/partybox-server/internal/websocket"
	"github.com/scythe504/partybox-server/internal/workers"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := catalog.NewRegistryWithBank(cfg.EnabledGames, cfg.DefaultGame, cfg.TriviaBank)
	if err != nil {
		return fmt.Errorf("game registry: %w", err)
	}
	moderator, err := moderation.Default('*')
	if err != nil {
		return fmt.Errorf("moderator: %w", err)
	}

	clock := clockwork.NewRealClock()
	limiter := ratelimit.New(clock, cfg.RateLimit, cfg.RateWindow,
		alibi.EventAlibi, alibi.EventQuestion, alibi.EventVote, alibi.EventSkipTutorial,
		trivia.EventAnswer,
		internal.EventStartGame, internal.GameUpdateSettings, internal.GameVIPStart,
	)

	sup := workers.NewSupervisor().Add(
		workers.NewLimiterJanitor(limiter, clock, cfg.RateWindow),
	)

	opts := game.Options{
		Clock:         clock,
		Moderator:     moderator,
		Limiter:       limiter,
		IdleTimeout:   cfg.RoomIdleTimeout,
		NameReconnect: cfg.NameReconnect,
	}

	var archive server.Archive
	if cfg.ArchiveEnabled() {
		db, err := database.New(ctx, cfg.DatabaseURL())
		if err != nil {
			return err
		}
		defer db.Close()
		archiver := workers.NewArchiver(db, cfg.ArchiveQueue, cfg.ArchiveTimeout)
		opts.Recorder = archiver
		archive = db
		sup.Add(archiver)
	} else {
		log.Warn().Msg("[run] no database configured, match archive disabled")
	}

	hub := websocket.NewHub()
	manager := game.NewManager(registry, hub, opts)
	sup.Add(workers.NewIdleReaper(manager, clock, cfg.ReapInterval))

	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		sup.Run(ctx)
	}()

	srv := server.NewServer(cfg, manager, hub, archive)
	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Strs("games", registry.Keys()).Msg("[run] server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("[run] shutting down gracefully")
	case err := <-errChan:
		stop()
		<-supervised
		manager.Shutdown()
		hub.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Rooms first so clients see room:ended before their sockets close.
	manager.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[run] http shutdown failed")
	}
	hub.Close()
	<-supervised

	log.Info().Msg("[run] server stopped cleanly")
	return nil
}

func setupLogger(cfg internal.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
