package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/gptstar/internal/agent"
	"github.com/jwebster45206/gptstar/internal/config"
	"github.com/jwebster45206/gptstar/internal/handlers"
	"github.com/jwebster45206/gptstar/internal/logger"
	"github.com/jwebster45206/gptstar/internal/middleware"
	"github.com/jwebster45206/gptstar/internal/services"
	"github.com/jwebster45206/gptstar/internal/services/events"
	redisstorage "github.com/jwebster45206/gptstar/internal/storage"
	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/jwebster45206/gptstar/pkg/game/sim"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/jwebster45206/gptstar/pkg/textfilter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Play one match against the simulated opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger.Setup(cfg))
		},
	}
}

// menuFor builds the action menu from the bot config.
func menuFor(bot config.Bot) (*actions.Menu, error) {
	names := bot.Actions
	if len(names) == 0 {
		names = append([]string(nil), actions.CoreActions...)
		if bot.Experimental {
			names = append(names, actions.ExperimentalActions...)
		}
	}
	return actions.DefaultRegistry().Menu(names...)
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("Starting GPTStar",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"difficulty", cfg.Bot.Difficulty)

	llm, err := services.NewLLMService(cfg, log)
	if err != nil {
		return err
	}
	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Minute)
	defer initCancel()
	if err := llm.InitModel(initCtx, cfg.ModelName); err != nil {
		return fmt.Errorf("failed to initialize model %s: %w", cfg.ModelName, err)
	}

	menu, err := menuFor(cfg.Bot)
	if err != nil {
		return err
	}

	opts := agent.Options{
		Provider:     cfg.LLMProvider,
		TickTimeout:  cfg.Bot.TickTimeout,
		Experimental: cfg.Bot.Experimental,
		Sanitizer:    textfilter.New(cfg.Bot.ChatFilterEnabled()),
	}

	var subscriber handlers.Subscriber
	if cfg.RedisURL != "" {
		store, err := redisstorage.NewRedisStorage(cfg.RedisURL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.WithError(log, err).Error("Error closing journal connection")
			}
		}()
		waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Minute)
		err = store.WaitForConnection(waitCtx)
		waitCancel()
		if err != nil {
			return fmt.Errorf("failed to connect to journal: %w", err)
		}
		broadcaster := events.NewBroadcaster(store.Client(), log)
		opts.Storage = store
		opts.Publisher = broadcaster
		subscriber = broadcaster
		log.Info("Journal connection established")
	}

	difficulty, err := sim.ParseDifficulty(cfg.Bot.Difficulty)
	if err != nil {
		return err
	}
	seed := cfg.Bot.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := sim.New(sim.Options{Seed: seed, Difficulty: difficulty})

	match := state.NewMatch(cfg.LLMProvider, cfg.ModelName, menu.Names())
	match.Difficulty = string(difficulty)
	matchLog := logger.WithMatchID(log, match.ID)

	a, err := agent.New(llm, menu, opts, matchLog)
	if err != nil {
		return err
	}
	driver := agent.NewDriver(a, g, match, agent.DriverOptions{
		StepLoops:       cfg.Bot.StepLoops,
		MaxIterations:   cfg.Bot.MaxIterations,
		Greeting:        cfg.Bot.GreetingEnabled(),
		JokeProbability: cfg.Bot.JokeProbability,
	}, matchLog)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		// the HTTP server follows the match
		defer cancel()
		return driver.Start(ctx)
	})

	if cfg.HTTPPort != "" {
		server := newServer(cfg, opts, subscriber, driver, log)
		group.Go(func() error {
			log.Info("Server starting", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			log.Info("Server is shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	m := driver.Match()
	log.Info("GPTStar exited", "match_id", m.ID.String(), "status", m.Status, "result", m.Result)
	if cfg.Environment != "production" {
		for _, line := range g.Chat() {
			fmt.Fprintln(os.Stdout, line)
		}
	}
	return nil
}

func newServer(cfg *config.Config, opts agent.Options, subscriber handlers.Subscriber, driver *agent.Driver, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(opts.Storage, driver, log))

	if opts.Storage != nil {
		matchesHandler := handlers.NewMatchesHandler(opts.Storage, log)
		mux.Handle("/v1/matches", matchesHandler)
		mux.Handle("/v1/matches/", matchesHandler)
	}
	if subscriber != nil {
		mux.Handle("/v1/events/matches/", handlers.NewEventsHandler(subscriber, log))
	}

	return &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     middleware.Logger(mux),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the event stream stays open
		IdleTimeout: 60 * time.Second,
	}
}
