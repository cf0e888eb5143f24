package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"book-duel-service/internal/app"
	"book-duel-service/internal/config"
	"book-duel-service/internal/domain"
	"book-duel-service/internal/infra/memory"
	"book-duel-service/internal/infra/natsbus"
	"book-duel-service/internal/infra/postgres"
	redisinfra "book-duel-service/internal/infra/redis"
	"book-duel-service/internal/match"
	"book-duel-service/internal/scheduler"
	transport "book-duel-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the match server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func rulesFrom(cfg config.Config) match.Rules {
	rules := match.DefaultRules()
	if cfg.Match.QuestionCount > 0 {
		rules.QuestionCount = cfg.Match.QuestionCount
	}
	rules.TurnDuration = config.TTLDuration(cfg.Match.Turn, rules.TurnDuration)
	rules.RevealDuration = config.TTLDuration(cfg.Match.Reveal, rules.RevealDuration)
	rules.Grace = config.TTLDuration(cfg.Reaper.Grace, rules.Grace)
	return rules
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	rules := rulesFrom(cfg)
	difficulty, err := domain.ParseDifficulty(cfg.Match.DefaultDifficulty, domain.DifficultyMedium)
	if err != nil {
		return err
	}
	clock := clockwork.NewRealClock()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	opts := []app.Option{
		app.WithClock(clock),
		app.WithRules(rules),
		app.WithDefaultDifficulty(difficulty),
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(SampleBanks())
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewBankLoader(pool)

		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		opts = append(opts, app.WithResultSinks(postgres.NewArchive(db)))
	}

	if cfg.NATS.URL != "" {
		nc, err := natsbus.Connect(cfg.NATS.URL, config.TTLDuration(cfg.NATS.ReconnectWait, 2*time.Second))
		if err != nil {
			return err
		}
		defer nc.Drain()
		opts = append(opts, app.WithResultSinks(natsbus.NewResultPublisher(nc, cfg.NATS.SubjectPrefix)))
	}

	bankTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var banks app.BankRepository
	var store app.MatchRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
		store = redisinfra.NewMatchStore(redisClient)
		opts = append(opts, app.WithBroadcasters(redisinfra.NewSnapshotPublisher(redisClient)))
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
		store = memory.NewMatchStore()
	}

	seed := cfg.Questions.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	hub := app.NewHub()
	service := app.NewMatchService(
		store,
		app.NewShuffledSource(banks, seed),
		memory.NewStaticRoster(cfg.Roster.Eligible),
		hub,
		opts...,
	)

	if redisClient != nil {
		relay := redisinfra.NewSnapshotRelay(redisClient, hub)
		go func() {
			if err := relay.Run(ctx, nil); err != nil {
				log.Error().Err(err).Msg("snapshot relay stopped")
			}
		}()
	}

	reaper, err := scheduler.NewReaper(service, config.TTLDuration(cfg.Reaper.Interval, 5*time.Second), clock)
	if err != nil {
		return err
	}
	if err := reaper.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = reaper.Shutdown() }()

	mux := http.NewServeMux()
	transport.NewRESTHandler(service).Register(mux)
	mux.HandleFunc("GET /ws", transport.NewWSHandler(service).ServeWS)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     c.Handler(mux),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket connections stay open for the whole match
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", finalPort).
			Bool("redis", redisClient != nil).
			Bool("postgres", cfg.Postgres.URL != "").
			Bool("nats", cfg.NATS.URL != "").
			Int("questions", rules.QuestionCount).
			Dur("turn", rules.TurnDuration).
			Msg("starting book duel service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
