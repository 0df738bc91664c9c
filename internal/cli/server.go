package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atlas-quiz-service/internal/app"
	"atlas-quiz-service/internal/config"
	"atlas-quiz-service/internal/domain"
	"atlas-quiz-service/internal/infra/fsassets"
	"atlas-quiz-service/internal/infra/memory"
	pgassets "atlas-quiz-service/internal/infra/postgres"
	redisinfra "atlas-quiz-service/internal/infra/redis"
	transport "atlas-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.AssetLoader
	switch {
	case pool != nil:
		loader = pgassets.NewAssetLoader(pool)
	case cfg.Assets.Dir != "":
		loader = fsassets.New(cfg.Assets.Dir, sampleCatalog())
	default:
		loader = memory.NewStaticAssetLoader(sampleCatalog(), sampleImages())
	}

	assetTTL := config.TTLDuration(cfg.Assets.TTL, 10*time.Minute)
	var assetRepo app.AssetRepository
	if redisClient != nil {
		assetRepo = redisinfra.NewAssetRepository(redisClient, loader, assetTTL)
	} else {
		assetRepo = memory.NewAssetRepository(loader, assetTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewGameService(store, assetRepo)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting map quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog provides a minimal demo catalog; swap the loader with a
// Postgres-backed one in production.
func sampleCatalog() map[string]string {
	return map[string]string{
		"erangel": "Erangel",
		"miramar": "Miramar",
		"sanhok":  "Sanhok",
		"vikendi": "Vikendi",
		"karakin": "Karakin",
		"taego":   "Taego",
		"deston":  "Deston",
		"rondo":   "Rondo",
	}
}

func sampleImages() []domain.ImageRef {
	return []domain.ImageRef{
		{Path: "assets/erangel/pochinki.png", MapID: "erangel"},
		{Path: "assets/erangel/school.png", MapID: "erangel"},
		{Path: "assets/miramar/pecado.png", MapID: "miramar"},
		{Path: "assets/sanhok/bootcamp.png", MapID: "sanhok"},
		{Path: "assets/vikendi/castle.png", MapID: "vikendi"},
	}
}
