package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulse/app/agent"
	"pulse/app/api"
	"pulse/app/middleware"
	"pulse/ingest"
	"pulse/model"
	"pulse/rebuild"
	"pulse/search"
	"pulse/store"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	datasetPath := filepath.Join(envOr("DATA_DIR", "data"), envOr("DATA_FILE", "events_raw")+".csv")

	pool := connectPostgres(ctx)
	vectorStore := buildVectorStore(ctx, pool)

	var feedbackStore store.FeedbackStorer
	if pool != nil {
		fs := store.NewFeedbackStore(pool)
		if err := fs.Init(ctx); err != nil {
			log.Fatal("error to create feedback table ", err)
		}
		feedbackStore = fs
	}

	var (
		embedder    = model.NewOllamaEmbedder()
		generator   = model.NewMistralClient()
		engine      = search.NewEngine(vectorStore, embedder)
		responder   = agent.NewResponder(engine, generator)
		chunker     = ingest.NewChunker(envInt("CHUNK_SIZE", ingest.DefaultChunkSize), envInt("CHUNK_OVERLAP", ingest.DefaultChunkOverlap))
		coordinator = rebuild.NewCoordinator(ingest.NewOpenAgendaClient(), embedder, vectorStore, chunker, datasetPath)
	)

	if err := coordinator.WarmStart(ctx); err != nil {
		s.logger.Error("warm start failed, serving without an index", "error", err.Error())
	}

	var (
		app             = fiber.New(config)
		checkHandler    = api.NewCheckHandler()
		chatHandler     = api.NewChatHandler(responder)
		rebuildHandler  = api.NewRebuildHandler(coordinator)
		feedbackHandler = api.NewFeedbackHandler(feedbackStore)
		userKey         = os.Getenv("API_KEY")
		adminKey        = os.Getenv("API_KEY_ADMIN")
		check           = app.Group("/check")
		apiv1           = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/chat", middleware.APIKeyAuth(userKey, adminKey), chatHandler.HandleChat)
	apiv1.Post("/feedback", middleware.APIKeyAuth(userKey, adminKey), feedbackHandler.HandleFeedback)
	apiv1.Post("/rebuild", middleware.AdminOnly(adminKey), rebuildHandler.HandleRebuild)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

// connectPostgres returns nil when no PG_HOST is configured; the
// feedback endpoint then answers 503 and the file index backend is used.
func connectPostgres(ctx context.Context) *pgxpool.Pool {
	host := os.Getenv("PG_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatal("error to connect to Postgres database ", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatal("error to connect to Postgres database ", err)
	}
	return pool
}

func buildVectorStore(ctx context.Context, pool *pgxpool.Pool) store.VectorStore {
	if os.Getenv("INDEX_BACKEND") == "postgres" {
		if pool == nil {
			log.Fatal("INDEX_BACKEND=postgres requires PG_* settings")
		}
		pg := store.NewPostgresStoreFromPool(pool)
		if err := pg.Init(ctx); err != nil {
			log.Fatal("error to create index tables ", err)
		}
		return pg
	}
	return store.NewFileStore(envOr("VECTORDB_PATH", "vectorDB"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
