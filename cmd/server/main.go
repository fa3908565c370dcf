package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/omx-labs/storage-browser/internal/handlers"
	custommw "github.com/omx-labs/storage-browser/internal/middleware"
	"github.com/omx-labs/storage-browser/internal/services"
)

func main() {
	_ = godotenv.Load()

	log := newLogger(getEnv("LOG_LEVEL", "info"))

	store, err := services.NewRootStore(getEnv("DATA_DIR", "data") + "/storage-browser.db")
	if err != nil {
		log.Fatal().Err(err).Msg("open root store")
	}
	defer func() { _ = store.Close() }()

	factory := &services.MinioFactory{
		Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Secure:    getEnv("S3_SECURE", "false") == "true",
	}

	tokens := parseTokens(os.Getenv("API_TOKENS"))
	if len(tokens) == 0 {
		log.Fatal().Msg("API_TOKENS is required (comma-separated subject=token pairs)")
	}

	e := newServer(store, factory, tokens, log)

	addr := getEnv("ADDR", ":8080")
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("storage capability service listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func newServer(store *services.RootStore, factory services.ObjectStoreFactory, tokens map[string]string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	storage := services.NewStorageService(factory, log)
	rootsHandler := handlers.NewRootsHandler(store, storage, log)
	objectsHandler := handlers.NewObjectsHandler(store, storage, log)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(custommw.BearerAuth(tokens))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	storageGroup := e.Group("/api/v1/projects/:projectID/storage")
	storageGroup.GET("/roots", rootsHandler.ListRoots)
	storageGroup.POST("/roots", rootsHandler.CreateRoot)
	storageGroup.PATCH("/roots/:rootID", rootsHandler.UpdateRoot)
	storageGroup.DELETE("/roots/:rootID", rootsHandler.DeleteRoot)
	storageGroup.GET("/buckets", rootsHandler.ListBuckets)
	storageGroup.GET("/objects", objectsHandler.ListObjects)
	storageGroup.POST("/upload-url", objectsHandler.CreateUploadURL)
	storageGroup.POST("/download-url", objectsHandler.CreateDownloadURL)
	storageGroup.DELETE("/objects", objectsHandler.DeleteObject)

	return e
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// parseTokens reads comma-separated subject=token pairs.
func parseTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		subject, token, ok := strings.Cut(pair, "=")
		if !ok || subject == "" || token == "" {
			continue
		}
		tokens[subject] = token
	}
	return tokens
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
