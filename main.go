package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"todo-api/api"
	"todo-api/storage"
	"todo-api/trello"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("missing DATABASE_URL")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.Open(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		log.Fatal("missing APP_BASE_URL")
	}

	key := os.Getenv("TRELLO_API_KEY")
	token := os.Getenv("TRELLO_API_TOKEN")
	listID := os.Getenv("TRELLO_LIST_ID")
	if key == "" || token == "" || listID == "" {
		log.Fatal("missing Trello config")
	}
	cards := trello.New(key, token, listID)

	createRequired := false
	if v, err := strconv.ParseBool(os.Getenv("TRELLO_CREATE_REQUIRED")); err == nil {
		createRequired = v
	}

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "http://localhost:8080"
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{corsOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Static("/uploads", uploadDir)

	logger := log.New()
	api.Register(e, store, cards, api.Config{
		UploadDir:          uploadDir,
		PublicBaseURL:      baseURL,
		CardCreateRequired: createRequired,
	}, logger)

	listenAddr := ":3000"
	if v := os.Getenv("PORT"); v != "" {
		listenAddr = ":" + v
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
