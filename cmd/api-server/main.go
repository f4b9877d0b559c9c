package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"bookshelf/internal/catalog"
	"bookshelf/internal/covers"
	"bookshelf/internal/events"
	"bookshelf/internal/history"
	"bookshelf/internal/library"
	"bookshelf/internal/middleware"
	"bookshelf/internal/search"
	"bookshelf/pkg/database"
	"bookshelf/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(middleware.CORS(cfg.CORSOrigin))
	router.Use(middleware.Identity(cfg.JWTSecret))

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Count(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Count(),
		})
	})

	catalogClient := catalog.NewClient(cfg.OpenLibraryURL)
	resolver := covers.NewResolver(cfg.OpenLibraryURL, cfg.CoversURL)
	libRepo := library.NewRepo(db)
	histRepo := history.NewRepo(db)

	searchSvc := search.NewService(catalogClient, libRepo, histRepo, cfg.CoversURL)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		searchSvc.Cache = search.NewCache(rdb, 30*time.Second)
		log.Printf("search response cache enabled via redis at %s", cfg.RedisAddr)
	}

	books := router.Group("/api/books")
	search.NewHandler(searchSvc).RegisterRoutes(books)
	covers.NewHandler(libRepo, resolver).RegisterRoutes(books)
	library.NewHandler(libRepo, resolver, hub).RegisterRoutes(books)
	history.NewHandler(histRepo).RegisterRoutes(books)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
