// Package server wires the HTTP surface: the upload and export boundaries,
// the preset catalog API, and static serving of the public asset tree.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"slidecast/cache"
	"slidecast/config"
	"slidecast/core/assets"
	"slidecast/core/render"
	"slidecast/logger"
	"slidecast/storage"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	})

	// Create necessary directories if they don't exist.
	ensureDirExists(cfg.PublicDir)
	ensureDirExists(cfg.UploadDir)
	ensureDirExists(cfg.BgmDir)
	ensureDirExists(cfg.OutputDir)

	redisClient, err := cache.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	exportCache := cache.NewExportCache(redisClient, 24*time.Hour)

	publisher, err := storage.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO publisher: %v", err)
	}

	catalog, err := assets.NewPresetCatalog(cfg.BgmDir)
	if err != nil {
		log.Fatalf("Failed to initialize preset catalog: %v", err)
	}
	defer catalog.Close()

	resolver := assets.NewResolver(cfg.PublicDir, cfg.BgmDir, assets.ServerRender)
	engine := render.NewFFmpegEngine(cfg.FFmpegPath, cfg.PublicDir)
	orchestrator := render.NewOrchestrator(engine, cfg.OutputDir, cfg.RenderTimeout)
	store := storage.NewLocalStore(cfg.UploadDir)

	apiHandler := NewAPIHandler(store, resolver, orchestrator, catalog, exportCache, publisher, cfg)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// API endpoints
	router.HandleFunc("/api/upload", apiHandler.UploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/render", apiHandler.RenderHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/bgm", apiHandler.PresetsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/exports", apiHandler.ExportsHandler).Methods(http.MethodGet)

	// Static serving of the public asset tree
	static := NewStaticHandler(cfg.PublicDir)
	router.PathPrefix("/out/").Handler(static)
	router.PathPrefix("/uploads/").Handler(static)
	router.PathPrefix("/bgm/").Handler(static)

	server := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Render responses can take minutes; the per-stage render timeout
		// bounds them, not the connection write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", logger.ErrorField(err))
	}
}

// corsMiddleware allows the editing UI to call the API cross-origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ensureDirExists(dir string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create directory %s: %v", dir, err)
	}
}
