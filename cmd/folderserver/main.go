// Sharing Configs reference folder server
//
// Serves a labelled folder tree over the remote folder API so the client
// and CLI can be exercised locally:
// - token authentication
// - read/write folder permissions
// - memory, local or S3 content storage
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sharingconfigs/sharingconfigs/internal/config"
	"github.com/sharingconfigs/sharingconfigs/internal/folderserver"
	"github.com/sharingconfigs/sharingconfigs/internal/logging"
	"github.com/sharingconfigs/sharingconfigs/internal/metrics"
	"github.com/sharingconfigs/sharingconfigs/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic("configuration error: " + err.Error())
	}
	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	// JSON logs unless LOG_FORMAT asks otherwise
	format := cfg.LogFormat
	if os.Getenv("LOG_FORMAT") == "" {
		format = "json"
	}
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: format,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("folder server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("label", cfg.Label))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := storage.NewBackend(ctx, cfg)
	if err != nil {
		logging.Fatal("storage init failed", zap.Error(err))
	}
	defer backend.Close()

	folders := folderserver.DemoFolders()
	if cfg.FolderTreeFile != "" {
		folders, err = folderserver.LoadFolders(cfg.FolderTreeFile)
		if err != nil {
			logging.Fatal("folder tree load failed", zap.Error(err))
		}
	}

	srv, err := folderserver.New(folderserver.Config{
		Label:      cfg.Label,
		Token:      cfg.APIKey,
		AuthScheme: cfg.AuthScheme,
		PublicURL:  cfg.PublicURL,
		Folders:    folders,
		Storage:    backend,
	})
	if err != nil {
		logging.Fatal("server init failed", zap.Error(err))
	}
	if err := srv.Init(ctx); err != nil {
		logging.Fatal("server init failed", zap.Error(err))
	}

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
		metricsServer.Close()
	}()

	logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}
