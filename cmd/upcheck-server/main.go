package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"upcheck/internal/auth"
	"upcheck/internal/notify"
	"upcheck/internal/server"
	"upcheck/internal/shared"
	"upcheck/internal/storage"
	"upcheck/internal/worker"
)

const shutdownTimeout = 5 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := shared.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		logger.Error("open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	tokens := auth.NewService(store, cfg.TokenTTL)
	api := server.NewAPI(store, tokens, cfg, logger)
	dispatcher := api.Dispatcher()

	sender := notify.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromPhone, cfg.SMSCountryPrefix)
	checks := worker.New(store, sender, logger.With("component", "worker"), cfg.WorkerInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		checks.Run(ctx)
	}()

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: dispatcher}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.EnvName)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	var httpsSrv *http.Server
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		httpsSrv = &http.Server{Addr: cfg.HTTPSAddr, Handler: dispatcher}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("https server listening", "addr", cfg.HTTPSAddr, "env", cfg.EnvName)
			if err := httpsSrv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("https server", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if httpsSrv != nil {
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("https shutdown", "error", err)
		}
	}
	wg.Wait()
}

func openStore(cfg *shared.Config) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, err
			}
		}
		db, err := storage.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteStore(db), func() { db.Close() }, nil
	case "file":
		fs, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		return nil, nil, errors.New("unknown store backend " + cfg.StoreBackend)
	}
}
