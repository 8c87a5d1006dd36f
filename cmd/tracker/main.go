package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-tracker-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/geolocation"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/kvstore"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/lifecycle"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/logger"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/permission"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/reachability"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/remote"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/repository/keyvalue"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/service/coordinator"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/service/syncengine"
	trackingService "github.com/cmlabs-hris/attendance-tracker-go/internal/service/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			fmt.Println("Error issuing token:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("Tracker stopped with error", "error", err)
		os.Exit(1)
	}
}

// issueToken prints a device token for the employee given by -employee
func issueToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	employeeID := fs.String("employee", "", "employee ID the device tracks for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *employeeID == "" {
		return errors.New("-employee is required")
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.DeviceExpiration)
	token, expiresAt, err := JWTService.GenerateDeviceToken(*employeeID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
	return nil
}

func run(cfg *config.Config) error {
	logWriter := logger.Writer(cfg.Log)
	defer logWriter.Close()
	logger.Setup(logWriter, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store kvstore.Store
	switch cfg.Storage.Type {
	case "file":
		fileStore, err := kvstore.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("initialize file storage: %w", err)
		}
		store = fileStore
	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.Options{
			MaxConns:          cfg.Database.MaxConns,
			ConnectTimeout:    10 * time.Second,
			HealthCheckPeriod: time.Minute,
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		pgStore := kvstore.NewPostgresStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate key-value table: %w", err)
		}
		store = pgStore
	case "redis":
		client, err := kvstore.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		store = kvstore.NewRedisStore(client)
	case "memory":
		slog.Warn("Using in-memory storage, queued records are lost on restart")
		store = kvstore.NewMemoryStore()
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	slog.Info("Storage ready", "type", cfg.Storage.Type)

	queueRepo := keyvalue.NewOfflineQueueRepository(store)
	sessionRepo := keyvalue.NewActiveSessionRepository(store)

	hub := sse.NewHub()

	// Native-layer bridges, fed through the device endpoints
	positions := geolocation.NewBridge()
	appState := lifecycle.NewNotifier(lifecycle.StateActive)
	network := reachability.NewNotifier(true)
	permissions := permission.NewRegistry(func(kind permission.Kind) {
		hub.Broadcast(sse.Event{
			Type: sse.EventPermissionRequested,
			Data: map[string]string{"kind": string(kind)},
		})
	})

	trackerCfg := cfg.Tracker.Domain()
	remoteClient := remote.NewClient(ctx, cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout)
	syncSvc := syncengine.NewSyncService(trackerCfg, remoteClient, queueRepo, hub)
	scheduler := cron.NewScheduler()
	trackerSvc := trackingService.NewTrackingService(
		trackerCfg,
		positions,
		permissions,
		syncSvc,
		sessionRepo,
		scheduler,
		appState,
		hub,
	)

	coord := coordinator.NewCoordinator(trackerCfg, trackerSvc, syncSvc, appState, network, scheduler)
	coord.Start(ctx)
	defer coord.Shutdown()

	if cfg.Remote.ProbeInterval > 0 {
		prober := reachability.NewProber(cfg.Remote.ProbeURL, cfg.Remote.ProbeInterval, cfg.Remote.Timeout, network)
		go prober.Run(ctx)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.DeviceExpiration)
	trackingHandler := appHTTP.NewTrackingHandler(trackerSvc, syncSvc, JWTService, hub)
	deviceHandler := appHTTP.NewDeviceHandler(positions, appState, network, permissions)

	router := appHTTP.NewRouter(logWriter, cfg.App, JWTService, trackingHandler, deviceHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
