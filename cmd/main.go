package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"zentask/zentask/broker"
	"zentask/zentask/config"
	"zentask/zentask/database"
	"zentask/zentask/middleware"
	"zentask/zentask/routes"
	"zentask/zentask/services"
	"zentask/zentask/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:   "zentask",
		Short: "ZenTask task ordering and sync server",
	}
	root.AddCommand(serveCommand(), migrateCommand(), demoCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(config.Load())
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if !cfg.DatabaseConfigured() {
				return errors.New("no database configured")
			}
			db, err := database.Setup(cfg)
			if err != nil {
				return err
			}
			db.Close()
			return nil
		},
	}
}

func demoCommand() *cobra.Command {
	demo := &cobra.Command{
		Use:   "demo",
		Short: "Switch the persistent demo mode on or off",
	}
	demo.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Force the local mirror store on every start",
			RunE: func(cmd *cobra.Command, args []string) error {
				storage, err := store.NewFileStorage(config.Load().MirrorDir)
				if err != nil {
					return err
				}
				if err := store.EnableDemoMode(storage); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Demo mode enabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Return to the configured store mode",
			RunE: func(cmd *cobra.Command, args []string) error {
				storage, err := store.NewFileStorage(config.Load().MirrorDir)
				if err != nil {
					return err
				}
				if err := store.DisableDemoMode(storage); err != nil {
					return err
				}
				if err := store.ClearMirrorUser(storage); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Demo mode disabled")
				return nil
			},
		},
	)
	return demo
}

func newBus(cfg config.Config) broker.Bus {
	if cfg.NatsURL == "" {
		return broker.NewLocalBus()
	}
	bus, err := broker.NewNatsBus(cfg.NatsURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to NATS at %s: %v", cfg.NatsURL, err)
		log.Println("Falling back to in-process change notifications")
		return broker.NewLocalBus()
	}
	return bus
}

func serve(cfg config.Config) error {
	storage, err := store.NewFileStorage(cfg.MirrorDir)
	if err != nil {
		return fmt.Errorf("failed to open local storage: %w", err)
	}

	var db *database.Database
	if store.ResolveMode(cfg, storage) == store.ModeRemote {
		db, err = database.Setup(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
	}

	bus := newBus(cfg)
	defer bus.Close()
	documents, err := store.New(cfg, db, bus, storage)
	if err != nil {
		return err
	}
	defer documents.Close()

	webSocketService := services.NewWebSocketService(middleware.AllowedOrigins(cfg.AllowedOrigins))
	services.WebSocketServiceInstance = webSocketService

	sessions := services.NewSessionManager(documents, webSocketService, cfg)
	services.SessionManagerInstance = sessions
	webSocketService.SetSessionManager(sessions)
	webSocketService.Start()
	defer webSocketService.Stop()
	defer sessions.CloseAll()

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpirationHours)
	services.AuthServiceInstance = authService

	if _, profile, err := authService.RestoreMirrorUser(storage, documents.Mode()); err == nil {
		sessions.Start(profile)
		log.Printf("Restored demo session for %s", profile.UID)
	}

	router := routes.NewRouter(routes.Dependencies{
		DB:             db,
		Storage:        storage,
		AuthService:    authService,
		UserService:    services.UserServiceInstance,
		Sessions:       sessions,
		WebSocket:      webSocketService,
		AllowedOrigins: cfg.AllowedOrigins,
		Debug:          cfg.AppEnv == "development",
	})

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server is running on port %s", cfg.AppPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	return nil
}
