package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/handshake/internal/app"
	"github.com/dropDatabas3/handshake/internal/config"
	httpserver "github.com/dropDatabas3/handshake/internal/http"
	"github.com/dropDatabas3/handshake/internal/http/middlewares"
	"github.com/dropDatabas3/handshake/internal/http/router"
	"github.com/dropDatabas3/handshake/internal/metrics"
	"github.com/dropDatabas3/handshake/internal/observability/logger"
)

// Inyectadas en build via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "handshake",
		Short:        "Servicio de autenticación delegada (OAuth1 + OpenID 2.0)",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "ruta del config YAML")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión del binario",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("handshake %s (%s)\n", version, commit)
		},
	}

	root.AddCommand(serve, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	// .env es opcional; en prod las vars vienen del entorno real
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "handshake",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()

	// El paquete secretbox resuelve la master key desde el entorno.
	if cfg.Security.SecretBoxMasterKey != "" {
		_ = os.Setenv("SECRETBOX_MASTER_KEY", cfg.Security.SecretBoxMasterKey)
	}

	if err := metrics.RegisterFlow(nil); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	handler := router.New(router.Deps{
		Registry: container.Registry,
		Store:    container.Store,
		Session: middlewares.SessionConfig{
			Secret:     []byte(cfg.Session.Secret),
			TTL:        cfg.SessionTTL(),
			CookieName: cfg.Session.CookieName,
			SameSite:   cfg.Session.SameSite,
			Secure:     cfg.Session.Secure,
		},
		Version: version,
	})

	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.L().Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.L().Error("server exited with error", logger.Err(err))
		return err
	}
	return nil
}
