package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/platespotter/pkg/api"
	"github.com/cbodonnell/platespotter/pkg/auth"
	authproviders "github.com/cbodonnell/platespotter/pkg/auth/providers"
	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/clients"
	"github.com/cbodonnell/platespotter/pkg/config"
	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/scoring"
	"github.com/cbodonnell/platespotter/pkg/session"
	"github.com/cbodonnell/platespotter/pkg/version"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "platespotter-server",
		Short:         "Serves license plate spotting sessions over HTTP.",
		Version:       version.Get(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetVersionTemplate("platespotter-server {{.Version}}\n")
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindEnv(cmd); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.SetupLogging(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	config.AddCommonFlags(cmd.Flags(), cfg)
	config.AddServerFlags(cmd.Flags(), cfg)
	config.NormalizeFlags(cmd.Flags())
	return cmd
}

func newAuthProvider(ctx context.Context, cfg *config.Config) (authproviders.AuthProvider, error) {
	switch {
	case cfg.FirebaseProjectID != "":
		app, err := auth.NewFirebaseApp(ctx, auth.FirebaseOptions{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentials,
		})
		if err != nil {
			return nil, err
		}
		provider, err := authproviders.NewFirebaseAuthProvider(ctx, app)
		if err != nil {
			return nil, err
		}
		log.Info("Verifying Firebase ID tokens of project %s", cfg.FirebaseProjectID)
		return provider, nil
	case cfg.DevOwner != "":
		log.Warn("Accepting any bearer token as %s, do not use in production", cfg.DevOwner)
		return authproviders.NewStaticAuthProvider(authproviders.NewStaticAuthProviderOptions{Owner: cfg.DevOwner}), nil
	default:
		log.Info("Sign-in disabled, every caller plays as a guest")
		return nil, nil
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info("Starting server version %s", version.Get())

	repository, err := repositories.Open(ctx, cfg.DatabaseURL, repositories.OpenOptions{
		FirebaseCredentialsFile: cfg.FirebaseCredentials,
	})
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	if repository != nil {
		defer repository.Close(context.Background())
	}

	authProvider, err := newAuthProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create auth provider: %w", err)
	}

	rules, err := cfg.ParseBonusRules()
	if err != nil {
		return err
	}
	regions := catalog.Default()
	engine := game.NewEngine(scoring.NewCalculator(regions, rules))

	registry := session.NewRegistry(ctx, session.NewRegistryOptions{
		Engine:        engine,
		Catalog:       regions,
		Repository:    repository,
		ClientManager: clients.NewClientManager(),
		Sync:          cfg.SyncOptions(),
		IdleTimeout:   cfg.SessionTimeout,
	})
	defer registry.Close()
	go registry.StartReaper(ctx, reapInterval(cfg.SessionTimeout))

	serverOpts := api.NewAPIServerOptions{
		Bind:         cfg.Bind,
		Port:         cfg.Port,
		AuthProvider: authProvider,
		Registry:     registry,
		AllowOrigin:  cfg.AllowOrigin,
	}
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		serverOpts.TLS = &api.TLSConfig{
			CertFile: cfg.TLSCert,
			KeyFile:  cfg.TLSKey,
		}
	}
	server := api.NewAPIServer(serverOpts)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server: %v", err)
	}
	return <-errChan
}

func reapInterval(timeout time.Duration) time.Duration {
	interval := timeout / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	return interval
}
