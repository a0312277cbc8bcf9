package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/config"
	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/messages"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/scoring"
	"github.com/cbodonnell/platespotter/pkg/session"
	"github.com/cbodonnell/platespotter/pkg/version"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "platespotter",
		Short:         "Spot license plates from the terminal.",
		Version:       version.Get(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetVersionTemplate("platespotter {{.Version}}\n")
	root.AddCommand(newPlayCmd(), newWatchCmd(), newRegionsCmd())
	return root
}

// prepare loads the environment into cfg, validates it and sets up logging.
func prepare(cmd *cobra.Command, cfg *config.Config) error {
	if err := config.BindEnv(cmd); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.SetupLogging()
}

func newPlayCmd() *cobra.Command {
	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a session in the terminal, offline or against --database-url",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, cfg)
		},
	}
	config.AddCommonFlags(cmd.Flags(), cfg)
	config.AddClientFlags(cmd.Flags(), cfg)
	quietLogs(cmd)
	config.NormalizeFlags(cmd.Flags())
	return cmd
}

// quietLogs lowers the default log level so logs do not clutter the terminal.
func quietLogs(cmd *cobra.Command) {
	f := cmd.Flags().Lookup("log-level")
	f.DefValue = "warn"
	_ = f.Value.Set("warn")
}

func play(ctx context.Context, cfg *config.Config) error {
	repository, err := repositories.Open(ctx, cfg.DatabaseURL, repositories.OpenOptions{
		FirebaseCredentialsFile: cfg.FirebaseCredentials,
	})
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	if repository != nil {
		defer repository.Close(context.Background())
	}

	rules, err := cfg.ParseBonusRules()
	if err != nil {
		return err
	}
	regions := catalog.Default()
	m := session.NewManager(ctx, session.NewManagerOptions{
		Engine:     game.NewEngine(scoring.NewCalculator(regions, rules)),
		Repository: repository,
		Sync:       cfg.SyncOptions(),
	})
	defer m.Close()

	if err := m.Bootstrap(ctx, cfg.Owner); err != nil {
		return err
	}
	return newTerminal(m, regions, os.Stdin, os.Stdout).Run(ctx)
}

func newWatchCmd() *cobra.Command {
	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every change of your session on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", "warn", "log level (env: PLATESPOTTER_LOG_LEVEL)")
	config.AddClientFlags(cmd.Flags(), cfg)
	config.NormalizeFlags(cmd.Flags())
	return cmd
}

// socketURL turns the server URL into the session websocket URL.
func socketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", serverURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/session/ws"
	return u.String(), nil
}

func watch(ctx context.Context, cfg *config.Config) error {
	addr, err := socketURL(cfg.ServerURL)
	if err != nil {
		return err
	}
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	log.Info("Connecting to WebSocket server at %s", addr)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, header)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read from server: %w", err)
		}
		msg, err := messages.DeserializeMessage(b)
		if err != nil {
			log.Error("Failed to deserialize message: %v", err)
			continue
		}
		if err := printMessage(os.Stdout, msg); err != nil {
			log.Error("Failed to handle %s message: %v", msg.Type, err)
		}
	}
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions that can be spotted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printRegions(cmd.OutOrStdout(), catalog.Default().Regions())
			return nil
		},
	}
}
