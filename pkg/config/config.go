package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/scoring"
	"github.com/cbodonnell/platespotter/pkg/session"
	"github.com/cbodonnell/platespotter/pkg/workers"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variable of every flag, e.g.
// PLATESPOTTER_DATABASE_URL for --database-url.
const EnvPrefix = "PLATESPOTTER"

var knownSchemes = []string{"memory", "sqlite", "postgres", "postgresql", "firestore"}

type Config struct {
	LogLevel    string
	DatabaseURL string
	// FirebaseProjectID enables sign-in with Firebase ID tokens
	FirebaseProjectID   string
	FirebaseCredentials string
	BonusRules          []string
	SyncMaxRetries      uint
	SyncInitialBackoff  time.Duration

	// server
	Bind           string
	Port           int
	TLSCert        string
	TLSKey         string
	AllowOrigin    string
	DevOwner       string
	SessionTimeout time.Duration

	// client
	ServerURL string
	Token     string
	Owner     string
}

// AddCommonFlags registers the flags shared by every command.
func AddCommonFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: error, warn, info, debug or trace (env: PLATESPOTTER_LOG_LEVEL)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "memory://, sqlite://path, postgresql://... or firestore://project-id; empty keeps sessions local (env: PLATESPOTTER_DATABASE_URL)")
	fs.StringVar(&cfg.FirebaseCredentials, "firebase-credentials", "", "path to a Firebase service account key (env: PLATESPOTTER_FIREBASE_CREDENTIALS)")
	fs.StringSliceVar(&cfg.BonusRules, "bonus-rule", nil, "score multiplier for a player name as name=multiplier, repeatable (env: PLATESPOTTER_BONUS_RULE)")
	fs.UintVar(&cfg.SyncMaxRetries, "sync-max-retries", workers.DefaultSyncMaxRetries, "retries of a failed remote write (env: PLATESPOTTER_SYNC_MAX_RETRIES)")
	fs.DurationVar(&cfg.SyncInitialBackoff, "sync-initial-backoff", workers.DefaultSyncInitialBackoff, "delay before the first retry of a remote write (env: PLATESPOTTER_SYNC_INITIAL_BACKOFF)")
}

// AddServerFlags registers the flags of the serve command.
func AddServerFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: PLATESPOTTER_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: PLATESPOTTER_PORT)")
	fs.StringVar(&cfg.TLSCert, "tls-cert", "", "path to tls certificate (env: PLATESPOTTER_TLS_CERT)")
	fs.StringVar(&cfg.TLSKey, "tls-key", "", "path to tls keyfile (env: PLATESPOTTER_TLS_KEY)")
	fs.StringVar(&cfg.AllowOrigin, "allow-origin", "", "origin allowed to call the API from a browser (env: PLATESPOTTER_ALLOW_ORIGIN)")
	fs.StringVar(&cfg.FirebaseProjectID, "firebase-project-id", "", "verify bearer tokens as Firebase ID tokens of this project (env: PLATESPOTTER_FIREBASE_PROJECT_ID)")
	fs.StringVar(&cfg.DevOwner, "dev-owner", "", "accept any bearer token as this user, for development only (env: PLATESPOTTER_DEV_OWNER)")
	fs.DurationVar(&cfg.SessionTimeout, "session-timeout", session.DefaultIdleTimeout, "time before idle sessions are unloaded (env: PLATESPOTTER_SESSION_TIMEOUT)")
}

// AddClientFlags registers the flags of the client commands.
func AddClientFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ServerURL, "server-url", "http://localhost:8080", "URL of the server (env: PLATESPOTTER_SERVER_URL)")
	fs.StringVar(&cfg.Token, "token", "", "bearer token sent to the server (env: PLATESPOTTER_TOKEN)")
	fs.StringVar(&cfg.Owner, "owner", "", "user whose session is played; empty plays anonymously (env: PLATESPOTTER_OWNER)")
}

// BindEnv fills every flag of cmd that was not set on the command line from
// its PLATESPOTTER_ environment variable.
func BindEnv(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("invalid value for %s: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

// NormalizeFlags lets flags be written with underscores.
func NormalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func (c *Config) Validate() error {
	if _, err := log.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Port != 0 && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DatabaseURL != "" {
		scheme, _, ok := strings.Cut(c.DatabaseURL, "://")
		if !ok || !isKnownScheme(scheme) {
			return fmt.Errorf("invalid --database-url %q: scheme must be one of %s", c.DatabaseURL, strings.Join(knownSchemes, ", "))
		}
	}
	if _, err := c.ParseBonusRules(); err != nil {
		return err
	}
	if c.SyncInitialBackoff < 0 {
		return fmt.Errorf("invalid --sync-initial-backoff: %s", c.SyncInitialBackoff)
	}
	if c.SessionTimeout < 0 {
		return fmt.Errorf("invalid --session-timeout: %s", c.SessionTimeout)
	}
	if c.FirebaseProjectID != "" && c.DevOwner != "" {
		return errors.New("--firebase-project-id and --dev-owner cannot be used together")
	}
	return nil
}

func isKnownScheme(scheme string) bool {
	for _, s := range knownSchemes {
		if s == scheme {
			return true
		}
	}
	return false
}

func (c *Config) ParseBonusRules() (scoring.BonusRules, error) {
	return scoring.ParseBonusRules(c.BonusRules)
}

// SetupLogging installs the default logger at the configured level.
func (c *Config) SetupLogging() error {
	level, err := log.ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetDefaultLogger(log.New(os.Stdout, "", log.DefaultLoggerFlag, level))
	log.Debug("Log level set to %s", level)
	return nil
}

// SyncOptions returns the sync settings of session managers.
func (c *Config) SyncOptions() session.SyncOptions {
	return session.SyncOptions{
		MaxRetries:     c.SyncMaxRetries,
		InitialBackoff: c.SyncInitialBackoff,
	}
}

// Scheme is the URL scheme the server is reachable with.
func (c *Config) Scheme() string {
	if c.TLSCert != "" && c.TLSKey != "" {
		return "https"
	}
	return "http"
}
