package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cbodonnell/platespotter/pkg/api/handlers"
	"github.com/cbodonnell/platespotter/pkg/api/middleware"
	authproviders "github.com/cbodonnell/platespotter/pkg/auth/providers"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/session"
	"github.com/gorilla/mux"
	"nhooyr.io/websocket"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Bind string
	Port int
	TLS  *TLSConfig
	// AuthProvider may be nil, in which case every caller is a guest
	AuthProvider authproviders.AuthProvider
	Registry     *session.Registry
	// AllowOrigin is the origin allowed to call the API from a browser
	AllowOrigin string
}

// NewRouter builds the HTTP routes of the API.
func NewRouter(opts NewAPIServerOptions) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger, middleware.NewCORSMiddleware(opts.AllowOrigin))

	router.HandleFunc("/healthz", handlers.HandleHealthz()).Methods(http.MethodGet)
	router.HandleFunc("/version", handlers.HandleVersion()).Methods(http.MethodGet)
	router.HandleFunc("/regions", handlers.HandleListRegions(opts.Registry)).Methods(http.MethodGet)
	// preflight requests never carry credentials
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	var acceptOptions *websocket.AcceptOptions
	if host := originHost(opts.AllowOrigin); host != "" {
		acceptOptions = &websocket.AcceptOptions{OriginPatterns: []string{host}}
	}

	s := router.PathPrefix("/session").Subrouter()
	s.Use(middleware.NewIdentityMiddleware(opts.AuthProvider))
	s.HandleFunc("", handlers.HandleGetSession(opts.Registry)).Methods(http.MethodGet)
	s.HandleFunc("/claims/{regionID}", handlers.HandleToggleClaim(opts.Registry)).Methods(http.MethodPost)
	s.HandleFunc("/active", handlers.HandleSelectPlayer(opts.Registry)).Methods(http.MethodPut)
	s.HandleFunc("/players", handlers.HandleAddPlayer(opts.Registry)).Methods(http.MethodPost)
	s.HandleFunc("/players/{playerID:[0-9]+}", handlers.HandleRenamePlayer(opts.Registry)).Methods(http.MethodPut)
	s.HandleFunc("/players/{playerID:[0-9]+}", handlers.HandleRemovePlayer(opts.Registry)).Methods(http.MethodDelete)
	s.HandleFunc("/reset", handlers.HandleResetSession(opts.Registry)).Methods(http.MethodPost)
	s.HandleFunc("/ws", handlers.HandleSessionSocket(opts.Registry, acceptOptions)).Methods(http.MethodGet)

	return router
}

// originHost returns the host websocket origins are matched against.
func originHost(origin string) string {
	if !strings.Contains(origin, "://") {
		return origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Host
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:              net.JoinHostPort(opts.Bind, strconv.Itoa(opts.Port)),
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Start starts the APIServer and blocks until it is stopped
func (s *APIServer) Start() error {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return nil
		}
		return err
	}
	return nil
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
