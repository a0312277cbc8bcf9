package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cbodonnell/platespotter/pkg/api/middleware"
	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/session"
	"github.com/cbodonnell/platespotter/pkg/version"
	"github.com/gorilla/mux"
)

type SelectPlayerRequest struct {
	PlayerID int `json:"player_id"`
}

type RenamePlayerRequest struct {
	Name string `json:"name"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// writeError maps session and game errors to a status code.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotReady):
		http.Error(w, "Session is loading, try again", http.StatusServiceUnavailable)
	case game.IsRegionAlreadyClaimed(err), game.IsMaxPlayersReached(err), game.IsCannotRemoveLastPlayer(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case game.IsPlayerNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case game.IsInvalidPlayerName(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("request failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// loadManager returns the session manager of the caller, loading it on first use.
func loadManager(w http.ResponseWriter, r *http.Request, registry *session.Registry) (*session.Manager, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		log.Error("failed to get identity from context")
		http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
		return nil, false
	}
	m, err := registry.Get(r.Context(), identity.SessionKey(), identity.OwnerID)
	if err != nil {
		log.Error("failed to load session %s: %v", identity.SessionKey(), err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return nil, false
	}
	return m, true
}

// respond writes the session view after a successful operation.
func respond(w http.ResponseWriter, registry *session.Registry, m *session.Manager, status int, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := registry.View(m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, view)
}

func playerIDFromPath(w http.ResponseWriter, r *http.Request) (types.PlayerID, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["playerID"])
	if err != nil {
		http.Error(w, "Failed to parse playerID", http.StatusBadRequest)
		return 0, false
	}
	return types.PlayerID(id), true
}

func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func HandleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version.Get()})
	}
}

func HandleListRegions(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, registry.Catalog().Regions())
	}
}

func HandleGetSession(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		respond(w, registry, m, http.StatusOK, nil)
	}
}

// HandleToggleClaim toggles the region for the active player. The region may
// be given by id or by plate code in any case.
func HandleToggleClaim(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		region, ok := registry.Catalog().LookupAbbreviation(mux.Vars(r)["regionID"])
		if !ok {
			http.Error(w, "Region not found", http.StatusNotFound)
			return
		}
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		_, err := m.ToggleActiveClaim(region.ID)
		respond(w, registry, m, http.StatusOK, err)
	}
}

func HandleSelectPlayer(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &SelectPlayerRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		_, err := m.SelectPlayer(types.PlayerID(req.PlayerID))
		respond(w, registry, m, http.StatusOK, err)
	}
}

func HandleAddPlayer(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		_, err := m.AddPlayer()
		respond(w, registry, m, http.StatusCreated, err)
	}
}

func HandleRenamePlayer(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := playerIDFromPath(w, r)
		if !ok {
			return
		}
		req := &RenamePlayerRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		_, err := m.RenamePlayer(playerID, req.Name)
		respond(w, registry, m, http.StatusOK, err)
	}
}

func HandleRemovePlayer(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := playerIDFromPath(w, r)
		if !ok {
			return
		}
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		_, err := m.RemovePlayer(playerID)
		respond(w, registry, m, http.StatusOK, err)
	}
}

func HandleResetSession(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		_, err := m.ResetSession()
		respond(w, registry, m, http.StatusOK, err)
	}
}
