package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"territory-arena/internal/avatar"
	"territory-arena/internal/game"
	"territory-arena/internal/repository"
)

// matchCreator is the subset of *registry.Registry the REST layer needs
// to create matches; matchLookup (websocket.go) covers lookup.
type matchCreator interface {
	matchLookup
	Create(id, joinCode, hostID string, isSolo, isPublic bool, pub game.Publisher, repo game.Repository) (*game.Match, error)
	JoinCodeInUse(code string) bool
	ListAvailable() []*game.Match
}

type matchHandlers struct {
	registry matchCreator
	repo     *repository.Store
	pub      game.Publisher
	avatars  *avatar.Cache
}

type createMatchRequest struct {
	HostID   string `json:"host_id"`
	IsPublic bool   `json:"is_public"`
	IsSolo   bool   `json:"is_solo"`
}

type createMatchResponse struct {
	MatchID  string `json:"match_id"`
	JoinCode string `json:"join_code"`
}

func (h *matchHandlers) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == "" {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	code, err := repository.GenerateJoinCode(h.registry.JoinCodeInUse)
	if err != nil {
		writeError(w, "could not allocate join code", http.StatusInternalServerError)
		return
	}

	matchID := uuid.NewString()
	m, err := h.registry.Create(matchID, code, req.HostID, req.IsSolo, req.IsPublic, h.pub, h.repo)
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if h.repo != nil {
		if err := h.repo.CreateMatch(matchID, code, req.HostID, req.IsPublic, req.IsSolo); err != nil {
			writeError(w, "failed to persist match", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, createMatchResponse{MatchID: m.ID(), JoinCode: m.JoinCode()})
}

type availableMatch struct {
	MatchID     string `json:"match_id"`
	JoinCode    string `json:"join_code"`
	PlayerCount int    `json:"player_count"`
}

func (h *matchHandlers) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	matches := h.registry.ListAvailable()
	out := make([]availableMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, availableMatch{MatchID: m.ID(), JoinCode: m.JoinCode(), PlayerCount: m.PlayerCount()})
	}
	writeJSON(w, out)
}

type joinMatchRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// handleJoinMatch is the REST fallback for joining (the real-time path is
// the join message sent over the match's WebSocket); it's useful for a
// client that wants to validate the match exists before opening a socket.
func (h *matchHandlers) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	m := h.registry.Lookup(matchID)
	if m == nil {
		writeError(w, game.ErrMatchNotFound.Error(), http.StatusNotFound)
		return
	}

	var req joinMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	state, _, err := m.Join(req.UserID, req.Name, req.Avatar)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	if h.avatars != nil {
		h.avatars.GetOrFetch(req.Avatar)
	}

	if h.repo != nil {
		if p, ok := state.Players[req.UserID]; ok {
			h.repo.AddPlayer(matchID, req.UserID, p.Color)
		}
	}

	writeJSON(w, state)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
