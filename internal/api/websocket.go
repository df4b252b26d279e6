package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"territory-arena/internal/avatar"
	"territory-arena/internal/game"
)

// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP.
const MaxWSConnectionsPerIP = 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// clientMessage is the envelope for every inbound message on a match
// socket, matching the channel protocol's typed-command shape.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type inputPayload struct {
	W bool `json:"w"`
	A bool `json:"a"`
	S bool `json:"s"`
	D bool `json:"d"`
}

type shootPayload struct {
	DirX float64 `json:"dir_x"`
	DirY float64 `json:"dir_y"`
}

type buyPowerupPayload struct {
	Type game.PowerupType `json:"type"`
}

// MatchSocketHandler upgrades and drives one match's WebSocket
// connections. Unlike the teacher's single global hub, subscription is
// per match id: the broker keeps matches from interfering with each
// other's broadcast traffic.
type MatchSocketHandler struct {
	registry  matchLookup
	broker    matchBroker
	avatars   *avatar.Cache
	wsLimiter *WebSocketRateLimiter
}

// matchLookup is the subset of *registry.Registry this handler needs.
type matchLookup interface {
	Lookup(id string) *game.Match
}

// matchBroker is the subset of *pubsub.Broker this handler needs.
type matchBroker interface {
	Subscribe(matchID string) (<-chan game.Event, func())
}

// NewMatchSocketHandler constructs a handler bound to a registry and
// broker.
func NewMatchSocketHandler(registry matchLookup, broker matchBroker, avatars *avatar.Cache) *MatchSocketHandler {
	return &MatchSocketHandler{
		registry:  registry,
		broker:    broker,
		avatars:   avatars,
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// ServeHTTP handles GET /ws/matches/{id}.
func (h *MatchSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	m := h.registry.Lookup(matchID)
	if m == nil {
		http.Error(w, "match_not_found", http.StatusNotFound)
		return
	}

	ip := GetClientIP(r)
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.wsLimiter.Release(ip)
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer func() {
		h.wsLimiter.Release(ip)
		conn.Close()
	}()

	h.serve(conn, m)
}

func (h *MatchSocketHandler) serve(conn *websocket.Conn, m *game.Match) {
	var userID string

	// First message must be a join.
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var first clientMessage
	if err := conn.ReadJSON(&first); err != nil || first.Type != "join" {
		writeWSError(conn, "first message must be join")
		return
	}
	var jp joinPayload
	if err := json.Unmarshal(first.Data, &jp); err != nil || jp.UserID == "" {
		writeWSError(conn, "invalid join payload")
		return
	}
	conn.SetReadDeadline(time.Time{})

	state, _, err := m.Join(jp.UserID, jp.Name, jp.Avatar)
	if err != nil {
		writeWSError(conn, err.Error())
		return
	}
	userID = jp.UserID
	if h.avatars != nil {
		h.avatars.GetOrFetch(jp.Avatar)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "full_state", "data": state}); err != nil {
		return
	}

	events, unsubscribe := h.broker.Subscribe(m.ID())
	defer unsubscribe()

	writeDone := make(chan struct{})
	go h.writeLoop(conn, events, writeDone)

	h.readLoop(conn, m, userID)

	close(writeDone)
	m.Leave(userID)
}

func (h *MatchSocketHandler) writeLoop(conn *websocket.Conn, events <-chan game.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			IncrementWSMessages()
		}
	}
}

func (h *MatchSocketHandler) readLoop(conn *websocket.Conn, m *game.Match, userID string) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "input":
			var p inputPayload
			if json.Unmarshal(msg.Data, &p) == nil {
				m.SetInput(userID, p.W, p.A, p.S, p.D)
			}

		case "shoot":
			var p shootPayload
			if json.Unmarshal(msg.Data, &p) == nil {
				m.Shoot(userID, p.DirX, p.DirY)
			}

		case "buy_powerup":
			var p buyPowerupPayload
			if json.Unmarshal(msg.Data, &p) == nil {
				if err := m.BuyPowerup(userID, p.Type); err != nil {
					writeWSError(conn, err.Error())
				}
			}

		case "start_game":
			if err := m.StartGame(userID); err != nil {
				writeWSError(conn, err.Error())
			}

		case "leave":
			return

		default:
			// unknown command types are ignored, not fatal
		}
	}
}

func writeWSError(conn *websocket.Conn, reason string) {
	conn.WriteJSON(map[string]interface{}{"type": "error", "data": map[string]string{"reason": reason}})
}
