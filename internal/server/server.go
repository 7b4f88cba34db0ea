// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/breach/engine"
	"github.com/jason-s-yu/breach/internal/auth"
	"github.com/jason-s-yu/breach/internal/game"
	"github.com/jason-s-yu/breach/internal/models"
)

// Server hosts the duel WebSocket endpoint and the in-memory duel registry.
type Server struct {
	Auth        *auth.Service
	ChoiceTimer time.Duration

	mu    sync.Mutex
	duels map[uuid.UUID]*game.DuelGame
}

// New creates a server with an empty duel registry.
func New(authSvc *auth.Service, choiceTimer time.Duration) *Server {
	return &Server{
		Auth:        authSvc,
		ChoiceTimer: choiceTimer,
		duels:       make(map[uuid.UUID]*game.DuelGame),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/duel/ws", s.handleDuelWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// getOrCreateDuel returns the duel with the given ID, creating and wiring it
// on first use. A Nil ID creates a fresh duel.
func (s *Server) getOrCreateDuel(duelID uuid.UUID) *game.DuelGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.duels[duelID]; ok {
		return g
	}
	var g *game.DuelGame
	if duelID != uuid.Nil {
		g = game.NewDuelGameWithID(duelID)
	} else {
		g = game.NewDuelGame()
	}
	g.ChoiceDuration = s.ChoiceTimer
	g.BroadcastFn = func(ev game.DuelEvent) { s.broadcast(g, ev) }
	g.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.DuelEvent) { s.sendToPlayer(g, playerID, ev) }
	g.OnDuelEnd = func(id uuid.UUID, winner uuid.UUID, result engine.Result) {
		// Keep finished duels around briefly so late sync requests still
		// resolve, then drop them from the registry.
		time.AfterFunc(5*time.Minute, func() {
			s.mu.Lock()
			delete(s.duels, id)
			s.mu.Unlock()
		})
	}
	s.duels[g.ID] = g
	return g
}

// broadcast writes an event to every connected player in the duel.
// Called with the duel lock held.
func (s *Server) broadcast(g *game.DuelGame, ev game.DuelEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Error("marshaling duel event")
		return
	}
	for _, p := range g.Players {
		if p.Connected && p.Conn != nil {
			writeConn(p.Conn, data)
		}
	}
}

// sendToPlayer writes an event to one player's connection.
// Called with the duel lock held.
func (s *Server) sendToPlayer(g *game.DuelGame, playerID uuid.UUID, ev game.DuelEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Error("marshaling duel event")
		return
	}
	for _, p := range g.Players {
		if p.ID == playerID && p.Connected && p.Conn != nil {
			writeConn(p.Conn, data)
			return
		}
	}
}

func writeConn(conn *websocket.Conn, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		logrus.WithError(err).Debug("websocket write failed")
	}
}

// handleDuelWS authenticates, seats the player, and pumps incoming actions
// into the duel until the connection drops.
//
// Query params: token (JWT), duel (optional duel UUID; omitted creates one).
func (s *Server) handleDuelWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, err := s.Auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var duelID uuid.UUID
	if raw := r.URL.Query().Get("duel"); raw != "" {
		duelID, err = uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid duel id", http.StatusBadRequest)
			return
		}
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket accept failed")
		return
	}

	g := s.getOrCreateDuel(duelID)
	username := r.URL.Query().Get("username")
	if username == "" {
		username = userID.String()[:8]
	}
	player := &models.Player{
		ID:        userID,
		Connected: true,
		Conn:      conn,
		User:      &models.User{ID: userID, Username: username},
	}

	g.Mu.Lock()
	if g.Started || g.GameOver {
		g.HandleReconnect(userID, conn)
	} else {
		g.AddPlayer(player)
		if len(g.Players) == 2 {
			if err := g.Start(); err != nil {
				logrus.WithError(err).WithField("duel", g.ID).Error("starting duel")
			}
		}
	}
	g.Mu.Unlock()

	s.readLoop(r.Context(), conn, g, userID)
}

// readLoop decodes incoming actions until the connection closes.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, g *game.DuelGame, userID uuid.UUID) {
	defer func() {
		g.Mu.Lock()
		g.HandleDisconnect(userID)
		g.Mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			logrus.WithError(err).Debug("discarding malformed action")
			continue
		}
		g.Mu.Lock()
		g.HandlePlayerAction(userID, action)
		g.Mu.Unlock()
	}
}
