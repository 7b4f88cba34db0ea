// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/breach/engine"
	"github.com/jason-s-yu/breach/internal/cache"
	"github.com/jason-s-yu/breach/internal/database"
	"github.com/jason-s-yu/breach/internal/models"
)

// OnDuelEndFunc is executed when a duel finishes. Winner is uuid.Nil for a
// draw or an aborted duel.
type OnDuelEndFunc func(duelID uuid.UUID, winner uuid.UUID, result engine.Result)

// DuelEventType identifies a WebSocket event broadcast by the duel.
type DuelEventType string

const (
	EventDuelStart        DuelEventType = "duel_start"         // Public: duel began.
	EventPrivateHand      DuelEventType = "private_hand"       // Private: the viewer's current hand.
	EventPlayerCommitted  DuelEventType = "player_committed"   // Public: a player locked in a card (card hidden).
	EventRoundResult      DuelEventType = "round_result"       // Public: both cards revealed with the resolved outcome.
	EventPrivateFail      DuelEventType = "private_fail"       // Private: a submission was rejected.
	EventPrivateSyncState DuelEventType = "private_sync_state" // Private: full per-viewer state.
	EventDuelEnd          DuelEventType = "duel_end"           // Public: duel finished, includes the result.
)

// EventUser identifies a player within an event payload.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// DuelEvent is the wire structure for all duel broadcasts.
type DuelEvent struct {
	Type    DuelEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *ObfDuelState          `json:"state,omitempty"`
}

// DuelGame wraps one engine match with player identity, connection state,
// choice timers and event broadcast. All mutation happens under Mu.
type DuelGame struct {
	ID uuid.UUID

	Cfg   engine.Config
	Match *engine.MatchState

	Players        []*models.Player
	PlayerToEngine map[uuid.UUID]uint8
	EngineToPlayer [2]uuid.UUID

	// RoundID increments each resolved round; stale timers check it before
	// firing.
	RoundID        int
	ChoiceDuration time.Duration // 0 disables the submission timeout.
	choiceTimer    *time.Timer

	Started  bool
	GameOver bool

	actionIndex int
	Mu          sync.Mutex

	BroadcastFn         func(ev DuelEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev DuelEvent)
	OnDuelEnd           OnDuelEndFunc

	log *logrus.Entry
}

// NewDuelGame creates an empty duel with default engine rules and a
// time-derived shuffle seed.
func NewDuelGame() *DuelGame {
	id, _ := uuid.NewRandom()
	return NewDuelGameWithID(id)
}

// NewDuelGameWithID creates an empty duel under a caller-chosen identifier.
func NewDuelGameWithID(id uuid.UUID) *DuelGame {
	cfg := engine.DefaultConfig()
	cfg.Seed = uint64(time.Now().UnixNano())
	return &DuelGame{
		ID:             id,
		Cfg:            cfg,
		PlayerToEngine: make(map[uuid.UUID]uint8),
		ChoiceDuration: 30 * time.Second,
		log:            logrus.WithField("duel", id),
	}
}

// AddPlayer seats a player, or re-attaches a returning one. New seats are
// only available before the duel starts.
// Assumes lock is held by caller.
func (g *DuelGame) AddPlayer(p *models.Player) {
	for i, pl := range g.Players {
		if pl.ID == p.ID {
			g.Players[i].Conn = p.Conn
			g.Players[i].Connected = true
			g.Players[i].User = p.User
			g.log.WithField("player", p.ID).Info("player reconnected")
			g.logAction(p.ID, "player_reconnect", nil)
			return
		}
	}
	if g.Started || g.GameOver {
		g.log.WithField("player", p.ID).Warn("join rejected, duel already started")
		if p.Conn != nil {
			p.Conn.Close(websocket.StatusPolicyViolation, "duel already in progress")
		}
		return
	}
	if len(g.Players) >= 2 {
		g.log.WithField("player", p.ID).Warn("join rejected, duel is full")
		if p.Conn != nil {
			p.Conn.Close(websocket.StatusPolicyViolation, "duel is full")
		}
		return
	}
	g.Players = append(g.Players, p)
	g.logAction(p.ID, "player_join", map[string]interface{}{"username": p.User.Username})
}

// Start creates the engine match, deals hands, and opens round one. Requires
// exactly two seated players.
// Assumes lock is held by caller.
func (g *DuelGame) Start() error {
	if g.Started || g.GameOver {
		return fmt.Errorf("duel %s is not in a startable state", g.ID)
	}
	if len(g.Players) != 2 {
		return fmt.Errorf("duel %s needs exactly two players, has %d", g.ID, len(g.Players))
	}

	for i, p := range g.Players {
		g.PlayerToEngine[p.ID] = uint8(i)
		g.EngineToPlayer[i] = p.ID
	}

	m, err := engine.NewMatch(g.Cfg)
	if err != nil {
		return err
	}
	g.Match = m
	g.Started = true
	g.log.WithField("seed", g.Cfg.Seed).Info("duel started")
	g.logAction(uuid.Nil, "duel_start", map[string]interface{}{"seed": g.Cfg.Seed})

	if database.DB != nil {
		duelID, a, b, seed := g.ID, g.EngineToPlayer[0], g.EngineToPlayer[1], g.Cfg.Seed
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.InsertMatch(ctx, duelID, a, b, seed); err != nil {
				logrus.WithError(err).Error("persisting match start")
			}
		}()
	}

	g.fireEvent(DuelEvent{
		Type: EventDuelStart,
		Payload: map[string]interface{}{
			"distance": g.Match.Distance,
			"hp":       g.Cfg.StartingHP,
		},
	})
	for _, p := range g.Players {
		g.sendPrivateHand(p.ID)
	}
	g.broadcastSyncStateToAll()
	g.scheduleChoiceTimer()
	return nil
}

// HandlePlayerAction routes an incoming wire action.
// Assumes lock is held by caller.
func (g *DuelGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) {
	if g.GameOver || !g.Started {
		g.log.WithField("player", playerID).Debug("action ignored, duel not active")
		return
	}
	player := g.getPlayerByID(playerID)
	if player == nil || !player.Connected {
		return
	}

	switch action.ActionType {
	case "action_submit_card":
		name, _ := action.Payload["card"].(string)
		card, ok := ParseCardName(name)
		if !ok {
			g.fireEventToPlayer(playerID, DuelEvent{
				Type:    EventPrivateFail,
				Payload: map[string]interface{}{"message": "unknown card: " + name},
			})
			return
		}
		g.submitCard(playerID, card)
	default:
		g.fireEventToPlayer(playerID, DuelEvent{
			Type:    EventPrivateFail,
			Payload: map[string]interface{}{"message": "unknown action type"},
		})
	}
}

// submitCard plays one card into the engine and walks any resulting round
// resolution.
// Assumes lock is held by caller.
func (g *DuelGame) submitCard(playerID uuid.UUID, card engine.CardType) {
	engineIdx, ok := g.PlayerToEngine[playerID]
	if !ok {
		return
	}

	preRounds := len(g.Match.History())
	err := g.Match.SubmitChoice(engineIdx, card)
	if err != nil {
		if g.Match.Phase() == engine.PhaseAborted {
			g.log.WithError(err).Error("engine aborted the duel")
			g.endDuel()
			return
		}
		g.fireEventToPlayer(playerID, DuelEvent{
			Type:    EventPrivateFail,
			Payload: map[string]interface{}{"message": err.Error()},
		})
		return
	}

	g.logAction(playerID, "card_committed", map[string]interface{}{"card": card.String()})
	// The committed card stays hidden until the reveal.
	g.fireEvent(DuelEvent{
		Type: EventPlayerCommitted,
		User: &EventUser{ID: playerID},
	})

	if len(g.Match.History()) > preRounds {
		g.onRoundResolved()
	}
}

// onRoundResolved broadcasts the reveal, persists the record, and either
// opens the next round or ends the duel.
// Assumes lock is held by caller.
func (g *DuelGame) onRoundResolved() {
	hist := g.Match.History()
	rec := hist[len(hist)-1]
	g.RoundID++

	view := roundRecordView(rec, g.EngineToPlayer)
	g.fireEvent(DuelEvent{
		Type:    EventRoundResult,
		Payload: view,
	})
	g.logAction(uuid.Nil, "round_resolved", view)

	if database.DB != nil {
		duelID := g.ID
		go func(r engine.RoundRecord) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.StoreMatchRound(ctx, duelID, r); err != nil {
				logrus.WithError(err).Error("persisting match round")
			}
		}(rec)
	}

	switch g.Match.Phase() {
	case engine.PhaseMatchOver, engine.PhaseAborted:
		g.endDuel()
	default:
		for _, p := range g.Players {
			g.sendPrivateHand(p.ID)
		}
		g.broadcastSyncStateToAll()
		g.scheduleChoiceTimer()
	}
}

// endDuel stops timers, broadcasts the outcome, persists it, and fires the
// end callback.
// Assumes lock is held by caller.
func (g *DuelGame) endDuel() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	g.Started = false
	if g.choiceTimer != nil {
		g.choiceTimer.Stop()
		g.choiceTimer = nil
	}

	res := g.Match.Result()
	winner := uuid.Nil
	resultStr := "draw"
	switch {
	case g.Match.Phase() == engine.PhaseAborted:
		resultStr = "aborted"
		g.log.WithError(g.Match.Err()).Error("duel aborted")
	case res.Kind == engine.ResultWin:
		winner = g.EngineToPlayer[res.Winner]
		resultStr = "win"
	}

	payload := map[string]interface{}{
		"result": resultStr,
		"rounds": int(g.Match.Round),
	}
	if winner != uuid.Nil {
		payload["winner"] = winner.String()
	}
	g.fireEvent(DuelEvent{Type: EventDuelEnd, Payload: payload})
	g.logAction(uuid.Nil, "duel_end", payload)
	g.broadcastSyncStateToAll()

	if database.DB != nil {
		duelID, rounds := g.ID, int(g.Match.Round)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.FinalizeMatch(ctx, duelID, resultStr, winner, rounds); err != nil {
				logrus.WithError(err).Error("finalizing match")
			}
		}()
	}

	if g.OnDuelEnd != nil {
		g.OnDuelEnd(g.ID, winner, res)
	}
	g.log.WithFields(logrus.Fields{"result": resultStr, "winner": winner}).Info("duel ended")
}

// scheduleChoiceTimer arms the submission window for the current round.
// Assumes lock is held by caller.
func (g *DuelGame) scheduleChoiceTimer() {
	if g.choiceTimer != nil {
		g.choiceTimer.Stop()
		g.choiceTimer = nil
	}
	if g.ChoiceDuration <= 0 || g.GameOver || !g.Started {
		return
	}
	curRound := g.RoundID
	g.choiceTimer = time.AfterFunc(g.ChoiceDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.GameOver || !g.Started || g.RoundID != curRound {
			return
		}
		g.handleChoiceTimeout()
	})
}

// handleChoiceTimeout auto-plays for every side that has not committed: the
// first legal card, or the first hand card as a fizzle when nothing is legal.
// Assumes lock is held by caller.
func (g *DuelGame) handleChoiceTimeout() {
	g.log.WithField("round", g.RoundID).Info("choice window expired, auto-playing")
	timedOutRound := g.RoundID
	for side := uint8(0); side < 2; side++ {
		// An auto-play can complete the round and open the next one. The
		// expired window only covers the round it was armed for, so stop as
		// soon as the round counter moves.
		if g.GameOver || g.RoundID != timedOutRound || g.Match.Phase() != engine.PhaseAwaitingChoices {
			return
		}
		if g.Match.HasSubmitted(side) {
			continue
		}
		playerID := g.EngineToPlayer[side]
		var card engine.CardType
		if legal := g.Match.LegalMovesFor(side); len(legal) > 0 {
			card = legal[0]
		} else if g.Match.Combatants[side].HandLen > 0 {
			card = g.Match.Combatants[side].Hand[0]
		} else {
			continue
		}
		g.logAction(playerID, "choice_timeout", map[string]interface{}{"card": card.String()})
		g.submitCard(playerID, card)
	}
}

// HandleDisconnect marks a player as gone. The duel keeps running; the choice
// timer covers their absent submissions.
// Assumes lock is held by caller.
func (g *DuelGame) HandleDisconnect(playerID uuid.UUID) {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			if !g.Players[i].Connected {
				return
			}
			g.Players[i].Connected = false
			g.Players[i].Conn = nil
			g.log.WithField("player", playerID).Info("player disconnected")
			g.logAction(playerID, "player_disconnect", nil)
			g.broadcastSyncStateToAll()
			return
		}
	}
}

// HandleReconnect re-attaches a returning player and resends their state.
// Assumes lock is held by caller.
func (g *DuelGame) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			g.Players[i].Connected = true
			g.Players[i].Conn = conn
			g.logAction(playerID, "player_reconnect", nil)
			g.sendSyncState(playerID)
			g.sendPrivateHand(playerID)
			g.broadcastSyncStateToAll()
			return
		}
	}
	g.log.WithField("player", playerID).Warn("reconnecting player not seated")
	if conn != nil {
		conn.Close(websocket.StatusPolicyViolation, "not a player in this duel")
	}
}

// sendPrivateHand reveals the viewer's own hand and legal moves.
// Assumes lock is held by caller.
func (g *DuelGame) sendPrivateHand(playerID uuid.UUID) {
	engineIdx, ok := g.PlayerToEngine[playerID]
	if !ok || g.Match == nil {
		return
	}
	c := &g.Match.Combatants[engineIdx]
	hand := make([]string, c.HandLen)
	for i := uint8(0); i < c.HandLen; i++ {
		hand[i] = c.Hand[i].String()
	}
	legal := cardNames(g.Match.LegalMovesFor(engineIdx))
	g.fireEventToPlayer(playerID, DuelEvent{
		Type: EventPrivateHand,
		Payload: map[string]interface{}{
			"hand":       hand,
			"legalMoves": legal,
			"distance":   g.Match.Distance,
		},
	})
}

// sendSyncState sends the viewer-specific obfuscated state.
// Assumes lock is held by caller.
func (g *DuelGame) sendSyncState(playerID uuid.UUID) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	state := g.ObfuscatedStateFor(playerID)
	g.fireEventToPlayer(playerID, DuelEvent{
		Type:  EventPrivateSyncState,
		State: &state,
	})
}

// broadcastSyncStateToAll sends each connected player their own view.
// Assumes lock is held by caller.
func (g *DuelGame) broadcastSyncStateToAll() {
	for _, p := range g.Players {
		if p.Connected {
			g.sendSyncState(p.ID)
		}
	}
}

// fireEvent broadcasts to all players via the callback.
// Assumes lock is held by caller.
func (g *DuelGame) fireEvent(ev DuelEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		g.log.WithField("event", ev.Type).Warn("BroadcastFn is nil, dropping event")
	}
}

// fireEventToPlayer sends to one connected player via the callback.
// Assumes lock is held by caller.
func (g *DuelGame) fireEventToPlayer(playerID uuid.UUID, ev DuelEvent) {
	if g.BroadcastToPlayerFn == nil {
		g.log.WithField("event", ev.Type).Warn("BroadcastToPlayerFn is nil, dropping event")
		return
	}
	p := g.getPlayerByID(playerID)
	if p != nil && p.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// getPlayerByID finds a seated player, or nil.
// Assumes lock is held by caller.
func (g *DuelGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// logAction asynchronously queues an action record for the historian.
// Assumes lock is held by caller.
func (g *DuelGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoundActionRecord{
		DuelID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.RoundActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoundAction(ctx, rec); err != nil {
			logrus.WithError(err).WithField("duel", rec.DuelID).Error("publishing round action")
		}
	}(record)
}

// ParseCardName maps a display name to its card type.
func ParseCardName(name string) (engine.CardType, bool) {
	for t := engine.CardType(0); t < engine.NumCardTypes; t++ {
		if t == engine.CardIdle {
			continue
		}
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func cardNames(cards []engine.CardType) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.String()
	}
	return names
}

// roundRecordView converts an engine round record to an event payload keyed
// by player UUIDs.
func roundRecordView(rec engine.RoundRecord, players [2]uuid.UUID) map[string]interface{} {
	perSide := make(map[string]interface{}, 2)
	for i := 0; i < 2; i++ {
		perSide[players[i].String()] = map[string]interface{}{
			"card":    rec.Cards[i].String(),
			"fizzled": rec.Fizzled[i],
			"damage":  rec.Damage[i],
			"blocked": rec.Blocked[i],
			"hp":      rec.HP[i],
		}
	}
	view := map[string]interface{}{
		"round":    rec.Round,
		"distance": rec.Distance,
		"sides":    perSide,
	}
	if rec.PriorityWinner >= 0 {
		view["priorityWinner"] = players[rec.PriorityWinner].String()
	}
	return view
}
