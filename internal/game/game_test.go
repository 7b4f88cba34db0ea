// internal/game/game_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/breach/engine"
	"github.com/jason-s-yu/breach/internal/models"
)

// mockBroadcaster captures duel events for test assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []DuelEvent
	playerEvents map[uuid.UUID][]DuelEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]DuelEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev DuelEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev DuelEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[uuid.UUID][]DuelEvent)
}

func (mb *mockBroadcaster) findEventByType(t DuelEventType) *DuelEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == t {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) findPlayerEventByType(playerID uuid.UUID, t DuelEventType) *DuelEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return &events[i]
		}
	}
	return nil
}

// setupTestDuel seats two players and starts the duel with a fixed seed and
// no choice timeout.
func setupTestDuel(t *testing.T) (*DuelGame, []*models.Player, *mockBroadcaster) {
	t.Helper()
	g := NewDuelGame()
	g.Cfg.Seed = 99
	g.ChoiceDuration = 0
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	players := make([]*models.Player, 2)
	for i := range players {
		players[i] = &models.Player{
			ID:        uuid.New(),
			Connected: true,
			User:      &models.User{ID: uuid.New(), Username: "Player" + string(rune('A'+i))},
		}
		g.AddPlayer(players[i])
	}

	require.NoError(t, g.Start())
	require.True(t, g.Started)
	mb.clear()
	return g, players, mb
}

// forceHand overwrites one side's hand while keeping the total card count
// consistent with the engine's conservation invariant.
func forceHand(g *DuelGame, side uint8, cards ...engine.CardType) {
	c := &g.Match.Combatants[side]
	c.DeckLen = uint8(engine.DeckSize - len(cards) - int(c.DiscardLen))
	c.HandLen = 0
	for _, typ := range cards {
		c.Hand[c.HandLen] = typ
		c.HandLen++
	}
}

func TestStartDealsHandsAndBroadcasts(t *testing.T) {
	g := NewDuelGame()
	g.Cfg.Seed = 7
	g.ChoiceDuration = 0
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	a := &models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "A"}}
	b := &models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "B"}}
	g.AddPlayer(a)
	g.AddPlayer(b)
	require.NoError(t, g.Start())

	startEvent := mb.findEventByType(EventDuelStart)
	require.NotNil(t, startEvent, "expected duel_start broadcast")

	for _, p := range []*models.Player{a, b} {
		handEvent := mb.findPlayerEventByType(p.ID, EventPrivateHand)
		require.NotNil(t, handEvent, "expected private hand for %s", p.User.Username)
		hand, ok := handEvent.Payload["hand"].([]string)
		require.True(t, ok)
		assert.Len(t, hand, int(g.Cfg.HandSize))
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	g := NewDuelGame()
	g.AddPlayer(&models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "A"}})
	assert.Error(t, g.Start())
}

func TestThirdPlayerRejected(t *testing.T) {
	g, _, _ := setupTestDuel(t)
	before := len(g.Players)
	g.AddPlayer(&models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "C"}})
	assert.Equal(t, before, len(g.Players), "third player should not be seated")
}

func TestSubmitBuffersThenResolves(t *testing.T) {
	g, players, mb := setupTestDuel(t)
	forceHand(g, 0, engine.CardExploit, engine.CardProbe, engine.CardRetreat)
	forceHand(g, 1, engine.CardPatch, engine.CardProbe, engine.CardRetreat)

	g.HandlePlayerAction(players[0].ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Exploit"},
	})

	committed := mb.findEventByType(EventPlayerCommitted)
	require.NotNil(t, committed, "expected player_committed broadcast")
	assert.Equal(t, players[0].ID, committed.User.ID)
	assert.Nil(t, committed.Payload, "committed event must not leak the card")
	assert.Nil(t, mb.findEventByType(EventRoundResult), "round must not resolve on one submission")

	g.HandlePlayerAction(players[1].ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Patch"},
	})

	result := mb.findEventByType(EventRoundResult)
	require.NotNil(t, result, "expected round_result broadcast")
	sides, ok := result.Payload["sides"].(map[string]interface{})
	require.True(t, ok)
	sideA, ok := sides[players[0].ID.String()].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Exploit", sideA["card"])

	// Hands refilled and re-sent for the next round.
	handEvent := mb.findPlayerEventByType(players[0].ID, EventPrivateHand)
	require.NotNil(t, handEvent)
	assert.Equal(t, 1, g.RoundID)
}

func TestIllegalSubmissionPrivateFail(t *testing.T) {
	g, players, mb := setupTestDuel(t)
	forceHand(g, 0, engine.CardExploit, engine.CardProbe, engine.CardRetreat)

	// Honeypot is not in the forced hand.
	g.HandlePlayerAction(players[0].ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Honeypot"},
	})

	fail := mb.findPlayerEventByType(players[0].ID, EventPrivateFail)
	require.NotNil(t, fail, "expected private fail event")
	assert.Nil(t, mb.findEventByType(EventPlayerCommitted))
	assert.False(t, g.Match.HasSubmitted(0))
}

func TestUnknownCardNameRejected(t *testing.T) {
	g, players, mb := setupTestDuel(t)

	g.HandlePlayerAction(players[0].ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Buffer Overflow"},
	})

	fail := mb.findPlayerEventByType(players[0].ID, EventPrivateFail)
	require.NotNil(t, fail)
	assert.False(t, g.Match.HasSubmitted(0))
	assert.Equal(t, engine.PhaseAwaitingChoices, g.Match.Phase(), "unknown name must not reach the engine")
}

func TestEliminationEndsDuel(t *testing.T) {
	g := NewDuelGame()
	g.Cfg.Seed = 99
	g.Cfg.StartingHP = 1
	g.ChoiceDuration = 0
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	var endedWinner uuid.UUID
	endCalled := false
	g.OnDuelEnd = func(duelID uuid.UUID, winner uuid.UUID, result engine.Result) {
		endCalled = true
		endedWinner = winner
	}

	a := &models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "A"}}
	b := &models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "B"}}
	g.AddPlayer(a)
	g.AddPlayer(b)
	require.NoError(t, g.Start())

	forceHand(g, 0, engine.CardExploit, engine.CardProbe, engine.CardRetreat)
	forceHand(g, 1, engine.CardProbe, engine.CardRetreat, engine.CardPatch)

	g.HandlePlayerAction(a.ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Exploit"},
	})
	g.HandlePlayerAction(b.ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Probe"},
	})

	require.True(t, g.GameOver)
	require.True(t, endCalled, "OnDuelEnd callback should fire")
	assert.Equal(t, a.ID, endedWinner)

	endEvent := mb.findEventByType(EventDuelEnd)
	require.NotNil(t, endEvent)
	assert.Equal(t, "win", endEvent.Payload["result"])
	assert.Equal(t, a.ID.String(), endEvent.Payload["winner"])

	// Further submissions are ignored.
	mb.clear()
	g.HandlePlayerAction(b.ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Probe"},
	})
	assert.Nil(t, mb.findEventByType(EventPlayerCommitted))
}

func TestChoiceTimeoutAutoPlays(t *testing.T) {
	g := NewDuelGame()
	g.Cfg.Seed = 42
	g.ChoiceDuration = 50 * time.Millisecond
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	a := &models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "A"}}
	b := &models.Player{ID: uuid.New(), Connected: true, User: &models.User{Username: "B"}}
	g.AddPlayer(a)
	g.AddPlayer(b)

	g.Mu.Lock()
	require.NoError(t, g.Start())
	g.Mu.Unlock()

	require.Eventually(t, func() bool {
		return mb.findEventByType(EventRoundResult) != nil
	}, 2*time.Second, 10*time.Millisecond, "timeout should auto-play both sides")

	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.GreaterOrEqual(t, g.RoundID, 1)
}

// TestChoiceTimeoutCoversOneRoundOnly verifies that when an auto-play
// completes the round, the expired window does not also consume the next
// round's choice for the side that committed on time.
func TestChoiceTimeoutCoversOneRoundOnly(t *testing.T) {
	g, players, mb := setupTestDuel(t)
	forceHand(g, 0, engine.CardExploit, engine.CardProbe, engine.CardRetreat)
	forceHand(g, 1, engine.CardPatch, engine.CardProbe, engine.CardRetreat)

	g.HandlePlayerAction(players[1].ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Patch"},
	})
	require.True(t, g.Match.HasSubmitted(1))

	g.handleChoiceTimeout()

	require.NotNil(t, mb.findEventByType(EventRoundResult))
	require.Len(t, g.Match.History(), 1)
	assert.False(t, g.Match.HasSubmitted(0), "timed-out side must start the next round uncommitted")
	assert.False(t, g.Match.HasSubmitted(1), "on-time side must not be auto-played in the next round")
}

func TestObfuscatedStateHidesOpponent(t *testing.T) {
	g, players, _ := setupTestDuel(t)
	forceHand(g, 0, engine.CardExploit, engine.CardProbe, engine.CardRetreat)
	forceHand(g, 1, engine.CardPatch, engine.CardProbe, engine.CardRetreat)

	g.HandlePlayerAction(players[1].ID, models.GameAction{
		ActionType: "action_submit_card",
		Payload:    map[string]interface{}{"card": "Patch"},
	})

	state := g.ObfuscatedStateFor(players[0].ID)
	require.Len(t, state.Combatants, 2)

	self := state.Combatants[0]
	opp := state.Combatants[1]
	assert.NotEmpty(t, self.Hand, "own hand should be revealed")
	assert.Empty(t, opp.Hand, "opponent hand must stay hidden")
	assert.Empty(t, opp.LegalMoves, "opponent legal moves must stay hidden")
	assert.True(t, opp.HasCommitted, "commitment status is public")
	assert.Equal(t, 2, opp.HandSize, "hand size is public")
	assert.Equal(t, g.Match.Distance, state.Distance)
}

func TestDisconnectReconnectKeepsSeat(t *testing.T) {
	g, players, mb := setupTestDuel(t)

	g.HandleDisconnect(players[0].ID)
	assert.False(t, g.Players[0].Connected)

	mb.clear()
	g.HandleReconnect(players[0].ID, nil)
	assert.True(t, g.Players[0].Connected)

	sync := mb.findPlayerEventByType(players[0].ID, EventPrivateSyncState)
	require.NotNil(t, sync, "reconnect should resend state")
	require.NotNil(t, sync.State)
	assert.Equal(t, g.ID, sync.State.DuelID)
}

func TestParseCardName(t *testing.T) {
	card, ok := ParseCardName("Zero-Day")
	require.True(t, ok)
	assert.Equal(t, engine.CardZeroDay, card)

	_, ok = ParseCardName("Idle")
	assert.False(t, ok, "Idle is internal and not submittable")

	_, ok = ParseCardName("")
	assert.False(t, ok)
}
