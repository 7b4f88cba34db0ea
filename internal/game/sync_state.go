// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/breach/engine"
)

// ObfCombatantState is one side of the duel as seen by a specific observer.
// Hand contents appear only for the observer's own seat.
type ObfCombatantState struct {
	PlayerID     uuid.UUID `json:"playerId"`
	Username     string    `json:"username"`
	HP           uint8     `json:"hp"`
	Exposed      bool      `json:"exposed"`
	Stunned      bool      `json:"stunned"`
	HandSize     int       `json:"handSize"`
	DeckSize     int       `json:"deckSize"`
	DiscardSize  int       `json:"discardSize"`
	HasCommitted bool      `json:"hasCommitted"`
	Connected    bool      `json:"connected"`
	// Hand and LegalMoves are populated only for the requesting player.
	Hand       []string `json:"hand,omitempty"`
	LegalMoves []string `json:"legalMoves,omitempty"`
	// Discard contents are public: every discarded card was revealed when
	// played.
	Discard []string `json:"discard,omitempty"`
}

// ObfRoundRecord is a resolved round in wire form. All fields are public
// knowledge once the round has been revealed.
type ObfRoundRecord struct {
	Round          uint16    `json:"round"`
	Cards          [2]string `json:"cards"`
	Fizzled        [2]bool   `json:"fizzled"`
	Damage         [2]uint8  `json:"damage"`
	Blocked        [2]bool   `json:"blocked"`
	Distance       uint8     `json:"distance"`
	HP             [2]uint8  `json:"hp"`
	PriorityWinner int8      `json:"priorityWinner"`
}

// ObfDuelState is the full duel state tailored to one observer.
type ObfDuelState struct {
	DuelID     uuid.UUID           `json:"duelId"`
	Started    bool                `json:"started"`
	GameOver   bool                `json:"gameOver"`
	Phase      string              `json:"phase"`
	Round      uint16              `json:"round"`
	Distance   uint8               `json:"distance"`
	Combatants []ObfCombatantState `json:"combatants"`
	History    []ObfRoundRecord    `json:"history"`
	Result     string              `json:"result,omitempty"`
	WinnerID   uuid.UUID           `json:"winnerId,omitempty"`
}

// ObfuscatedStateFor builds the duel state as visible to forUser. The
// opponent's hand, deck order and buffered choice never appear; pile sizes,
// hit points, statuses and the resolved history are public.
// Assumes lock is held by caller.
func (g *DuelGame) ObfuscatedStateFor(forUser uuid.UUID) ObfDuelState {
	obf := ObfDuelState{
		DuelID:   g.ID,
		Started:  g.Started,
		GameOver: g.GameOver,
	}
	if g.Match == nil {
		return obf
	}

	obf.Phase = g.Match.Phase().String()
	obf.Round = g.Match.Round
	obf.Distance = g.Match.Distance

	obf.Combatants = make([]ObfCombatantState, len(g.Players))
	for i, pl := range g.Players {
		engineIdx, hasMapping := g.PlayerToEngine[pl.ID]
		cs := ObfCombatantState{
			PlayerID:  pl.ID,
			Username:  pl.User.Username,
			Connected: pl.Connected,
		}
		if hasMapping {
			c := &g.Match.Combatants[engineIdx]
			cs.HP = c.HP
			cs.Exposed = c.Status&engine.StatusExposed != 0
			cs.Stunned = c.Status&engine.StatusStunned != 0
			cs.HandSize = int(c.HandLen)
			cs.DeckSize = int(c.DeckLen)
			cs.DiscardSize = int(c.DiscardLen)
			cs.HasCommitted = g.Match.HasSubmitted(engineIdx)

			cs.Discard = make([]string, c.DiscardLen)
			for j := uint8(0); j < c.DiscardLen; j++ {
				cs.Discard[j] = c.Discard[j].String()
			}

			if pl.ID == forUser {
				cs.Hand = make([]string, c.HandLen)
				for j := uint8(0); j < c.HandLen; j++ {
					cs.Hand[j] = c.Hand[j].String()
				}
				cs.LegalMoves = cardNames(g.Match.LegalMovesFor(engineIdx))
			}
		}
		obf.Combatants[i] = cs
	}

	hist := g.Match.History()
	obf.History = make([]ObfRoundRecord, len(hist))
	for i, rec := range hist {
		obf.History[i] = ObfRoundRecord{
			Round:          rec.Round,
			Cards:          [2]string{rec.Cards[0].String(), rec.Cards[1].String()},
			Fizzled:        rec.Fizzled,
			Damage:         rec.Damage,
			Blocked:        rec.Blocked,
			Distance:       rec.Distance,
			HP:             rec.HP,
			PriorityWinner: rec.PriorityWinner,
		}
	}

	if g.Match.Phase() == engine.PhaseMatchOver {
		res := g.Match.Result()
		switch res.Kind {
		case engine.ResultWin:
			obf.Result = "win"
			obf.WinnerID = g.EngineToPlayer[res.Winner]
		case engine.ResultDraw:
			obf.Result = "draw"
		}
	} else if g.Match.Phase() == engine.PhaseAborted {
		obf.Result = "aborted"
	}

	return obf
}
