package engine

import "fmt"

// CombatantState holds one side's deck, hand, discard pile, hit points and
// status flags. Flat value type: fixed arrays with explicit lengths.
//
// Invariant: DeckLen + HandLen + DiscardLen, plus the combatant's in-play
// card if one is buffered on the match, always equals DeckSize.
type CombatantState struct {
	Deck       [DeckSize]CardType
	DeckLen    uint8
	Hand       [MaxHandSize]CardType
	HandLen    uint8
	Discard    [DeckSize]CardType
	DiscardLen uint8
	HP         uint8
	Status     Status // active for the current round
	nextStatus Status // accumulated during Resolving, promoted at round end
}

// PlayCard removes the first matching card from the hand. The caller owns the
// removed card (it is "in play") until it is discarded via discardPlayed.
func (c *CombatantState) PlayCard(t CardType) error {
	for i := uint8(0); i < c.HandLen; i++ {
		if c.Hand[i] != t {
			continue
		}
		c.HandLen--
		c.Hand[i] = c.Hand[c.HandLen]
		return nil
	}
	return fmt.Errorf("card %d not in hand: %w", t, ErrIllegalMove)
}

// discardPlayed appends a previously played card to the discard pile.
func (c *CombatantState) discardPlayed(t CardType) {
	c.Discard[c.DiscardLen] = t
	c.DiscardLen++
}

// ApplyDamage subtracts n hit points, clamping at zero. Zero hit points
// signals elimination.
func (c *CombatantState) ApplyDamage(n uint8) {
	if n >= c.HP {
		c.HP = 0
		return
	}
	c.HP -= n
}

// ApplyStatus schedules status flags to take effect next round.
func (c *CombatantState) ApplyStatus(s Status) {
	c.nextStatus |= s
}

// tickStatus expires the current round's statuses and promotes the ones
// applied during it.
func (c *CombatantState) tickStatus() {
	c.Status = c.nextStatus
	c.nextStatus = 0
}

// IsEliminated reports whether the combatant's hit points have reached zero.
func (c *CombatantState) IsEliminated() bool { return c.HP == 0 }

// CardCount returns the number of cards across deck, hand and discard pile.
// Does not include an in-play card buffered on the match.
func (c *CombatantState) CardCount() uint8 {
	return c.DeckLen + c.HandLen + c.DiscardLen
}

// DrawToHandSize refills the hand up to handSize, reshuffling the discard
// pile into the deck (via randN, which returns a value in [0, n)) whenever
// the deck runs dry mid-draw. The draw is atomic: if deck and discard
// together cannot cover the shortfall, it fails with ErrDeckExhausted before
// moving any card: that means the fixed card count was violated somewhere.
func (c *CombatantState) DrawToHandSize(handSize uint8, randN func(n uint64) uint64) error {
	if c.HandLen >= handSize {
		return nil
	}
	need := handSize - c.HandLen
	if c.DeckLen+c.DiscardLen < need {
		return fmt.Errorf("need %d cards, %d available: %w", need, c.DeckLen+c.DiscardLen, ErrDeckExhausted)
	}
	for i := uint8(0); i < need; i++ {
		if c.DeckLen == 0 {
			c.reshuffle(randN)
		}
		c.DeckLen--
		c.Hand[c.HandLen] = c.Deck[c.DeckLen]
		c.HandLen++
	}
	return nil
}

// reshuffle moves the discard pile into the deck and Fisher-Yates shuffles it.
func (c *CombatantState) reshuffle(randN func(n uint64) uint64) {
	for i := uint8(0); i < c.DiscardLen; i++ {
		c.Deck[i] = c.Discard[i]
	}
	c.DeckLen = c.DiscardLen
	c.DiscardLen = 0

	for i := int(c.DeckLen) - 1; i > 0; i-- {
		j := int(randN(uint64(i + 1)))
		c.Deck[i], c.Deck[j] = c.Deck[j], c.Deck[i]
	}
}
