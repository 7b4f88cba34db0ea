package engine

import "fmt"

// CardType identifies a move card in the catalog.
type CardType uint8

const (
	// CardIdle is internal only: it is never part of a deck, and is the card a
	// fizzled play resolves as.
	CardIdle CardType = iota
	CardProbe
	CardRetreat
	CardExploit
	CardPatch
	CardFirewall
	CardDDoS
	CardZeroDay
	CardRootkit
	CardHoneypot

	NumCardTypes
)

// Status is a bitmask of combatant status flags. A status applied during one
// round is active for exactly the following round, then expires unless a card
// refreshes it.
type Status uint8

const (
	// StatusExposed negates the combatant's own block effects (Patch, Firewall).
	StatusExposed Status = 1 << 0
	// StatusStunned zeroes the damage of the combatant's played card.
	StatusStunned Status = 1 << 1
)

// BlockAll marks a card that blocks any amount of incoming damage.
const BlockAll uint8 = 0xFF

// MoveCard is the immutable definition of one card type. Exactly one instance
// per type exists, in the catalog below.
type MoveCard struct {
	Type         CardType
	Name         string
	MinDistance  uint8
	MaxDistance  uint8
	Priority     uint8
	Damage       uint8
	Delta        int8   // distance delta; negative advances (closes distance)
	Block        uint8  // incoming damage absorbed (BlockAll = unlimited)
	SelfStatus   Status // applied to the player for the next round
	TargetStatus Status // applied to the opponent for the next round
	Override     bool   // resolved before base effects (ZeroDay, Honeypot)
}

// String returns the card's display name.
func (t CardType) String() string {
	if t >= NumCardTypes {
		return "unknown"
	}
	return catalog[t].Name
}

// LegalAt reports whether the card may be played at the given distance.
func (c *MoveCard) LegalAt(distance uint8) bool {
	return distance >= c.MinDistance && distance <= c.MaxDistance
}

// catalog holds the fixed card roster, indexed by CardType. Closed at build
// time; Lookup failures indicate a programming error in the caller.
var catalog = [NumCardTypes]MoveCard{
	CardIdle:     {Type: CardIdle, Name: "Idle", MinDistance: MinDistance, MaxDistance: MaxDistance},
	CardProbe:    {Type: CardProbe, Name: "Probe", MinDistance: 1, MaxDistance: 4, Priority: 1, Delta: -1},
	CardRetreat:  {Type: CardRetreat, Name: "Retreat", MinDistance: 0, MaxDistance: 3, Priority: 1, Delta: +1},
	CardExploit:  {Type: CardExploit, Name: "Exploit", MinDistance: 0, MaxDistance: 3, Priority: 2, Damage: 1, Delta: -1},
	CardPatch:    {Type: CardPatch, Name: "Patch", MinDistance: 0, MaxDistance: 4, Priority: 3, Block: 1},
	CardFirewall: {Type: CardFirewall, Name: "Firewall", MinDistance: 0, MaxDistance: 4, Priority: 3, Block: BlockAll, SelfStatus: StatusExposed},
	CardDDoS:     {Type: CardDDoS, Name: "DDoS", MinDistance: 2, MaxDistance: 4, Priority: 1, Damage: 2, SelfStatus: StatusExposed},
	CardZeroDay:  {Type: CardZeroDay, Name: "Zero-Day", MinDistance: 0, MaxDistance: 2, Priority: 4, Damage: 1, Override: true},
	CardRootkit:  {Type: CardRootkit, Name: "Rootkit", MinDistance: 0, MaxDistance: 1, Priority: 2, TargetStatus: StatusExposed},
	CardHoneypot: {Type: CardHoneypot, Name: "Honeypot", MinDistance: 0, MaxDistance: 4, Priority: 4, Override: true},
}

// startingDeck is the fixed 20-card deck every combatant begins with.
var startingDeck = [DeckSize]CardType{
	CardProbe, CardProbe, CardProbe,
	CardRetreat, CardRetreat, CardRetreat,
	CardExploit, CardExploit, CardExploit, CardExploit,
	CardPatch, CardPatch, CardPatch,
	CardFirewall, CardFirewall,
	CardDDoS, CardDDoS,
	CardZeroDay,
	CardRootkit,
	CardHoneypot,
}

// Lookup returns the catalog entry for the given type tag. Tags outside the
// registered roster return ErrUnknownCardType. The catalog is closed and
// fixed, so this is a build-time defect, not a recoverable condition.
func Lookup(t CardType) (MoveCard, error) {
	if t >= NumCardTypes {
		return MoveCard{}, fmt.Errorf("card tag %d: %w", t, ErrUnknownCardType)
	}
	return catalog[t], nil
}

// LegalMoves filters a hand down to the set of card types playable at the
// given distance. Duplicates in the hand collapse to a single entry.
func LegalMoves(hand []CardType, distance uint8) []CardType {
	var moves []CardType
	for _, t := range hand {
		if t >= NumCardTypes {
			continue
		}
		card := &catalog[t]
		if !card.LegalAt(distance) {
			continue
		}
		dup := false
		for _, m := range moves {
			if m == t {
				dup = true
				break
			}
		}
		if !dup {
			moves = append(moves, t)
		}
	}
	return moves
}
