package engine

// Outcome is the result of resolving one pair of simultaneously revealed
// cards. Indices 0 and 1 correspond to the two argument positions of Resolve.
type Outcome struct {
	Damage  [2]uint8  // damage each side takes after blocks and overrides
	Blocked [2]bool   // true if incoming damage to that side was prevented
	Delta   int8      // net distance delta, shared by both sides (unclamped)
	Applied [2]Status // statuses each side gains for the next round
	// PriorityWinner is 0 or 1 when conflicting distance deltas were decided
	// by priority, -1 otherwise (no conflict, or equal-priority cancellation).
	PriorityWinner int8
}

// Resolve computes the outcome of revealing cards a and b at the given
// distance. It is pure and swap-symmetric: Resolve(b, a, …) with the statuses
// swapped yields the same outcome with sides 0 and 1 exchanged and an
// identical distance delta.
//
// Both inputs are assumed distance-legal (or CardIdle); the match state
// machine enforces legality before cards are accepted.
//
// Effect order: stun suppression, then overrides (Honeypot traps, Zero-Day
// bypass folded into the block step), then blocks, then statuses, then the
// distance delta.
func Resolve(a, b CardType, distance uint8, statusA, statusB Status) Outcome {
	_ = distance // legality is pre-checked; no card's effect varies by range

	cards := [2]*MoveCard{&catalog[a], &catalog[b]}
	status := [2]Status{statusA, statusB}

	out := Outcome{PriorityWinner: -1}

	// Raw damage dealt by each side. A stunned combatant's card deals none.
	var dealt [2]uint8
	for i := 0; i < 2; i++ {
		dealt[i] = cards[i].Damage
		if status[i]&StatusStunned != 0 {
			dealt[i] = 0
		}
	}

	// Honeypot: if the opponent attacked, the attack is negated and the
	// attacker is stunned for the next round. A trap, not a block; it works
	// even while Exposed.
	for i := 0; i < 2; i++ {
		opp := 1 - i
		if cards[i].Type == CardHoneypot && dealt[opp] > 0 {
			dealt[opp] = 0
			out.Blocked[i] = true
			out.Applied[opp] |= StatusStunned
		}
	}

	// Blocks. Zero-Day bypasses Patch but not Firewall; an Exposed combatant's
	// block has no effect.
	for i := 0; i < 2; i++ {
		opp := 1 - i
		incoming := dealt[opp]
		if incoming == 0 || cards[i].Block == 0 || status[i]&StatusExposed != 0 {
			out.Damage[i] = incoming
			continue
		}
		if cards[opp].Type == CardZeroDay && cards[i].Type == CardPatch {
			out.Damage[i] = incoming
			continue
		}
		prevented := cards[i].Block
		if prevented > incoming {
			prevented = incoming
		}
		out.Damage[i] = incoming - prevented
		if prevented > 0 {
			out.Blocked[i] = true
		}
	}

	// Card-applied statuses.
	for i := 0; i < 2; i++ {
		opp := 1 - i
		out.Applied[i] |= cards[i].SelfStatus
		out.Applied[opp] |= cards[i].TargetStatus
	}

	// Distance. Conflicting (opposite-sign) deltas with unequal priority
	// resolve to the higher-priority card's delta; equal priority sums the
	// deltas so they cancel. Non-conflicting deltas always sum.
	da, db := cards[0].Delta, cards[1].Delta
	switch {
	case da*db < 0 && cards[0].Priority > cards[1].Priority:
		out.Delta = da
		out.PriorityWinner = 0
	case da*db < 0 && cards[1].Priority > cards[0].Priority:
		out.Delta = db
		out.PriorityWinner = 1
	default:
		out.Delta = da + db
	}

	return out
}
