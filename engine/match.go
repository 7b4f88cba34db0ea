// Package engine implements the Breach dueling card game rules.
//
// Two combatants each hold a private 20-card deck of move cards. Every round
// both choose one distance-legal card from their hand; once both choices are
// buffered the engine reveals them simultaneously, resolves the matchup, and
// applies damage, statuses and the shared distance delta. The engine is a
// pure, single-threaded state machine: it performs no I/O, no scheduling, and
// all randomness comes from the seed injected at match creation, so matches
// replay deterministically.
package engine

const (
	MinDistance uint8 = 0
	MaxDistance uint8 = 4
	DeckSize          = 20
	MaxHandSize       = 5
)

// Phase is the match state machine's current phase tag. Revealing, Resolving
// and RoundComplete are transited synchronously inside the submission that
// completes a round; externally a match is observed in AwaitingChoices,
// MatchOver or Aborted.
type Phase uint8

const (
	PhaseAwaitingChoices Phase = iota
	PhaseRevealing
	PhaseResolving
	PhaseRoundComplete
	PhaseMatchOver
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingChoices:
		return "awaiting_choices"
	case PhaseRevealing:
		return "revealing"
	case PhaseResolving:
		return "resolving"
	case PhaseRoundComplete:
		return "round_complete"
	case PhaseMatchOver:
		return "match_over"
	case PhaseAborted:
		return "aborted"
	}
	return "unknown"
}

// ResultKind classifies a finished match.
type ResultKind uint8

const (
	ResultNone ResultKind = iota // match not over
	ResultWin
	ResultDraw
)

// Result is the match outcome, meaningful once Phase() == PhaseMatchOver.
type Result struct {
	Kind   ResultKind
	Winner int8 // combatant index when Kind == ResultWin, else -1
}

// RoundRecord is an immutable audit entry for one resolved round.
type RoundRecord struct {
	Round          uint16       // 1-based round number
	Cards          [2]CardType  // cards revealed
	Fizzled        [2]bool      // card was illegal for the distance (empty legal set) and resolved as Idle
	Damage         [2]uint8     // damage taken by each side
	Blocked        [2]bool      // incoming damage to that side was prevented
	Statuses       [2]Status    // statuses entering effect next round
	Distance       uint8        // distance after resolution
	HP             [2]uint8     // hit points after resolution
	PriorityWinner int8
}

// Config enumerates the per-match parameters.
type Config struct {
	StartingHP       uint8
	HandSize         uint8
	MaxRounds        uint16 // 0 = unlimited; reaching the cap with no elimination is a draw
	StartingDistance uint8
	Seed             uint64 // shuffle RNG seed; reuse for deterministic replay
}

// DefaultConfig returns the standard duel parameters.
func DefaultConfig() Config {
	return Config{
		StartingHP:       3,
		HandSize:         3,
		MaxRounds:        30,
		StartingDistance: 2,
	}
}

// MatchState holds the complete, self-contained state of one duel. All
// mutation flows through SubmitChoice; there is no process-wide state, so any
// number of matches can run concurrently.
type MatchState struct {
	Combatants [2]CombatantState
	Distance   uint8
	Round      uint16 // rounds resolved so far
	Cfg        Config

	phase     Phase
	pending   [2]CardType // buffered choices, hidden until both are present
	fizzled   [2]bool
	submitted [2]bool
	history   []RoundRecord
	result    Result
	abortErr  error
	rng       uint64
}

// ---------------------------------------------------------------------------
// xorshift64 RNG (inline, no interface)
// ---------------------------------------------------------------------------

func (m *MatchState) nextRand() uint64 {
	x := m.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	m.rng = x
	return x
}

// randN returns a random number in [0, n).
func (m *MatchState) randN(n uint64) uint64 {
	return m.nextRand() % n
}

// ---------------------------------------------------------------------------
// NewMatch
// ---------------------------------------------------------------------------

// NewMatch validates the config, builds and shuffles both decks, and deals
// the opening hands. Out-of-range config values fail with ErrInvalidConfig.
func NewMatch(cfg Config) (*MatchState, error) {
	if cfg.StartingHP == 0 {
		return nil, errInvalidConfig("starting hit points must be at least 1")
	}
	if cfg.HandSize == 0 || cfg.HandSize > MaxHandSize {
		return nil, errInvalidConfig("hand size must be between 1 and %d", MaxHandSize)
	}
	if int(cfg.HandSize) > DeckSize {
		return nil, errInvalidConfig("hand size exceeds deck size %d", DeckSize)
	}
	if cfg.StartingDistance > MaxDistance {
		return nil, errInvalidConfig("starting distance must be at most %d", MaxDistance)
	}

	m := &MatchState{
		Distance: cfg.StartingDistance,
		Cfg:      cfg,
		phase:    PhaseAwaitingChoices,
		result:   Result{Kind: ResultNone, Winner: -1},
		rng:      cfg.Seed,
	}
	if m.rng == 0 {
		m.rng = 1 // xorshift can't start at 0
	}

	for i := 0; i < 2; i++ {
		c := &m.Combatants[i]
		c.HP = cfg.StartingHP
		c.Deck = startingDeck
		c.DeckLen = DeckSize

		// Fisher-Yates shuffle.
		for k := int(c.DeckLen) - 1; k > 0; k-- {
			j := int(m.randN(uint64(k + 1)))
			c.Deck[k], c.Deck[j] = c.Deck[j], c.Deck[k]
		}

		// Opening hand. Cannot exhaust: hand size is validated against DeckSize.
		if err := c.DrawToHandSize(cfg.HandSize, m.randN); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ---------------------------------------------------------------------------
// Submission and round resolution
// ---------------------------------------------------------------------------

// SubmitChoice buffers one combatant's card choice for the current round.
// Neither side observes the other's choice before both are committed; the
// round resolves synchronously inside the call that supplies the second
// choice.
//
// An illegal submission (wrong phase, already committed, card not in hand or
// not distance-legal) returns ErrIllegalMove and mutates nothing; the caller
// resubmits. An unregistered card tag aborts the match with
// ErrUnknownCardType.
func (m *MatchState) SubmitChoice(side uint8, card CardType) error {
	if side > 1 {
		return errIllegal("combatant index %d out of range", side)
	}
	if m.phase != PhaseAwaitingChoices {
		return errIllegal("match is not accepting submissions (phase %s)", m.phase)
	}
	if _, err := Lookup(card); err != nil {
		// Catalog mismatch is a build-time defect: abort rather than skip.
		m.abort(err)
		return err
	}
	if m.submitted[side] {
		return errIllegal("combatant %d has already committed a card this round", side)
	}

	c := &m.Combatants[side]
	inHand := false
	for i := uint8(0); i < c.HandLen; i++ {
		if c.Hand[i] == card {
			inHand = true
			break
		}
	}
	if !inHand {
		return errIllegal("card %s is not in combatant %d's hand", catalog[card].Name, side)
	}

	// A card must be legal for the current distance. When the whole hand is
	// distance-illegal any card may be played, but it fizzles to Idle.
	legal := LegalMoves(c.Hand[:c.HandLen], m.Distance)
	fizzle := len(legal) == 0
	if !fizzle && !catalog[card].LegalAt(m.Distance) {
		return errIllegal("card %s is not legal at distance %d", catalog[card].Name, m.Distance)
	}

	if err := c.PlayCard(card); err != nil {
		return err
	}
	m.pending[side] = card
	m.fizzled[side] = fizzle
	m.submitted[side] = true

	if m.submitted[0] && m.submitted[1] {
		m.resolveRound()
	}
	return nil
}

// HasSubmitted reports whether the given side has committed a card this
// round. The buffered card itself is never observable before the reveal.
func (m *MatchState) HasSubmitted(side uint8) bool {
	return side <= 1 && m.submitted[side]
}

// resolveRound walks Revealing → Resolving → RoundComplete for the buffered
// pair of choices.
func (m *MatchState) resolveRound() {
	// Revealing: both buffered choices become visible and fixed.
	m.phase = PhaseRevealing
	rec := RoundRecord{
		Round:   m.Round + 1,
		Cards:   m.pending,
		Fizzled: m.fizzled,
	}

	// Resolving: pure matchup resolution, then state application.
	m.phase = PhaseResolving
	eff := m.pending
	for i := 0; i < 2; i++ {
		if m.fizzled[i] {
			eff[i] = CardIdle
		}
	}
	out := Resolve(eff[0], eff[1], m.Distance, m.Combatants[0].Status, m.Combatants[1].Status)

	for i := 0; i < 2; i++ {
		m.Combatants[i].ApplyDamage(out.Damage[i])
		m.Combatants[i].ApplyStatus(out.Applied[i])
		m.Combatants[i].discardPlayed(m.pending[i])
	}
	m.Distance = clampDistance(int8(m.Distance) + out.Delta)
	m.Round++

	rec.Damage = out.Damage
	rec.Blocked = out.Blocked
	rec.Statuses = out.Applied
	rec.Distance = m.Distance
	rec.HP = [2]uint8{m.Combatants[0].HP, m.Combatants[1].HP}
	rec.PriorityWinner = out.PriorityWinner
	m.history = append(m.history, rec)

	// Played cards are in the discard piles now; clear the buffers before any
	// terminal transition so card counts stay exact.
	m.pending = [2]CardType{}
	m.fizzled = [2]bool{}
	m.submitted = [2]bool{}

	// RoundComplete: terminal checks, then redraw for the next round.
	m.phase = PhaseRoundComplete

	e0 := m.Combatants[0].IsEliminated()
	e1 := m.Combatants[1].IsEliminated()
	switch {
	case e0 && e1:
		m.finish(Result{Kind: ResultDraw, Winner: -1})
		return
	case e0:
		m.finish(Result{Kind: ResultWin, Winner: 1})
		return
	case e1:
		m.finish(Result{Kind: ResultWin, Winner: 0})
		return
	}

	if m.Cfg.MaxRounds > 0 && m.Round >= m.Cfg.MaxRounds {
		m.finish(Result{Kind: ResultDraw, Winner: -1})
		return
	}

	for i := 0; i < 2; i++ {
		if err := m.Combatants[i].DrawToHandSize(m.Cfg.HandSize, m.randN); err != nil {
			m.abort(err)
			return
		}
	}
	for i := 0; i < 2; i++ {
		m.Combatants[i].tickStatus()
	}

	m.phase = PhaseAwaitingChoices
}

func (m *MatchState) finish(r Result) {
	m.result = r
	m.phase = PhaseMatchOver
}

func (m *MatchState) abort(err error) {
	// A buffered choice has already left its owner's hand. Move it to the
	// discard pile so the fixed card count holds in the Aborted state too.
	for side := uint8(0); side < 2; side++ {
		if m.submitted[side] {
			m.Combatants[side].discardPlayed(m.pending[side])
		}
	}
	m.pending = [2]CardType{}
	m.fizzled = [2]bool{}
	m.submitted = [2]bool{}
	m.abortErr = err
	m.phase = PhaseAborted
}

func clampDistance(d int8) uint8 {
	if d < int8(MinDistance) {
		return MinDistance
	}
	if d > int8(MaxDistance) {
		return MaxDistance
	}
	return uint8(d)
}

// ---------------------------------------------------------------------------
// Query methods (all read-only)
// ---------------------------------------------------------------------------

// Phase returns the current phase tag.
func (m *MatchState) Phase() Phase { return m.phase }

// Result returns the match outcome. Kind is ResultNone until PhaseMatchOver.
func (m *MatchState) Result() Result { return m.result }

// Err returns the fatal error that aborted the match, or nil.
func (m *MatchState) Err() error { return m.abortErr }

// History returns the resolved rounds in order. The returned slice is a copy;
// records are immutable once written.
func (m *MatchState) History() []RoundRecord {
	out := make([]RoundRecord, len(m.history))
	copy(out, m.history)
	return out
}

// LegalMovesFor returns the card types the given side may play right now.
func (m *MatchState) LegalMovesFor(side uint8) []CardType {
	if side > 1 {
		return nil
	}
	c := &m.Combatants[side]
	return LegalMoves(c.Hand[:c.HandLen], m.Distance)
}

// cardCount returns the total cards owned by one side, including a buffered
// in-play card. Must equal DeckSize at every phase boundary.
func (m *MatchState) cardCount(side uint8) uint8 {
	n := m.Combatants[side].CardCount()
	if m.submitted[side] {
		n++
	}
	return n
}

// ---------------------------------------------------------------------------
// Snapshot (Save / Restore)
// ---------------------------------------------------------------------------

// Snapshot is a deep value-copy of MatchState.
type Snapshot MatchState

// Save returns a snapshot of the current match state.
func (m *MatchState) Save() Snapshot {
	s := Snapshot(*m)
	s.history = append([]RoundRecord(nil), m.history...)
	return s
}

// Restore replaces the match state with the given snapshot.
func (m *MatchState) Restore(s Snapshot) {
	*m = MatchState(s)
	m.history = append([]RoundRecord(nil), s.history...)
}
