package engine

import "testing"

// mirrorOutcome swaps the two sides of an outcome. The distance delta is
// shared state and stays sign-consistent.
func mirrorOutcome(o Outcome) Outcome {
	m := Outcome{
		Damage:         [2]uint8{o.Damage[1], o.Damage[0]},
		Blocked:        [2]bool{o.Blocked[1], o.Blocked[0]},
		Delta:          o.Delta,
		Applied:        [2]Status{o.Applied[1], o.Applied[0]},
		PriorityWinner: o.PriorityWinner,
	}
	if o.PriorityWinner >= 0 {
		m.PriorityWinner = 1 - o.PriorityWinner
	}
	return m
}

// TestResolveSwapSymmetric sweeps every card pair, distance and status
// combination and verifies Resolve(a,b) mirrors Resolve(b,a).
func TestResolveSwapSymmetric(t *testing.T) {
	statuses := []Status{0, StatusExposed, StatusStunned, StatusExposed | StatusStunned}

	for a := CardType(0); a < NumCardTypes; a++ {
		for b := CardType(0); b < NumCardTypes; b++ {
			for d := MinDistance; d <= MaxDistance; d++ {
				for _, sa := range statuses {
					for _, sb := range statuses {
						fwd := Resolve(a, b, d, sa, sb)
						rev := mirrorOutcome(Resolve(b, a, d, sb, sa))
						if fwd != rev {
							t.Fatalf("Resolve(%s, %s, d=%d, sa=%d, sb=%d) not swap-symmetric:\n fwd %+v\n rev %+v",
								catalog[a].Name, catalog[b].Name, d, sa, sb, fwd, rev)
						}
					}
				}
			}
		}
	}
}

// TestResolveMatchups verifies the enumerated card-pair outcomes.
func TestResolveMatchups(t *testing.T) {
	tests := []struct {
		name   string
		a, b   CardType
		sa, sb Status
		want   Outcome
	}{
		{
			name: "exploit vs patch: blocked, attacker closes",
			a:    CardExploit, b: CardPatch,
			want: Outcome{Blocked: [2]bool{false, true}, Delta: -1, PriorityWinner: -1},
		},
		{
			name: "exploit vs exploit: both hit, both close",
			a:    CardExploit, b: CardExploit,
			want: Outcome{Damage: [2]uint8{1, 1}, Delta: -2, PriorityWinner: -1},
		},
		{
			name: "zero-day bypasses patch",
			a:    CardZeroDay, b: CardPatch,
			want: Outcome{Damage: [2]uint8{0, 1}, Delta: 0, PriorityWinner: -1},
		},
		{
			name: "firewall stops zero-day, defender exposed next round",
			a:    CardZeroDay, b: CardFirewall,
			want: Outcome{Blocked: [2]bool{false, true}, Applied: [2]Status{0, StatusExposed}, PriorityWinner: -1},
		},
		{
			name: "honeypot traps exploit: negated and stunned",
			a:    CardHoneypot, b: CardExploit,
			want: Outcome{Blocked: [2]bool{true, false}, Applied: [2]Status{0, StatusStunned}, Delta: -1, PriorityWinner: -1},
		},
		{
			name: "honeypot vs honeypot: nothing happens",
			a:    CardHoneypot, b: CardHoneypot,
			want: Outcome{PriorityWinner: -1},
		},
		{
			name: "honeypot ignores non-attacks",
			a:    CardHoneypot, b: CardProbe,
			want: Outcome{Delta: -1, PriorityWinner: -1},
		},
		{
			name: "ddos vs patch: one of two flood points lands",
			a:    CardDDoS, b: CardPatch,
			want: Outcome{Damage: [2]uint8{0, 1}, Blocked: [2]bool{false, true}, Applied: [2]Status{StatusExposed, 0}, PriorityWinner: -1},
		},
		{
			name: "ddos vs firewall: fully absorbed, both exposed",
			a:    CardDDoS, b: CardFirewall,
			want: Outcome{Blocked: [2]bool{false, true}, Applied: [2]Status{StatusExposed, StatusExposed}, PriorityWinner: -1},
		},
		{
			name: "exposed patch fails to block",
			a:    CardExploit, b: CardPatch,
			sb:   StatusExposed,
			want: Outcome{Damage: [2]uint8{0, 1}, Delta: -1, PriorityWinner: -1},
		},
		{
			name: "stunned exploiter deals no damage",
			a:    CardExploit, b: CardProbe,
			sa:   StatusStunned,
			want: Outcome{Delta: -2, PriorityWinner: -1},
		},
		{
			name: "rootkit marks the opponent",
			a:    CardRootkit, b: CardPatch,
			want: Outcome{Applied: [2]Status{0, StatusExposed}, PriorityWinner: -1},
		},
		{
			name: "probe vs retreat: equal priority, deltas cancel",
			a:    CardProbe, b: CardRetreat,
			want: Outcome{Delta: 0, PriorityWinner: -1},
		},
		{
			name: "probe vs probe: both close",
			a:    CardProbe, b: CardProbe,
			want: Outcome{Delta: -2, PriorityWinner: -1},
		},
		{
			name: "exploit runs down a retreat: higher priority wins the conflict",
			a:    CardExploit, b: CardRetreat,
			want: Outcome{Damage: [2]uint8{0, 1}, Delta: -1, PriorityWinner: 0},
		},
		{
			name: "idle does nothing against an attack",
			a:    CardIdle, b: CardExploit,
			want: Outcome{Damage: [2]uint8{1, 0}, Delta: -1, PriorityWinner: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.a, tt.b, 2, tt.sa, tt.sb)
			if got != tt.want {
				t.Errorf("Resolve(%s, %s) = %+v, want %+v", catalog[tt.a].Name, catalog[tt.b].Name, got, tt.want)
			}
		})
	}
}

// TestResolvePure verifies the resolver has no hidden state: repeated calls
// with the same inputs return identical outcomes.
func TestResolvePure(t *testing.T) {
	first := Resolve(CardExploit, CardPatch, 2, 0, 0)
	for i := 0; i < 10; i++ {
		if got := Resolve(CardExploit, CardPatch, 2, 0, 0); got != first {
			t.Fatalf("call %d diverged: %+v vs %+v", i, got, first)
		}
	}
}
