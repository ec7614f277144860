package achievement

import (
	"testing"
	"time"

	"github.com/louisbranch/cardpath/internal/session"
)

func TestEvaluateUnlocksOnce(t *testing.T) {
	defs := Defaults()
	s := session.New(1, time.Now())
	s.SelectedCards["Alpha/Teen"] = struct{}{}

	unlocked := Evaluate(defs, &s)
	if len(unlocked) != 1 || unlocked[0].ID != "first_card" {
		t.Fatalf("expected first_card, got %v", unlocked)
	}

	// Re-evaluating with the predicate still true emits nothing new.
	for i := 0; i < 3; i++ {
		if again := Evaluate(defs, &s); len(again) != 0 {
			t.Fatalf("pass %d: expected no new unlocks, got %v", i, again)
		}
	}
	if len(s.Achievements) != 1 {
		t.Fatalf("achievement recorded %d times", len(s.Achievements))
	}
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*session.Session)
		want  []string
	}{
		{
			name:  "three cards",
			setup: func(s *session.Session) { addCards(s, 3) },
			want:  []string{"first_card", "comparer"},
		},
		{
			name:  "two cards",
			setup: func(s *session.Session) { addCards(s, 2) },
			want:  []string{"first_card"},
		},
		{
			name:  "five invites",
			setup: func(s *session.Session) { s.InvitedCount = 5 },
			want:  []string{"inviter"},
		},
		{
			name:  "four invites",
			setup: func(s *session.Session) { s.InvitedCount = 4 },
			want:  nil,
		},
		{
			name:  "hundred points",
			setup: func(s *session.Session) { s.Points = 100 },
			want:  []string{"pro"},
		},
		{
			name:  "ninety points",
			setup: func(s *session.Session) { s.Points = 90 },
			want:  nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := session.New(1, time.Now())
			tc.setup(&s)
			unlocked := Evaluate(Defaults(), &s)
			if len(unlocked) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, unlocked)
			}
			for i, def := range unlocked {
				if def.ID != tc.want[i] {
					t.Fatalf("unlock %d = %s, want %s", i, def.ID, tc.want[i])
				}
			}
		})
	}
}

func addCards(s *session.Session, n int) {
	ids := []string{"Alpha/A", "Alpha/B", "Beta/C", "Beta/D"}
	for i := 0; i < n; i++ {
		s.SelectedCards[ids[i]] = struct{}{}
	}
}
