// Package achievement defines gamification milestones and their unlock sweep.
//
// Predicates are pure functions over a session snapshot. They must be
// monotonic: once true for the counters they read, they stay true, because
// those counters only grow.
package achievement

import "github.com/louisbranch/cardpath/internal/session"

// Definition is one immutable achievement.
type Definition struct {
	ID          string
	DisplayName string
	Unlocked    func(session.Session) bool
}

// Defaults returns the built-in achievement table in display order.
func Defaults() []Definition {
	return []Definition{
		{
			ID:          "first_card",
			DisplayName: "First Card",
			Unlocked: func(s session.Session) bool {
				return len(s.SelectedCards) >= 1
			},
		},
		{
			ID:          "comparer",
			DisplayName: "Comparer",
			Unlocked: func(s session.Session) bool {
				return len(s.SelectedCards) >= 3
			},
		},
		{
			ID:          "inviter",
			DisplayName: "Inviter",
			Unlocked: func(s session.Session) bool {
				return s.InvitedCount >= 5
			},
		},
		{
			ID:          "pro",
			DisplayName: "Pro",
			Unlocked: func(s session.Session) bool {
				return s.Points >= 100
			},
		},
	}
}

// Evaluate sweeps the definitions against the session, records any newly
// satisfied achievements on it and returns them. Already unlocked
// achievements are never emitted again.
func Evaluate(defs []Definition, s *session.Session) []Definition {
	var unlocked []Definition
	for _, def := range defs {
		if _, done := s.Achievements[def.ID]; done {
			continue
		}
		if !def.Unlocked(*s) {
			continue
		}
		s.Achievements[def.ID] = struct{}{}
		unlocked = append(unlocked, def)
	}
	return unlocked
}
