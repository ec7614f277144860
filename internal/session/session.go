// Package session defines the per-user dialogue session record and its
// validated mutators.
package session

import (
	"time"

	"github.com/louisbranch/cardpath/internal/catalog"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
)

// State identifies the dialogue step a session is currently at.
type State int

const (
	// StateAskingAge is the entry state for every new session.
	StateAskingAge State = iota
	// StateMainMenu is the hub from which every sub-view is reachable.
	StateMainMenu
	// StateSelectingBank presents the list of banks.
	StateSelectingBank
	// StateSelectingCards presents the eligible cards of the selected bank.
	StateSelectingCards
	// StateComparing shows a comparison view.
	StateComparing
	// StateProfile shows points, invites and achievements.
	StateProfile
	// StatePromotions shows current promotions across eligible cards.
	StatePromotions
	// StateInvite shows the user's own referral link.
	StateInvite
)

// String returns a short state label used in logs and storage.
func (s State) String() string {
	switch s {
	case StateAskingAge:
		return "asking_age"
	case StateMainMenu:
		return "main_menu"
	case StateSelectingBank:
		return "selecting_bank"
	case StateSelectingCards:
		return "selecting_cards"
	case StateComparing:
		return "comparing"
	case StateProfile:
		return "profile"
	case StatePromotions:
		return "promotions"
	case StateInvite:
		return "invite"
	}
	return "unknown"
}

// ParseState maps a stored state label back to a State.
func ParseState(label string) (State, bool) {
	for st := StateAskingAge; st <= StateInvite; st++ {
		if st.String() == label {
			return st, true
		}
	}
	return StateAskingAge, false
}

// Session is the per-user dialogue record. One instance exists per user
// identifier; all mutation goes through a storage mutation so concurrent
// events for the same user never interleave.
type Session struct {
	UserID int64

	// Age is the numeric age bracket threshold; zero means not set yet.
	Age int

	State State
	// CompareReturn is where a back action from StateComparing leads,
	// depending on how the comparison was entered.
	CompareReturn State

	SelectedBank  string
	SelectedCards map[string]struct{}

	Points       int
	Achievements map[string]struct{}
	InvitedCount int

	// PreferenceCounts tracks how often each card-type tag was selected.
	// PreferenceOrder remembers first-seen tag order for tie-breaking.
	PreferenceCounts map[string]int
	PreferenceOrder  []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a fresh default session for a user.
func New(userID int64, now time.Time) Session {
	return Session{
		UserID:           userID,
		State:            StateAskingAge,
		CompareReturn:    StateSelectingBank,
		SelectedCards:    make(map[string]struct{}),
		Achievements:     make(map[string]struct{}),
		PreferenceCounts: make(map[string]int),
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}

// Clone returns a deep copy. Stores hand mutators a clone and commit it only
// when the whole event succeeds.
func (s Session) Clone() Session {
	out := s
	out.SelectedCards = make(map[string]struct{}, len(s.SelectedCards))
	for id := range s.SelectedCards {
		out.SelectedCards[id] = struct{}{}
	}
	out.Achievements = make(map[string]struct{}, len(s.Achievements))
	for id := range s.Achievements {
		out.Achievements[id] = struct{}{}
	}
	out.PreferenceCounts = make(map[string]int, len(s.PreferenceCounts))
	for tag, n := range s.PreferenceCounts {
		out.PreferenceCounts[tag] = n
	}
	out.PreferenceOrder = make([]string, len(s.PreferenceOrder))
	copy(out.PreferenceOrder, s.PreferenceOrder)
	return out
}

// AgeSet reports whether the user has picked an age bracket.
func (s *Session) AgeSet() bool {
	return s.Age > 0
}

// SetAge stores the numeric age bracket threshold.
func (s *Session) SetAge(age int) {
	s.Age = age
}

// ClearAge resets the age bracket, used by the back action from bank
// selection.
func (s *Session) ClearAge() {
	s.Age = 0
}

// HasCard reports whether the card is currently selected.
func (s *Session) HasCard(id string) bool {
	_, ok := s.SelectedCards[id]
	return ok
}

// Toggle adds the card to the selection, or removes it when already present.
// Adding requires the age bracket to be set and the card to be age-eligible;
// removal has no preconditions. Returns whether the card ended up selected.
func (s *Session) Toggle(card catalog.Card) (added bool, err error) {
	if s.HasCard(card.ID()) {
		delete(s.SelectedCards, card.ID())
		return false, nil
	}
	if !s.AgeSet() {
		return false, apperrors.New(apperrors.CodeAgeNotSet, "age bracket is not set")
	}
	if card.AgeLimit > s.Age {
		return false, apperrors.Newf(apperrors.CodeAgeIneligible,
			"card %s requires age %d", card.ID(), card.AgeLimit)
	}
	s.SelectedCards[card.ID()] = struct{}{}
	for _, tag := range card.CardTypes {
		if _, seen := s.PreferenceCounts[tag]; !seen {
			s.PreferenceOrder = append(s.PreferenceOrder, tag)
		}
		s.PreferenceCounts[tag]++
	}
	return true, nil
}

// AddPoints credits gamification points.
func (s *Session) AddPoints(n int) {
	s.Points += n
}

// RecommendedType returns the card-type tag with the strictly highest
// preference count. Ties resolve to the first-seen tag.
func (s *Session) RecommendedType() (string, bool) {
	best := ""
	bestCount := 0
	for _, tag := range s.PreferenceOrder {
		if n := s.PreferenceCounts[tag]; n > bestCount {
			best = tag
			bestCount = n
		}
	}
	if bestCount == 0 {
		return "", false
	}
	return best, true
}

// SelectedIDs returns the selected card identifiers. Order is unspecified;
// membership is what matters.
func (s *Session) SelectedIDs() []string {
	out := make([]string, 0, len(s.SelectedCards))
	for id := range s.SelectedCards {
		out = append(out, id)
	}
	return out
}
