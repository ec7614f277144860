package session

import (
	"testing"
	"time"

	"github.com/louisbranch/cardpath/internal/catalog"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
)

var (
	teenCard  = catalog.Card{Bank: "Alpha", Name: "Teen", AgeLimit: 14, CardTypes: []string{"student", "debit"}}
	adultCard = catalog.Card{Bank: "Alpha", Name: "Everyday", AgeLimit: 18, CardTypes: []string{"cashback"}}
)

func TestNewDefaults(t *testing.T) {
	s := New(42, time.Now())
	if s.UserID != 42 {
		t.Fatalf("user id = %d", s.UserID)
	}
	if s.AgeSet() {
		t.Fatal("age should start unset")
	}
	if s.State != StateAskingAge {
		t.Fatalf("state = %s, want asking_age", s.State)
	}
	if s.Points != 0 || len(s.SelectedCards) != 0 || len(s.Achievements) != 0 {
		t.Fatal("fresh session must have no progress")
	}
}

func TestToggleRequiresAge(t *testing.T) {
	s := New(1, time.Now())
	_, err := s.Toggle(teenCard)
	if !apperrors.IsCode(err, apperrors.CodeAgeNotSet) {
		t.Fatalf("expected AGE_NOT_SET, got %v", err)
	}
	if len(s.SelectedCards) != 0 {
		t.Fatal("rejected toggle must not mutate the selection")
	}
}

func TestToggleRejectsIneligibleCard(t *testing.T) {
	s := New(1, time.Now())
	s.SetAge(14)
	_, err := s.Toggle(adultCard)
	if !apperrors.IsCode(err, apperrors.CodeAgeIneligible) {
		t.Fatalf("expected AGE_INELIGIBLE, got %v", err)
	}
	if len(s.SelectedCards) != 0 || len(s.PreferenceCounts) != 0 {
		t.Fatal("rejected toggle must not mutate the session")
	}
}

func TestTogglePairReturnsToEmpty(t *testing.T) {
	s := New(1, time.Now())
	s.SetAge(18)

	added, err := s.Toggle(teenCard)
	if err != nil || !added {
		t.Fatalf("first toggle: added=%v err=%v", added, err)
	}
	if !s.HasCard(teenCard.ID()) {
		t.Fatal("card should be selected")
	}

	added, err = s.Toggle(teenCard)
	if err != nil || added {
		t.Fatalf("second toggle: added=%v err=%v", added, err)
	}
	if len(s.SelectedCards) != 0 {
		t.Fatal("selection should be empty again")
	}
}

func TestRecommendedTypeFirstSeenTieBreak(t *testing.T) {
	s := New(1, time.Now())
	s.SetAge(18)

	// student and debit both reach count 1; student was seen first.
	if _, err := s.Toggle(teenCard); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	tag, ok := s.RecommendedType()
	if !ok || tag != "student" {
		t.Fatalf("recommended = %q ok=%v, want student", tag, ok)
	}

	// cashback joins at count 1; first-seen order still wins.
	if _, err := s.Toggle(adultCard); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	tag, ok = s.RecommendedType()
	if !ok || tag != "student" {
		t.Fatalf("recommended = %q ok=%v, want student", tag, ok)
	}
}

func TestRecommendedTypeEmpty(t *testing.T) {
	s := New(1, time.Now())
	if _, ok := s.RecommendedType(); ok {
		t.Fatal("no picks should produce no recommendation")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(1, time.Now())
	s.SetAge(18)
	if _, err := s.Toggle(teenCard); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	clone := s.Clone()
	if _, err := clone.Toggle(adultCard); err != nil {
		t.Fatalf("clone toggle: %v", err)
	}
	clone.AddPoints(10)
	clone.Achievements["x"] = struct{}{}

	if len(s.SelectedCards) != 1 || s.Points != 0 || len(s.Achievements) != 0 {
		t.Fatal("mutating the clone must not touch the original")
	}
}

func TestParseStateRoundTrip(t *testing.T) {
	for st := StateAskingAge; st <= StateInvite; st++ {
		got, ok := ParseState(st.String())
		if !ok || got != st {
			t.Fatalf("round trip failed for %s", st)
		}
	}
	if _, ok := ParseState("bogus"); ok {
		t.Fatal("bogus label should not parse")
	}
}
