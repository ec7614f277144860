package referral

import (
	"context"
	"testing"

	"github.com/louisbranch/cardpath/internal/achievement"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
	"github.com/louisbranch/cardpath/internal/session"
	"github.com/louisbranch/cardpath/internal/storage/memory"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		token   string
		want    int64
		wantErr bool
	}{
		{token: "ref_42", want: 42},
		{token: " ref_42 ", want: 42},
		{token: "ref_-7", want: -7},
		{token: "ref_abc", wantErr: true},
		{token: "ref_", wantErr: true},
		{token: "friend_42", wantErr: true},
		{token: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseToken(tc.token)
		if tc.wantErr {
			if !apperrors.IsCode(err, apperrors.CodeMalformedReferralToken) {
				t.Fatalf("token %q: expected MALFORMED_REFERRAL_TOKEN, got %v", tc.token, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("token %q: %v", tc.token, err)
		}
		if got != tc.want {
			t.Fatalf("token %q = %d, want %d", tc.token, got, tc.want)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	id, err := ParseToken(Token(99))
	if err != nil || id != 99 {
		t.Fatalf("round trip: id=%d err=%v", id, err)
	}
}

func TestApplyCreditsReferrer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tracker := NewTracker(store, achievement.Defaults())

	// Referrer starts with 40 points.
	if _, err := store.Mutate(ctx, 7, func(s *session.Session) error {
		s.AddPoints(40)
		return nil
	}); err != nil {
		t.Fatalf("seed referrer: %v", err)
	}

	unlocked, err := tracker.Apply(ctx, 7, 8)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get referrer: %v", err)
	}
	if got.Points != 90 {
		t.Fatalf("points = %d, want 90", got.Points)
	}
	if got.InvitedCount != 1 {
		t.Fatalf("invited = %d, want 1", got.InvitedCount)
	}
	// 90 points stays under the pro threshold.
	if len(unlocked) != 0 {
		t.Fatalf("unexpected unlocks %v", unlocked)
	}
}

func TestApplySelfReferralIsNoop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tracker := NewTracker(store, achievement.Defaults())

	unlocked, err := tracker.Apply(ctx, 7, 7)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if unlocked != nil {
		t.Fatalf("unexpected unlocks %v", unlocked)
	}
	// No session may be created or mutated for the self-referrer.
	if _, err := store.Get(ctx, 7); err == nil {
		t.Fatal("self-referral must not create a session")
	}
}

func TestApplyUnlocksInviter(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tracker := NewTracker(store, achievement.Defaults())

	var last []achievement.Definition
	for i := int64(0); i < 5; i++ {
		var err error
		last, err = tracker.Apply(ctx, 7, 100+i)
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	found := false
	for _, def := range last {
		if def.ID == "inviter" {
			found = true
		}
	}
	if !found {
		t.Fatalf("fifth invite should unlock inviter, got %v", last)
	}

	got, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get referrer: %v", err)
	}
	if got.InvitedCount != 5 {
		t.Fatalf("invited = %d, want 5", got.InvitedCount)
	}
	// 5 invites x 50 points also crosses the pro threshold.
	if _, ok := got.Achievements["pro"]; !ok {
		t.Fatal("pro should be unlocked at 250 points")
	}
}
