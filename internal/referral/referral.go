// Package referral credits referrer sessions when new users arrive through
// their invite links.
package referral

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/cardpath/internal/achievement"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
	"github.com/louisbranch/cardpath/internal/session"
	"github.com/louisbranch/cardpath/internal/storage"
)

// TokenPrefix starts every referral token.
const TokenPrefix = "ref_"

// Referral bonus amounts.
const (
	BonusPoints  = 50
	BonusInvites = 1
)

// Token formats the referral token a user shares in their invite link.
func Token(userID int64) string {
	return TokenPrefix + strconv.FormatInt(userID, 10)
}

// ParseToken extracts the referrer user id from a token of the form
// "ref_<id>".
func ParseToken(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, TokenPrefix) {
		return 0, apperrors.Newf(apperrors.CodeMalformedReferralToken,
			"referral token %q does not start with %q", token, TokenPrefix)
	}
	id, err := strconv.ParseInt(token[len(TokenPrefix):], 10, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.CodeMalformedReferralToken,
			"referral token %q has a non-numeric id", token)
	}
	return id, nil
}

// Tracker applies referral bonuses to referrer sessions.
type Tracker struct {
	sessions     storage.SessionStore
	achievements []achievement.Definition
}

// NewTracker creates a tracker over a session store and achievement table.
func NewTracker(sessions storage.SessionStore, achievements []achievement.Definition) *Tracker {
	return &Tracker{sessions: sessions, achievements: achievements}
}

// Apply credits the referrer for bringing in newUserID: +50 points, +1 to the
// invite counter, then an achievement sweep, all in one session mutation.
// Self-referral is a silent no-op. Returns the referrer's newly unlocked
// achievements.
func (t *Tracker) Apply(ctx context.Context, referrerID, newUserID int64) ([]achievement.Definition, error) {
	if referrerID == newUserID {
		return nil, nil
	}
	var unlocked []achievement.Definition
	_, err := t.sessions.Mutate(ctx, referrerID, func(s *session.Session) error {
		s.AddPoints(BonusPoints)
		s.InvitedCount += BonusInvites
		unlocked = achievement.Evaluate(t.achievements, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("credit referrer %d: %w", referrerID, err)
	}
	return unlocked, nil
}
