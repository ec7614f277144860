// Package dialog implements the conversation controller: a per-session state
// machine that dispatches inbound events to handlers, drives the catalog,
// comparison, achievement and referral engines, and produces abstract menu
// descriptions for a rendering adapter.
package dialog

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/cardpath/internal/achievement"
	"github.com/louisbranch/cardpath/internal/catalog"
	"github.com/louisbranch/cardpath/internal/compare"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
	"github.com/louisbranch/cardpath/internal/referral"
	"github.com/louisbranch/cardpath/internal/session"
	"github.com/louisbranch/cardpath/internal/storage"
	"github.com/louisbranch/cardpath/internal/telemetry"
)

// Point awards per dialogue action.
const (
	agePoints     = 10
	cardPoints    = 20
	comparePoints = 30
)

// Config groups the controller's collaborators.
type Config struct {
	Catalog  *catalog.Catalog
	Sessions storage.SessionStore
	// Achievements defaults to achievement.Defaults when nil.
	Achievements []achievement.Definition
	// Referrals defaults to a tracker over Sessions when nil.
	Referrals *referral.Tracker
	// Telemetry is optional; a nil emitter drops events.
	Telemetry *telemetry.Emitter
}

// Controller is the session-scoped conversation state machine.
type Controller struct {
	catalog      *catalog.Catalog
	sessions     storage.SessionStore
	achievements []achievement.Definition
	referrals    *referral.Tracker
	emitter      *telemetry.Emitter
	tracer       trace.Tracer
}

// New creates a controller with default collaborators filled in.
func New(cfg Config) (*Controller, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	achievements := cfg.Achievements
	if achievements == nil {
		achievements = achievement.Defaults()
	}
	referrals := cfg.Referrals
	if referrals == nil {
		referrals = referral.NewTracker(cfg.Sessions, achievements)
	}
	return &Controller{
		catalog:      cfg.Catalog,
		sessions:     cfg.Sessions,
		achievements: achievements,
		referrals:    referrals,
		emitter:      cfg.Telemetry,
		tracer:       otel.Tracer("cardpath/dialog"),
	}, nil
}

// ReferralCredit reports a referrer bonus applied while handling a start
// event, so the adapter can notify the referrer.
type ReferralCredit struct {
	ReferrerID int64
	Unlocked   []achievement.Definition
}

// Result is the outcome of one handled event.
type Result struct {
	State    session.State
	Menu     Menu
	Unlocked []achievement.Definition
	Referral *ReferralCredit
}

// handlerResult is what a state handler produces before commit.
type handlerResult struct {
	menu     Menu
	unlocked []achievement.Definition
}

// handlerFunc mutates the session copy and renders the next menu. Returning
// an error aborts the commit, leaving the stored session untouched.
type handlerFunc func(c *Controller, s *session.Session, ev Event) (handlerResult, error)

// handlers is the transition table: (state, event kind) to handler. Events
// valid in any state (start, main menu, cancel) are dispatched before this
// table is consulted.
var handlers = map[session.State]map[Kind]handlerFunc{
	session.StateAskingAge: {
		KindSelectAge: (*Controller).handleSelectAge,
	},
	session.StateMainMenu: {
		KindBrowseBanks:    (*Controller).handleBrowseBanks,
		KindCompareAll:     (*Controller).handleCompareAll,
		KindOpenProfile:    (*Controller).handleOpenProfile,
		KindOpenPromotions: (*Controller).handleOpenPromotions,
		KindOpenInvite:     (*Controller).handleOpenInvite,
	},
	session.StateSelectingBank: {
		KindSelectBank: (*Controller).handleSelectBank,
		KindCompareAll: (*Controller).handleCompareAll,
		KindBack:       (*Controller).handleBackToAge,
	},
	session.StateSelectingCards: {
		KindToggleCard:      (*Controller).handleToggleCard,
		KindCardInfo:        (*Controller).handleCardInfo,
		KindCompareSelected: (*Controller).handleCompareSelected,
		KindBack:            (*Controller).handleBackToBanks,
	},
	session.StateComparing: {
		KindBack: (*Controller).handleBackFromCompare,
	},
	session.StateProfile: {
		KindBack: (*Controller).handleBackToMain,
	},
	session.StatePromotions: {
		KindBack: (*Controller).handleBackToMain,
	},
	session.StateInvite: {
		KindBack: (*Controller).handleBackToMain,
	},
}

// Handle processes one inbound event for a user. All session mutation runs
// inside a single store mutation, so a failed event leaves no partial state
// and concurrent events for the same user are serialized.
func (c *Controller) Handle(ctx context.Context, ev Event) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "dialog.Handle",
		trace.WithAttributes(
			attribute.Int64("cardpath.user_id", ev.UserID),
			attribute.String("cardpath.event", ev.Kind.String()),
		))
	defer span.End()

	res, err := c.dispatch(ctx, ev)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if apperrors.Recoverable(err) {
			log.Printf("event rejected user_id=%d event=%s code=%s", ev.UserID, ev.Kind, apperrors.CodeOf(err))
			c.emit(ctx, ev.UserID, telemetry.KindEventRejected, string(apperrors.CodeOf(err)))
		}
		return Result{}, err
	}
	span.SetAttributes(attribute.String("cardpath.state", res.State.String()))
	for _, def := range res.Unlocked {
		c.emit(ctx, ev.UserID, telemetry.KindAchievementUnlocked, def.ID)
	}
	return res, nil
}

func (c *Controller) dispatch(ctx context.Context, ev Event) (Result, error) {
	switch ev.Kind {
	case KindStart:
		return c.handleStart(ctx, ev)
	case KindMainMenu:
		return c.mainMenu(ctx, ev.UserID)
	case KindCancel:
		return c.cancel(ctx, ev.UserID)
	}

	var res handlerResult
	sess, err := c.sessions.Mutate(ctx, ev.UserID, func(s *session.Session) error {
		h := handlers[s.State][ev.Kind]
		if h == nil {
			return apperrors.Newf(apperrors.CodeStateMismatch,
				"event %s is not valid in state %s", ev.Kind, s.State)
		}
		var err error
		res, err = h(c, s, ev)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{State: sess.State, Menu: res.menu, Unlocked: res.unlocked}, nil
}

// handleStart creates or resumes the session and applies a referral bonus
// when a brand-new session arrives through a referral token. A malformed
// token is logged and dropped; onboarding continues without the bonus.
func (c *Controller) handleStart(ctx context.Context, ev Event) (Result, error) {
	_, created, err := c.sessions.GetOrCreate(ctx, ev.UserID)
	if err != nil {
		return Result{}, err
	}

	var credit *ReferralCredit
	if created && ev.ReferralToken != "" {
		referrerID, err := referral.ParseToken(ev.ReferralToken)
		if err != nil {
			log.Printf("referral token dropped user_id=%d err=%v", ev.UserID, err)
			c.emit(ctx, ev.UserID, telemetry.KindEventRejected, string(apperrors.CodeOf(err)))
		} else if referrerID != ev.UserID {
			unlocked, err := c.referrals.Apply(ctx, referrerID, ev.UserID)
			if err != nil {
				log.Printf("referral credit failed referrer_id=%d user_id=%d err=%v", referrerID, ev.UserID, err)
			} else {
				credit = &ReferralCredit{ReferrerID: referrerID, Unlocked: unlocked}
				c.emit(ctx, referrerID, telemetry.KindReferralCredited, strconv.FormatInt(ev.UserID, 10))
			}
		}
	}

	sess, err := c.sessions.Mutate(ctx, ev.UserID, func(s *session.Session) error {
		s.State = session.StateAskingAge
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{State: sess.State, Menu: c.menuAskingAge(), Referral: credit}, nil
}

// mainMenu moves the session to the hub menu, reachable from any state.
func (c *Controller) mainMenu(ctx context.Context, userID int64) (Result, error) {
	var menu Menu
	sess, err := c.sessions.Mutate(ctx, userID, func(s *session.Session) error {
		s.State = session.StateMainMenu
		menu = c.menuMain(s)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{State: sess.State, Menu: menu}, nil
}

// cancel ends the controller's involvement. The session persists; the next
// start event picks it up at the age question.
func (c *Controller) cancel(ctx context.Context, userID int64) (Result, error) {
	sess, err := c.sessions.Mutate(ctx, userID, func(s *session.Session) error {
		s.State = session.StateAskingAge
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{State: sess.State, Menu: c.menuGoodbye()}, nil
}

func (c *Controller) handleSelectAge(s *session.Session, ev Event) (handlerResult, error) {
	age, err := strconv.Atoi(ev.Payload)
	if err != nil || age <= 0 {
		return handlerResult{}, apperrors.Newf(apperrors.CodeStateMismatch,
			"age payload %q is not a positive number", ev.Payload)
	}
	s.SetAge(age)
	s.AddPoints(agePoints)
	s.State = session.StateSelectingBank
	return handlerResult{menu: c.menuBanks()}, nil
}

func (c *Controller) handleBrowseBanks(s *session.Session, ev Event) (handlerResult, error) {
	if !s.AgeSet() {
		s.State = session.StateAskingAge
		return handlerResult{menu: c.menuAskingAge()}, nil
	}
	s.State = session.StateSelectingBank
	return handlerResult{menu: c.menuBanks()}, nil
}

func (c *Controller) handleSelectBank(s *session.Session, ev Event) (handlerResult, error) {
	if !c.catalog.HasBank(ev.Payload) {
		return handlerResult{}, apperrors.Newf(apperrors.CodeUnknownBank, "unknown bank %q", ev.Payload)
	}
	s.SelectedBank = ev.Payload
	s.State = session.StateSelectingCards
	menu, err := c.menuCards(s)
	if err != nil {
		return handlerResult{}, err
	}
	return handlerResult{menu: menu}, nil
}

func (c *Controller) handleToggleCard(s *session.Session, ev Event) (handlerResult, error) {
	card, err := c.catalog.Card(ev.Payload)
	if err != nil {
		return handlerResult{}, err
	}
	if card.Bank != s.SelectedBank {
		return handlerResult{}, apperrors.Newf(apperrors.CodeUnknownCard,
			"card %s is not offered by %s", card.ID(), s.SelectedBank)
	}
	added, err := s.Toggle(card)
	if err != nil {
		return handlerResult{}, err
	}
	var unlocked []achievement.Definition
	if added {
		s.AddPoints(cardPoints)
		unlocked = achievement.Evaluate(c.achievements, s)
	}
	menu, err := c.menuCards(s)
	if err != nil {
		return handlerResult{}, err
	}
	return handlerResult{menu: menu, unlocked: unlocked}, nil
}

func (c *Controller) handleCardInfo(s *session.Session, ev Event) (handlerResult, error) {
	card, err := c.catalog.Card(ev.Payload)
	if err != nil {
		return handlerResult{}, err
	}
	if card.Bank != s.SelectedBank {
		return handlerResult{}, apperrors.Newf(apperrors.CodeUnknownCard,
			"card %s is not offered by %s", card.ID(), s.SelectedBank)
	}
	return handlerResult{menu: c.menuCardInfo(card)}, nil
}

func (c *Controller) handleCompareSelected(s *session.Session, ev Event) (handlerResult, error) {
	view, err := compare.Compare(c.catalog, *s, s.SelectedIDs())
	if err != nil {
		return handlerResult{}, err
	}
	s.AddPoints(comparePoints)
	unlocked := achievement.Evaluate(c.achievements, s)
	s.CompareReturn = session.StateSelectingCards
	s.State = session.StateComparing
	return handlerResult{menu: c.menuCompare(view), unlocked: unlocked}, nil
}

// handleCompareAll compares every card the user is eligible for, regardless
// of bank or selection. No points are awarded for browsing the full set.
func (c *Controller) handleCompareAll(s *session.Session, ev Event) (handlerResult, error) {
	if !s.AgeSet() {
		return handlerResult{}, apperrors.New(apperrors.CodeAgeNotSet, "age bracket is not set")
	}
	eligible := c.catalog.Eligible(s.Age)
	ids := make([]string, 0, len(eligible))
	for _, card := range eligible {
		ids = append(ids, card.ID())
	}
	view, err := compare.Compare(c.catalog, *s, ids)
	if err != nil {
		return handlerResult{}, err
	}
	s.CompareReturn = s.State
	s.State = session.StateComparing
	return handlerResult{menu: c.menuCompare(view)}, nil
}

func (c *Controller) handleOpenProfile(s *session.Session, ev Event) (handlerResult, error) {
	s.State = session.StateProfile
	return handlerResult{menu: c.menuProfile(s)}, nil
}

func (c *Controller) handleOpenPromotions(s *session.Session, ev Event) (handlerResult, error) {
	s.State = session.StatePromotions
	return handlerResult{menu: c.menuPromotions(s)}, nil
}

func (c *Controller) handleOpenInvite(s *session.Session, ev Event) (handlerResult, error) {
	s.State = session.StateInvite
	return handlerResult{menu: c.menuInvite(s)}, nil
}

// handleBackToAge leaves bank selection, clearing the age bracket so the
// user can pick again.
func (c *Controller) handleBackToAge(s *session.Session, ev Event) (handlerResult, error) {
	s.ClearAge()
	s.State = session.StateAskingAge
	return handlerResult{menu: c.menuAskingAge()}, nil
}

func (c *Controller) handleBackToBanks(s *session.Session, ev Event) (handlerResult, error) {
	s.State = session.StateSelectingBank
	return handlerResult{menu: c.menuBanks()}, nil
}

// handleBackFromCompare returns to wherever the comparison was entered from.
func (c *Controller) handleBackFromCompare(s *session.Session, ev Event) (handlerResult, error) {
	s.State = s.CompareReturn
	switch s.State {
	case session.StateSelectingCards:
		menu, err := c.menuCards(s)
		if err != nil {
			return handlerResult{}, err
		}
		return handlerResult{menu: menu}, nil
	case session.StateMainMenu:
		return handlerResult{menu: c.menuMain(s)}, nil
	default:
		s.State = session.StateSelectingBank
		return handlerResult{menu: c.menuBanks()}, nil
	}
}

func (c *Controller) handleBackToMain(s *session.Session, ev Event) (handlerResult, error) {
	s.State = session.StateMainMenu
	return handlerResult{menu: c.menuMain(s)}, nil
}

// emit records a telemetry event, logging instead of failing the dialogue
// when the store rejects it.
func (c *Controller) emit(ctx context.Context, userID int64, kind, detail string) {
	if err := c.emitter.Emit(ctx, storage.TelemetryEvent{
		UserID: userID,
		Kind:   kind,
		Detail: detail,
	}); err != nil {
		log.Printf("telemetry emit failed user_id=%d kind=%s err=%v", userID, kind, err)
	}
}
