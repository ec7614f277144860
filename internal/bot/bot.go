// Package bot renders dialog menus to Telegram and feeds callback presses
// back into the conversation controller. It owns no behavior beyond
// translation; every decision lives in the dialog package.
package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/louisbranch/cardpath/internal/achievement"
	"github.com/louisbranch/cardpath/internal/dialog"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
)

const pollTimeout = 10 * time.Second

// Bot bridges Telegram updates and the dialog controller.
type Bot struct {
	tb   *tele.Bot
	ctrl *dialog.Controller
}

// New connects to the Telegram API and registers update handlers.
func New(token string, ctrl *dialog.Controller) (*Bot, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("dialog controller is required")
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}

	b := &Bot{tb: tb, ctrl: ctrl}
	tb.Handle("/start", b.onStart)
	tb.Handle(tele.OnCallback, b.onCallback)
	return b, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()
	log.Printf("bot started username=%s", b.tb.Me.Username)
	b.tb.Start()
	return ctx.Err()
}

// onStart handles the /start command. Its payload, when present, is a
// referral token from a deep link.
func (b *Bot) onStart(c tele.Context) error {
	ev := dialog.Event{
		UserID:        c.Sender().ID,
		Kind:          dialog.KindStart,
		ReferralToken: strings.TrimSpace(c.Message().Payload),
	}
	res, err := b.ctrl.Handle(context.Background(), ev)
	if err != nil {
		return b.reportError(c, ev, err)
	}
	b.notifyReferrer(res.Referral)
	return c.Send(res.Menu.Body, markup(res.Menu))
}

// onCallback maps a pressed inline button back to a dialog event.
func (b *Bot) onCallback(c tele.Context) error {
	defer func() {
		if err := c.Respond(); err != nil {
			log.Printf("callback ack failed user_id=%d err=%v", c.Sender().ID, err)
		}
	}()

	token := strings.TrimPrefix(c.Callback().Data, "\f")
	ev, err := dialog.ParseAction(c.Sender().ID, token)
	if err != nil {
		log.Printf("callback dropped user_id=%d err=%v", c.Sender().ID, err)
		return nil
	}

	res, err := b.ctrl.Handle(context.Background(), ev)
	if err != nil {
		return b.reportError(c, ev, err)
	}
	b.announceUnlocks(c, res.Unlocked)
	b.notifyReferrer(res.Referral)
	return c.Edit(res.Menu.Body, markup(res.Menu))
}

// reportError renders a recoverable domain error as a message in place of
// the expected menu. Internal failures get a generic apology; neither ends
// the dialogue.
func (b *Bot) reportError(c tele.Context, ev dialog.Event, err error) error {
	if apperrors.Recoverable(err) {
		return c.Send(userMessage(apperrors.CodeOf(err)))
	}
	log.Printf("event failed user_id=%d event=%s err=%v", ev.UserID, ev.Kind, err)
	return c.Send("Something went wrong, please try again.")
}

// announceUnlocks sends one message per newly unlocked achievement.
func (b *Bot) announceUnlocks(c tele.Context, unlocked []achievement.Definition) {
	for _, def := range unlocked {
		if err := c.Send(fmt.Sprintf("Achievement unlocked: %s", def.DisplayName)); err != nil {
			log.Printf("achievement notice failed user_id=%d id=%s err=%v", c.Sender().ID, def.ID, err)
		}
	}
}

// notifyReferrer tells a referrer their invite bonus landed.
func (b *Bot) notifyReferrer(credit *dialog.ReferralCredit) {
	if credit == nil {
		return
	}
	text := "A friend joined through your link! Bonus points credited."
	for _, def := range credit.Unlocked {
		text += fmt.Sprintf("\nAchievement unlocked: %s", def.DisplayName)
	}
	if _, err := b.tb.Send(&tele.User{ID: credit.ReferrerID}, text); err != nil {
		log.Printf("referrer notice failed referrer_id=%d err=%v", credit.ReferrerID, err)
	}
}

// markup renders the menu's actions and links as an inline keyboard, one
// button per row.
func markup(menu dialog.Menu) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(menu.Actions)+len(menu.Links))
	for _, action := range menu.Actions {
		rows = append(rows, []tele.InlineButton{{Text: action.Label, Data: action.Token}})
	}
	for _, link := range menu.Links {
		rows = append(rows, []tele.InlineButton{{Text: link.Label, URL: link.URL}})
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// userMessage maps a domain error code to the text shown to the user.
func userMessage(code apperrors.Code) string {
	switch code {
	case apperrors.CodeUnknownBank:
		return "That bank is not in the catalog anymore. Pick another one."
	case apperrors.CodeUnknownCard:
		return "That card is not available anymore. Pick another one."
	case apperrors.CodeAgeNotSet:
		return "Pick your age bracket first."
	case apperrors.CodeAgeIneligible:
		return "That card has a higher age requirement."
	case apperrors.CodeEmptySelection:
		return "Select at least one card before comparing."
	case apperrors.CodeMalformedReferralToken:
		return "That invite link looks broken, but you can continue without it."
	case apperrors.CodeStateMismatch:
		return "That button is out of date. Send /start to begin again."
	}
	return "Something went wrong, please try again."
}
