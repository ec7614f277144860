package dialog

import (
	"fmt"
	"strings"
)

// Kind tags an inbound dialogue event.
type Kind int

const (
	// KindStart begins (or restarts) the dialogue for a user.
	KindStart Kind = iota
	// KindSelectAge picks an age bracket; payload is the numeric threshold.
	KindSelectAge
	// KindBrowseBanks opens the bank list from the main menu.
	KindBrowseBanks
	// KindSelectBank picks a bank; payload is the bank name.
	KindSelectBank
	// KindToggleCard adds or removes a card; payload is the card id.
	KindToggleCard
	// KindCardInfo shows one card's details; payload is the card id.
	KindCardInfo
	// KindCompareSelected compares the user's selected cards.
	KindCompareSelected
	// KindCompareAll compares every age-eligible card in the catalog.
	KindCompareAll
	// KindBack returns to the previous step.
	KindBack
	// KindMainMenu jumps to the main menu from anywhere.
	KindMainMenu
	// KindOpenProfile opens the profile sub-view.
	KindOpenProfile
	// KindOpenPromotions opens the promotions sub-view.
	KindOpenPromotions
	// KindOpenInvite opens the invite sub-view.
	KindOpenInvite
	// KindCancel ends the controller's involvement; the session persists.
	KindCancel
)

// String returns the event kind label used in logs and telemetry.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindSelectAge:
		return "select_age"
	case KindBrowseBanks:
		return "browse_banks"
	case KindSelectBank:
		return "select_bank"
	case KindToggleCard:
		return "toggle_card"
	case KindCardInfo:
		return "card_info"
	case KindCompareSelected:
		return "compare_selected"
	case KindCompareAll:
		return "compare_all"
	case KindBack:
		return "back"
	case KindMainMenu:
		return "main_menu"
	case KindOpenProfile:
		return "open_profile"
	case KindOpenPromotions:
		return "open_promotions"
	case KindOpenInvite:
		return "open_invite"
	case KindCancel:
		return "cancel"
	}
	return "unknown"
}

// Event is one inbound dialogue event for a user.
type Event struct {
	UserID int64
	Kind   Kind
	// Payload carries the kind-specific argument: age threshold, bank name
	// or card id.
	Payload string
	// ReferralToken is the opaque "ref_<id>" token a start event may carry.
	ReferralToken string
}

// Action token prefixes and literals shared by the rendering adapters. A
// menu action's token round-trips through the transport and comes back via
// ParseAction.
const (
	tokenAgePrefix  = "age:"
	tokenBankPrefix = "bank:"
	tokenCardPrefix = "card:"
	tokenInfoPrefix = "info:"

	// TokenBanks opens the bank list.
	TokenBanks = "banks"
	// TokenCompare compares the selected cards.
	TokenCompare = "compare"
	// TokenCompareAll compares all eligible cards.
	TokenCompareAll = "compare_all"
	// TokenBack returns to the previous step.
	TokenBack = "back"
	// TokenMainMenu jumps to the main menu.
	TokenMainMenu = "menu"
	// TokenProfile opens the profile view.
	TokenProfile = "profile"
	// TokenPromotions opens the promotions view.
	TokenPromotions = "promos"
	// TokenInvite opens the invite view.
	TokenInvite = "invite"
	// TokenCancel ends the dialogue.
	TokenCancel = "cancel"
)

// ParseAction maps an action token back to the event it stands for.
func ParseAction(userID int64, token string) (Event, error) {
	ev := Event{UserID: userID}
	switch {
	case strings.HasPrefix(token, tokenAgePrefix):
		ev.Kind = KindSelectAge
		ev.Payload = token[len(tokenAgePrefix):]
	case strings.HasPrefix(token, tokenBankPrefix):
		ev.Kind = KindSelectBank
		ev.Payload = token[len(tokenBankPrefix):]
	case strings.HasPrefix(token, tokenCardPrefix):
		ev.Kind = KindToggleCard
		ev.Payload = token[len(tokenCardPrefix):]
	case strings.HasPrefix(token, tokenInfoPrefix):
		ev.Kind = KindCardInfo
		ev.Payload = token[len(tokenInfoPrefix):]
	case token == TokenBanks:
		ev.Kind = KindBrowseBanks
	case token == TokenCompare:
		ev.Kind = KindCompareSelected
	case token == TokenCompareAll:
		ev.Kind = KindCompareAll
	case token == TokenBack:
		ev.Kind = KindBack
	case token == TokenMainMenu:
		ev.Kind = KindMainMenu
	case token == TokenProfile:
		ev.Kind = KindOpenProfile
	case token == TokenPromotions:
		ev.Kind = KindOpenPromotions
	case token == TokenInvite:
		ev.Kind = KindOpenInvite
	case token == TokenCancel:
		ev.Kind = KindCancel
	default:
		return Event{}, fmt.Errorf("unknown action token %q", token)
	}
	return ev, nil
}
