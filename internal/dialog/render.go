package dialog

import (
	"fmt"
	"strings"

	"github.com/louisbranch/cardpath/internal/catalog"
	"github.com/louisbranch/cardpath/internal/compare"
	"github.com/louisbranch/cardpath/internal/referral"
	"github.com/louisbranch/cardpath/internal/session"
)

// menuAskingAge is the entry menu of every dialogue.
func (c *Controller) menuAskingAge() Menu {
	return Menu{
		Body: "Hi! Pick your age bracket to see the cards you can get:",
		Actions: []Action{
			{Label: "14-17", Token: tokenAgePrefix + "14"},
			{Label: "18+", Token: tokenAgePrefix + "18"},
			{Label: "Main menu", Token: TokenMainMenu},
		},
	}
}

// menuMain is the hub menu.
func (c *Controller) menuMain(s *session.Session) Menu {
	body := "What would you like to do?"
	if !s.AgeSet() {
		body = "What would you like to do? Pick an age bracket first to browse cards."
	}
	return Menu{
		Body: body,
		Actions: []Action{
			{Label: "Browse banks", Token: TokenBanks},
			{Label: "Compare all cards", Token: TokenCompareAll},
			{Label: "Profile", Token: TokenProfile},
			{Label: "Promotions", Token: TokenPromotions},
			{Label: "Invite a friend", Token: TokenInvite},
		},
	}
}

// menuBanks lists the catalog's banks.
func (c *Controller) menuBanks() Menu {
	menu := Menu{Body: "Pick a bank:"}
	for _, bank := range c.catalog.Banks() {
		menu.Actions = append(menu.Actions, Action{Label: bank, Token: tokenBankPrefix + bank})
	}
	menu.Actions = append(menu.Actions,
		Action{Label: "Compare all cards", Token: TokenCompareAll},
		Action{Label: "Back", Token: TokenBack},
		Action{Label: "Main menu", Token: TokenMainMenu},
	)
	return menu
}

// menuCards lists the selected bank's age-eligible cards with selection
// marks.
func (c *Controller) menuCards(s *session.Session) (Menu, error) {
	cards, err := c.catalog.EligibleInBank(s.SelectedBank, s.Age)
	if err != nil {
		return Menu{}, err
	}
	menu := Menu{Body: fmt.Sprintf("Cards at %s. Tap to select, tap again to remove:", s.SelectedBank)}
	for _, card := range cards {
		mark := "[ ] "
		if s.HasCard(card.ID()) {
			mark = "[x] "
		}
		menu.Actions = append(menu.Actions,
			Action{Label: mark + card.Name, Token: tokenCardPrefix + card.ID()},
			Action{Label: card.Name + " - details", Token: tokenInfoPrefix + card.ID()},
		)
	}
	menu.Actions = append(menu.Actions,
		Action{Label: fmt.Sprintf("Compare selected (%d)", len(s.SelectedCards)), Token: TokenCompare},
		Action{Label: "Back", Token: TokenBack},
		Action{Label: "Main menu", Token: TokenMainMenu},
	)
	return menu, nil
}

// menuCardInfo shows one card's details with its referral link.
func (c *Controller) menuCardInfo(card catalog.Card) Menu {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n\nAdvantages:\n", card.Bank, card.Name)
	for _, adv := range card.Advantages {
		fmt.Fprintf(&b, "- %s\n", adv)
	}
	if len(card.Promotions) > 0 {
		b.WriteString("\nPromotions:\n")
		for _, promo := range card.Promotions {
			fmt.Fprintf(&b, "- %s\n", promo)
		}
	}
	if len(card.Requirements) > 0 {
		b.WriteString("\nRequirements:\n")
		for _, req := range card.Requirements {
			fmt.Fprintf(&b, "- %s\n", req)
		}
	}
	return Menu{
		Body: b.String(),
		Actions: []Action{
			{Label: "Back", Token: TokenBack},
		},
		Links: []Link{
			{Label: "Apply on the best terms", URL: card.ReferralLink},
		},
	}
}

// menuCompare renders a comparison view.
func (c *Controller) menuCompare(view compare.View) Menu {
	var b strings.Builder
	b.WriteString("Card comparison:\n\n")
	for _, row := range view.Cards {
		fmt.Fprintf(&b, "%s - %s (from age %d)\n", row.Bank, row.Name, row.AgeLimit)
		for _, adv := range row.Advantages {
			fmt.Fprintf(&b, "- %s\n", adv)
		}
		b.WriteString("\n")
	}
	if view.RecommendedType != "" {
		fmt.Fprintf(&b, "Based on your picks, %s cards suit you best.\n", view.RecommendedType)
	}
	menu := Menu{
		Body: b.String(),
		Actions: []Action{
			{Label: "Back", Token: TokenBack},
			{Label: "Main menu", Token: TokenMainMenu},
		},
	}
	for _, row := range view.Cards {
		menu.Links = append(menu.Links, Link{
			Label: fmt.Sprintf("%s %s", row.Bank, row.Name),
			URL:   row.ReferralLink,
		})
	}
	return menu
}

// menuProfile shows gamification progress.
func (c *Controller) menuProfile(s *session.Session) Menu {
	var b strings.Builder
	fmt.Fprintf(&b, "Your profile\n\nPoints: %d\nFriends invited: %d\nCards selected: %d\n",
		s.Points, s.InvitedCount, len(s.SelectedCards))
	if len(s.Achievements) > 0 {
		b.WriteString("\nAchievements:\n")
		for _, def := range c.achievements {
			if _, ok := s.Achievements[def.ID]; ok {
				fmt.Fprintf(&b, "- %s\n", def.DisplayName)
			}
		}
	}
	if tag, ok := s.RecommendedType(); ok {
		fmt.Fprintf(&b, "\nRecommended card type: %s\n", tag)
	}
	return Menu{
		Body: b.String(),
		Actions: []Action{
			{Label: "Back", Token: TokenBack},
		},
	}
}

// menuPromotions lists promotions across the cards the user can get.
func (c *Controller) menuPromotions(s *session.Session) Menu {
	cards := c.catalog.Cards()
	if s.AgeSet() {
		cards = c.catalog.Eligible(s.Age)
	}
	var b strings.Builder
	b.WriteString("Current promotions:\n\n")
	found := false
	for _, card := range cards {
		for _, promo := range card.Promotions {
			fmt.Fprintf(&b, "%s %s: %s\n", card.Bank, card.Name, promo)
			found = true
		}
	}
	if !found {
		b.WriteString("No promotions right now. Check back later.\n")
	}
	return Menu{
		Body: b.String(),
		Actions: []Action{
			{Label: "Back", Token: TokenBack},
		},
	}
}

// menuInvite shows the user's own referral token.
func (c *Controller) menuInvite(s *session.Session) Menu {
	return Menu{
		Body: fmt.Sprintf(
			"Invite friends and earn %d points per signup.\n\nYour invite code: %s\nShare a start link carrying it and the bonus is yours.",
			referral.BonusPoints, referral.Token(s.UserID),
		),
		Actions: []Action{
			{Label: "Back", Token: TokenBack},
		},
	}
}

// menuGoodbye acknowledges an explicit cancel.
func (c *Controller) menuGoodbye() Menu {
	return Menu{Body: "Dialogue ended. Your progress is saved; send start to pick it up again."}
}
