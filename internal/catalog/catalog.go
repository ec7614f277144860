// Package catalog holds the immutable bank card offerings and the
// age-eligibility filter over them.
//
// The catalog is loaded once at startup and never mutated afterwards; it is
// safe for concurrent use without locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/louisbranch/cardpath/internal/errors"
)

// Card describes one bank card offering.
type Card struct {
	Bank         string   `json:"bank"`
	Name         string   `json:"name"`
	AgeLimit     int      `json:"age_limit"`
	Advantages   []string `json:"advantages"`
	ReferralLink string   `json:"referral_link"`
	Promotions   []string `json:"promotions,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	CardTypes    []string `json:"card_types,omitempty"`
}

// ID returns the card identifier, unique across the catalog.
func (c Card) ID() string {
	return c.Bank + "/" + c.Name
}

// Catalog is an ordered, read-only collection of cards grouped by bank.
type Catalog struct {
	cards []Card
	byID  map[string]int
	banks []string
}

// New builds a catalog from an ordered card list and validates it.
func New(cards []Card) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	cat := &Catalog{
		cards: make([]Card, 0, len(cards)),
		byID:  make(map[string]int, len(cards)),
	}
	seenBanks := make(map[string]struct{})

	for _, card := range cards {
		card.Bank = strings.TrimSpace(card.Bank)
		card.Name = strings.TrimSpace(card.Name)
		if card.Bank == "" {
			return nil, fmt.Errorf("card %q: bank is required", card.Name)
		}
		if card.Name == "" {
			return nil, fmt.Errorf("bank %q: card name is required", card.Bank)
		}
		if card.AgeLimit < 0 {
			return nil, fmt.Errorf("card %s: age limit must not be negative", card.ID())
		}
		if _, err := url.Parse(card.ReferralLink); err != nil {
			return nil, fmt.Errorf("card %s: referral link: %w", card.ID(), err)
		}
		if _, dup := cat.byID[card.ID()]; dup {
			return nil, fmt.Errorf("card %s: duplicate identifier", card.ID())
		}

		cat.byID[card.ID()] = len(cat.cards)
		cat.cards = append(cat.cards, card)
		if _, seen := seenBanks[card.Bank]; !seen {
			seenBanks[card.Bank] = struct{}{}
			cat.banks = append(cat.banks, card.Bank)
		}
	}
	return cat, nil
}

// Parse decodes a JSON catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Cards []Card `json:"cards"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Cards)
}

// Banks returns bank names in catalog order.
func (c *Catalog) Banks() []string {
	out := make([]string, len(c.banks))
	copy(out, c.banks)
	return out
}

// HasBank reports whether the bank exists in the catalog.
func (c *Catalog) HasBank(bank string) bool {
	for _, name := range c.banks {
		if name == bank {
			return true
		}
	}
	return false
}

// Cards returns all cards in catalog order.
func (c *Catalog) Cards() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// Card looks up a card by identifier.
func (c *Catalog) Card(id string) (Card, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Card{}, apperrors.Newf(apperrors.CodeUnknownCard, "unknown card %q", id)
	}
	return c.cards[idx], nil
}

// Eligible returns the cards whose age limit is satisfied by age, in catalog
// order.
func (c *Catalog) Eligible(age int) []Card {
	var out []Card
	for _, card := range c.cards {
		if card.AgeLimit <= age {
			out = append(out, card)
		}
	}
	return out
}

// EligibleInBank returns the bank's cards whose age limit is satisfied by
// age, in catalog order. An unknown bank is an error, not an empty list.
func (c *Catalog) EligibleInBank(bank string, age int) ([]Card, error) {
	if !c.HasBank(bank) {
		return nil, apperrors.Newf(apperrors.CodeUnknownBank, "unknown bank %q", bank)
	}
	var out []Card
	for _, card := range c.cards {
		if card.Bank == bank && card.AgeLimit <= age {
			out = append(out, card)
		}
	}
	return out, nil
}
