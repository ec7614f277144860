// Package compare builds comparison views over selected catalog cards.
package compare

import (
	"github.com/louisbranch/cardpath/internal/catalog"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
	"github.com/louisbranch/cardpath/internal/session"
)

// Summary is one card's row in a comparison view.
type Summary struct {
	Bank         string
	Name         string
	AgeLimit     int
	Advantages   []string
	Promotions   []string
	Requirements []string
	ReferralLink string
}

// View is an ordered comparison of cards, with an optional recommended
// card-type hint derived from the session's selection history.
type View struct {
	Cards           []Summary
	RecommendedType string
}

// Compare builds a view over the given card identifiers. Cards are listed in
// catalog order regardless of selection order. An empty set is an error, not
// an empty view.
func Compare(cat *catalog.Catalog, sess session.Session, ids []string) (View, error) {
	if len(ids) == 0 {
		return View{}, apperrors.New(apperrors.CodeEmptySelection, "no cards selected to compare")
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, err := cat.Card(id); err != nil {
			return View{}, err
		}
		want[id] = struct{}{}
	}

	view := View{Cards: make([]Summary, 0, len(want))}
	for _, card := range cat.Cards() {
		if _, ok := want[card.ID()]; !ok {
			continue
		}
		view.Cards = append(view.Cards, Summary{
			Bank:         card.Bank,
			Name:         card.Name,
			AgeLimit:     card.AgeLimit,
			Advantages:   card.Advantages,
			Promotions:   card.Promotions,
			Requirements: card.Requirements,
			ReferralLink: card.ReferralLink,
		})
	}
	if tag, ok := sess.RecommendedType(); ok {
		view.RecommendedType = tag
	}
	return view, nil
}
