package export

import (
	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
	"github.com/ramonehamilton/deck-publisher/internal/render"
)

// Section names of exported rows.
const (
	SectionMain      = "main"
	SectionSideboard = "sideboard"
)

// CardRow is one deck entry in an export.
type CardRow struct {
	Section  string   `json:"section" csv:"section"`
	Count    int      `json:"count" csv:"count"`
	Name     string   `json:"name" csv:"name"`
	Set      string   `json:"set" csv:"set"`
	Rarity   string   `json:"rarity,omitempty" csv:"rarity"`
	Type     string   `json:"type,omitempty" csv:"type"`
	ManaCost string   `json:"mana_cost,omitempty" csv:"mana_cost"`
	Rating   *float64 `json:"rating,omitempty" csv:"rating"`
	Price    *float64 `json:"price,omitempty" csv:"price"`
	Resolved bool     `json:"resolved" csv:"resolved"`
}

// DeckRows flattens the main deck and sideboard into rows in deck order.
// prices may be nil.
func DeckRows(deck *deckfile.Deck, prices map[string]render.Price) []CardRow {
	rows := make([]CardRow, 0, deck.Main.Len()+deck.Sideboard.Len())
	rows = appendRows(rows, SectionMain, deck.Main, prices)
	rows = appendRows(rows, SectionSideboard, deck.Sideboard, prices)
	return rows
}

func appendRows(rows []CardRow, section string, list *cards.List, prices map[string]render.Price) []CardRow {
	for _, c := range list.Cards() {
		row := CardRow{
			Section:  section,
			Count:    c.Count(),
			Name:     c.Name(),
			Set:      c.SetCode(),
			Rarity:   c.Rarity(),
			Type:     c.Type(),
			ManaCost: c.ManaCost(),
			Resolved: c.Resolved(),
		}
		if rating, ok := c.Rating(); ok {
			row.Rating = cards.Ptr(rating)
		}
		if p, ok := prices[c.Name()]; ok && p.Stock > 0 {
			row.Price = cards.Ptr(p.Value)
		}
		rows = append(rows, row)
	}
	return rows
}
