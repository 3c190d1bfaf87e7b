package deckfile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
)

// DefaultTitleTag is the seller tag appended to auction titles.
const DefaultTitleTag = "[redienss]"

// "[Card Name]" inside a description
var cardReferenceRegex = regexp.MustCompile(`\[(.*?)\]`)

// Deck is a parsed deck file: the publisher tags plus main deck and sideboard
// card lists. The two lists are owned by the deck; statistics are always
// computed from them on demand.
type Deck struct {
	Name        string
	Price       string // verbatim, not validated as an amount
	Photos      []string
	Description string

	Main      *cards.List
	Sideboard *cards.List
}

// AllCards returns a fresh merge of the main deck and sideboard.
func (d *Deck) AllCards() *cards.List {
	return cards.Merge(d.Main, d.Sideboard)
}

// CardCount returns the number of cards in main deck and sideboard.
func (d *Deck) CardCount() int {
	return d.Main.Count() + d.Sideboard.Count()
}

// CountByRarity returns the number of cards of a rarity class in main deck and
// sideboard.
func (d *Deck) CountByRarity(r cards.Rarity) int {
	return d.Main.CountByRarity(r) + d.Sideboard.CountByRarity(r)
}

// Photo returns the i-th photo locator.
func (d *Deck) Photo(i int) (string, bool) {
	if i < 0 || i >= len(d.Photos) {
		return "", false
	}
	return d.Photos[i], true
}

// RaritySummary renders non-zero rarity counts as "1M 2R 5C".
func (d *Deck) RaritySummary() string {
	parts := make([]string, 0, len(cards.Rarities))
	for _, r := range cards.Rarities {
		if n := d.CountByRarity(r); n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, r.Code()))
		}
	}
	return strings.Join(parts, " ")
}

// Title returns the auction title, e.g. "Burn Deck (1M 2R 5C) [redienss]".
func (d *Deck) Title() string {
	return d.TitleWithTag(DefaultTitleTag)
}

// TitleWithTag is Title with a different seller tag. An empty tag is omitted.
func (d *Deck) TitleWithTag(tag string) string {
	title := fmt.Sprintf("%s (%s)", d.Name, d.RaritySummary())
	if tag != "" {
		title += " " + tag
	}
	return title
}

// CardReferences returns the distinct "[Card Name]" references in the
// description, in order of first appearance.
func (d *Deck) CardReferences() []string {
	seen := make(map[string]bool)
	refs := make([]string, 0)
	for _, m := range cardReferenceRegex.FindAllStringSubmatch(d.Description, -1) {
		if m[1] == "" || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		refs = append(refs, m[1])
	}
	return refs
}
