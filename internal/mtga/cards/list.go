package cards

import (
	"fmt"
	"slices"
)

// List is an ordered collection of cards holding at most one card per
// identity. A List owns its cards: cards coming from elsewhere are copied in,
// never shared.
type List struct {
	cards []*Card
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Merge returns a new list with copies of every card in a followed by every
// card in b. Cards with the same identity are combined and their counts
// summed. Either argument may be nil.
func Merge(a, b *List) *List {
	merged := NewList()
	for _, src := range []*List{a, b} {
		if src == nil {
			continue
		}
		for _, c := range src.cards {
			merged.mustAdd(c)
		}
	}
	return merged
}

// AddNew adds count copies of the card (name, setCode). If the identity is
// already present its count grows instead.
func (l *List) AddNew(name, setCode string, count int) error {
	if existing, ok := l.Find(name, setCode); ok {
		return existing.AddCount(count)
	}
	c, err := NewCard(name, setCode, count)
	if err != nil {
		return err
	}
	l.cards = append(l.cards, c)
	return nil
}

// Add merges card into the list. When the identity already exists the
// existing card's count grows by card's count and its metadata is left as is;
// otherwise a clone of card is appended.
func (l *List) Add(card *Card) error {
	if card == nil {
		return fmt.Errorf("%w: nil card", ErrInvalidArgument)
	}
	return l.add(card)
}

func (l *List) add(card *Card) error {
	if existing, ok := l.Find(card.name, card.setCode); ok {
		return existing.AddCount(card.count)
	}
	l.cards = append(l.cards, card.Clone())
	return nil
}

// mustAdd adds a card taken from another list. Listed cards never hold a
// negative count, so a failure is a broken invariant.
func (l *List) mustAdd(card *Card) {
	if err := l.add(card); err != nil {
		panic(fmt.Sprintf("cards: %v", err))
	}
}

// Find returns the card with the given identity.
func (l *List) Find(name, setCode string) (*Card, bool) {
	for _, c := range l.cards {
		if c.name == name && c.setCode == setCode {
			return c, true
		}
	}
	return nil, false
}

// FindByName returns the first card with the given name in any set. When the
// same name is listed in several sets the earliest inserted one wins.
func (l *List) FindByName(name string) (*Card, bool) {
	for _, c := range l.cards {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Remove deletes the card with the given identity and reports whether it was
// present.
func (l *List) Remove(name, setCode string) bool {
	i := slices.IndexFunc(l.cards, func(c *Card) bool {
		return c.name == name && c.setCode == setCode
	})
	if i < 0 {
		return false
	}
	l.cards = slices.Delete(l.cards, i, i+1)
	return true
}

// Len returns the number of distinct identities in the list.
func (l *List) Len() int { return len(l.cards) }

// Cards returns the cards in list order. The slice is a copy; the cards are
// not.
func (l *List) Cards() []*Card {
	return slices.Clone(l.cards)
}

// Identities returns the identity of every card in list order.
func (l *List) Identities() []Identity {
	ids := make([]Identity, len(l.cards))
	for i, c := range l.cards {
		ids[i] = c.Identity()
	}
	return ids
}

// Count returns the total quantity of all cards.
func (l *List) Count() int {
	total := 0
	for _, c := range l.cards {
		total += c.count
	}
	return total
}

// CountByRarity returns the total quantity of cards in the rarity class.
func (l *List) CountByRarity(r Rarity) int {
	total := 0
	for _, c := range l.cards {
		if c.RarityClass() == r {
			total += c.count
		}
	}
	return total
}

// SortByRating reorders the list by rating. Cards with equal ratings keep
// their relative order.
func (l *List) SortByRating(ascending bool) {
	cmp := CompareByRatingDesc
	if ascending {
		cmp = CompareByRating
	}
	slices.SortStableFunc(l.cards, cmp)
}

// ApplyMetadata applies every record whose identity is in the list and
// returns how many cards were resolved. Cards without a record are left
// untouched.
func (l *List) ApplyMetadata(records map[Identity]Metadata) int {
	resolved := 0
	for _, c := range l.cards {
		if m, ok := records[c.Identity()]; ok {
			c.ApplyMetadata(m)
			resolved++
		}
	}
	return resolved
}
