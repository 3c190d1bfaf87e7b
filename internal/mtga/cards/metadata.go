package cards

import "maps"

// Set code alias sources.
const (
	AliasMtgNet   = "mtgnet"
	AliasGatherer = "gatherer"
)

// Metadata is the enrichment record for a card as returned by a reference
// lookup. Nil pointers and missing alias keys mean the value is unknown.
type Metadata struct {
	ID       *int     // Multiverse ID
	Type     *string  // Type line, e.g. "Creature - Human Wizard"
	Rarity   *string  // One of M, R, U, C
	ManaCost *string  // e.g. {2}{U}
	Rating   *float64 // Gatherer community rating, 0.0 - 5.0
	Artist   *string

	// Aliases maps an alias source (AliasMtgNet, AliasGatherer) to the set
	// code used by that source.
	Aliases map[string]string
}

func (m Metadata) clone() Metadata {
	out := m
	out.ID = clonePtr(m.ID)
	out.Type = clonePtr(m.Type)
	out.Rarity = clonePtr(m.Rarity)
	out.ManaCost = clonePtr(m.ManaCost)
	out.Rating = clonePtr(m.Rating)
	out.Artist = clonePtr(m.Artist)
	if m.Aliases != nil {
		out.Aliases = maps.Clone(m.Aliases)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. It is a convenience for building Metadata.
func Ptr[T any](v T) *T {
	return &v
}
