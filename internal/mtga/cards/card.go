package cards

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidArgument is returned when a count-mutating operation receives a
// negative count.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	gathererCardURL  = "http://gatherer.wizards.com/Pages/Card/Details.aspx?multiverseid="
	gathererImageURL = "http://gatherer.wizards.com/Handlers/Image.ashx?multiverseid=%d&type=card"
)

// Identity is the (name, set code) pair that identifies a card within a List.
type Identity struct {
	Name    string
	SetCode string
}

// String returns the identity as "Name [SET]".
func (id Identity) String() string {
	return fmt.Sprintf("%s [%s]", id.Name, id.SetCode)
}

// Card is one deck entry: an identity, a counted quantity and optional
// metadata filled in by an enrichment pass.
type Card struct {
	name    string
	setCode string
	count   int

	meta     Metadata
	resolved bool
}

// NewCard creates a card with no metadata.
func NewCard(name, setCode string, count int) (*Card, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d for %q", ErrInvalidArgument, count, name)
	}
	return &Card{name: name, setCode: setCode, count: count}, nil
}

// Name returns the card name.
func (c *Card) Name() string { return c.name }

// SetCode returns the standard set code the card was listed with.
func (c *Card) SetCode() string { return c.setCode }

// Identity returns the card's identity key.
func (c *Card) Identity() Identity {
	return Identity{Name: c.name, SetCode: c.setCode}
}

// Count returns the card quantity.
func (c *Card) Count() int { return c.count }

// SetCount replaces the card quantity.
func (c *Card) SetCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative count %d for %q", ErrInvalidArgument, n, c.name)
	}
	c.count = n
	return nil
}

// AddCount increases the card quantity by n.
// Overflowing int is a broken precondition and panics.
func (c *Card) AddCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative count %d for %q", ErrInvalidArgument, n, c.name)
	}
	if c.count > math.MaxInt-n {
		panic(fmt.Sprintf("cards: count overflow for %s", c.Identity()))
	}
	c.count += n
	return nil
}

// ApplyMetadata assigns every enrichment field from m. Identity is never
// changed. Calling it again overwrites the previous values.
func (c *Card) ApplyMetadata(m Metadata) {
	c.meta = m.clone()
	c.resolved = true
}

// Metadata returns a copy of the card's enrichment fields.
func (c *Card) Metadata() Metadata {
	return c.meta.clone()
}

// Resolved reports whether metadata has been applied to the card.
func (c *Card) Resolved() bool { return c.resolved }

// ID returns the multiverse id, if known.
func (c *Card) ID() (int, bool) {
	if c.meta.ID == nil {
		return 0, false
	}
	return *c.meta.ID, true
}

// Type returns the card type line, or "" when unknown.
func (c *Card) Type() string { return deref(c.meta.Type) }

// Rarity returns the single-letter rarity code, or "" when unknown.
func (c *Card) Rarity() string { return deref(c.meta.Rarity) }

// ManaCost returns the mana cost in {2}{U} notation, or "" when unknown.
func (c *Card) ManaCost() string { return deref(c.meta.ManaCost) }

// Artist returns the artist name, or "" when unknown.
func (c *Card) Artist() string { return deref(c.meta.Artist) }

// Rating returns the Gatherer rating, if known.
func (c *Card) Rating() (float64, bool) {
	if c.meta.Rating == nil {
		return 0, false
	}
	return *c.meta.Rating, true
}

// RarityClass classifies the rarity code. Missing or unrecognized codes give
// RarityUnknown.
func (c *Card) RarityClass() Rarity {
	if c.meta.Rarity == nil {
		return RarityUnknown
	}
	return ParseRarity(*c.meta.Rarity)
}

func (c *Card) IsMythic() bool   { return c.RarityClass() == RarityMythic }
func (c *Card) IsRare() bool     { return c.RarityClass() == RarityRare }
func (c *Card) IsUncommon() bool { return c.RarityClass() == RarityUncommon }
func (c *Card) IsCommon() bool   { return c.RarityClass() == RarityCommon }

// GathererSetCode returns the Gatherer alias of the set, falling back to the
// listed set code.
func (c *Card) GathererSetCode() string {
	if code, ok := c.meta.Aliases[AliasGatherer]; ok && code != "" {
		return code
	}
	return c.setCode
}

// MtgNetSetCode returns the MtgNet alias of the set, falling back to the
// listed set code.
func (c *Card) MtgNetSetCode() string {
	if code, ok := c.meta.Aliases[AliasMtgNet]; ok && code != "" {
		return code
	}
	return c.setCode
}

// GathererURL returns the Gatherer details page, or "" without an id.
func (c *Card) GathererURL() string {
	id, ok := c.ID()
	if !ok {
		return ""
	}
	return gathererCardURL + strconv.Itoa(id)
}

// GathererImageURL returns the Gatherer card image, or "" without an id.
func (c *Card) GathererImageURL() string {
	id, ok := c.ID()
	if !ok {
		return ""
	}
	return fmt.Sprintf(gathererImageURL, id)
}

// Clone returns a deep copy that shares no state with c.
func (c *Card) Clone() *Card {
	return &Card{
		name:     c.name,
		setCode:  c.setCode,
		count:    c.count,
		meta:     c.meta.clone(),
		resolved: c.resolved,
	}
}

// CompareByRating orders a before b when a's rating is lower. Cards without a
// rating compare as 0.
func CompareByRating(a, b *Card) int {
	ra, _ := a.Rating()
	rb, _ := b.Rating()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// CompareByRatingDesc is CompareByRating reversed.
func CompareByRatingDesc(a, b *Card) int {
	return CompareByRating(b, a)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
