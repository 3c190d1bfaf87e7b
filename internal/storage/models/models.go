package models

// ReferenceCard is a row of the card reference table.
type ReferenceCard struct {
	ID       int    // Multiverse ID
	Name     string
	SetCode  string
	Type     *string  // Nullable
	Rarity   *string  // Nullable: M, R, U or C
	ManaCost *string  // Nullable: e.g. {2}{U}
	Rating   *float64 // Nullable: Gatherer rating 0.0 - 5.0
	Artist   *string  // Nullable
}

// Set is a printed set with the codes other services use for it.
type Set struct {
	Code         string
	Name         *string // Nullable
	MtgNetCode   *string // Nullable: set code used by MtgNet searches
	GathererCode *string // Nullable: set code used by Gatherer set symbols
}
