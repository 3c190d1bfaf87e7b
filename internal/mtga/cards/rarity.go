package cards

// Rarity is the rarity class derived from a card's single-letter rarity code.
type Rarity int

const (
	RarityUnknown Rarity = iota
	RarityMythic
	RarityRare
	RarityUncommon
	RarityCommon
)

// Rarities lists the known classes in display order.
var Rarities = []Rarity{RarityMythic, RarityRare, RarityUncommon, RarityCommon}

// ParseRarity maps a rarity code to its class. Codes are case-sensitive.
func ParseRarity(code string) Rarity {
	switch code {
	case "M":
		return RarityMythic
	case "R":
		return RarityRare
	case "U":
		return RarityUncommon
	case "C":
		return RarityCommon
	default:
		return RarityUnknown
	}
}

// Code returns the single-letter code, or "" for RarityUnknown.
func (r Rarity) Code() string {
	switch r {
	case RarityMythic:
		return "M"
	case RarityRare:
		return "R"
	case RarityUncommon:
		return "U"
	case RarityCommon:
		return "C"
	default:
		return ""
	}
}

func (r Rarity) String() string {
	switch r {
	case RarityMythic:
		return "Mythic Rare"
	case RarityRare:
		return "Rare"
	case RarityUncommon:
		return "Uncommon"
	case RarityCommon:
		return "Common"
	default:
		return "Unknown"
	}
}
