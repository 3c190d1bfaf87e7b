package allegro

// MaxPhotos is the number of photo slots of an offer.
const MaxPhotos = 8

// Field is one offer form value. Exactly one of the value members is
// meaningful for a given FID; the others keep their zero values.
type Field struct {
	FID        int        `xml:"fid"`
	String     string     `xml:"fvalueString"`
	Int        int        `xml:"fvalueInt"`
	Float      float64    `xml:"fvalueFloat"`
	Image      string     `xml:"fvalueImage"` // base64
	Datetime   int64      `xml:"fvalueDatetime"`
	Date       string     `xml:"fvalueDate"`
	RangeInt   RangeInt   `xml:"fvalueRangeInt"`
	RangeFloat RangeFloat `xml:"fvalueRangeFloat"`
	RangeDate  RangeDate  `xml:"fvalueRangeDate"`
}

type RangeInt struct {
	Min int `xml:"fvalueRangeIntMin"`
	Max int `xml:"fvalueRangeIntMax"`
}

type RangeFloat struct {
	Min float64 `xml:"fvalueRangeFloatMin"`
	Max float64 `xml:"fvalueRangeFloatMax"`
}

type RangeDate struct {
	Min string `xml:"fvalueRangeDateMin"`
	Max string `xml:"fvalueRangeDateMax"`
}

func stringField(fid int, v string) Field     { return Field{FID: fid, String: v} }
func intField(fid int, v int) Field           { return Field{FID: fid, Int: v} }
func floatField(fid int, v float64) Field     { return Field{FID: fid, Float: v} }
func imageField(fid int, base64 string) Field { return Field{FID: fid, Image: base64} }

// FieldIDs are the form field numbers of the offer attributes. They differ
// between marketplace categories, so they are configurable.
type FieldIDs struct {
	ItemName      int            `toml:"item_name"`
	Category      int            `toml:"category"`
	Duration      int            `toml:"duration"`
	ItemCount     int            `toml:"item_count"`
	BuyNowPrice   int            `toml:"buy_now_price"`
	Country       int            `toml:"country"`
	State         int            `toml:"state"`
	City          int            `toml:"city"`
	ShipmentPayer int            `toml:"shipment_payer"`
	PaymentForm   int            `toml:"payment_form"`
	PromoOptions  int            `toml:"promo_options"`
	Photos        [MaxPhotos]int `toml:"photos"`
	Description   int            `toml:"description"`
	OfferType     int            `toml:"offer_type"`
	PostCode      int            `toml:"post_code"`
	BankAccount   int            `toml:"bank_account"`
	ShipmentCost  int            `toml:"shipment_cost"`
}

// DefaultFieldIDs returns the WebAPI's standard field numbering.
func DefaultFieldIDs() FieldIDs {
	return FieldIDs{
		ItemName:      1,
		Category:      2,
		Duration:      4,
		ItemCount:     5,
		BuyNowPrice:   8,
		Country:       9,
		State:         10,
		City:          11,
		ShipmentPayer: 12,
		PaymentForm:   14,
		PromoOptions:  15,
		Photos:        [MaxPhotos]int{16, 17, 18, 19, 20, 21, 22, 23},
		Description:   24,
		OfferType:     28,
		PostCode:      32,
		BankAccount:   33,
		ShipmentCost:  38,
	}
}

// Offer holds the fixed offer attributes shared by every deck auction.
type Offer struct {
	Category      int     `toml:"category"`
	Duration      int     `toml:"duration"`
	ItemCount     int     `toml:"item_count"`
	Country       int     `toml:"country"`
	State         int     `toml:"state"`
	City          string  `toml:"city"`
	ShipmentPayer int     `toml:"shipment_payer"`
	PaymentForm   int     `toml:"payment_form"`
	Promo         int     `toml:"promo"`
	OfferType     int     `toml:"offer_type"`
	PostCode      string  `toml:"post_code"`
	BankAccount   string  `toml:"bank_account"`
	ShipmentCost  float64 `toml:"shipment_cost"`
}

// buildFields assembles the doNewAuctionExt field list in form order.
// photos holds base64 images; missing slots are sent empty.
func buildFields(ids FieldIDs, offer Offer, title string, price float64, description string, photos []string) []Field {
	fields := []Field{
		stringField(ids.ItemName, title),
		intField(ids.Category, offer.Category),
		intField(ids.Duration, offer.Duration),
		intField(ids.ItemCount, offer.ItemCount),
		floatField(ids.BuyNowPrice, price),
		intField(ids.Country, offer.Country),
		intField(ids.State, offer.State),
		stringField(ids.City, offer.City),
		intField(ids.ShipmentPayer, offer.ShipmentPayer),
		intField(ids.PaymentForm, offer.PaymentForm),
		intField(ids.PromoOptions, offer.Promo),
	}
	for i, fid := range ids.Photos {
		var img string
		if i < len(photos) {
			img = photos[i]
		}
		fields = append(fields, imageField(fid, img))
	}
	return append(fields,
		stringField(ids.Description, description),
		intField(ids.OfferType, offer.OfferType),
		stringField(ids.PostCode, offer.PostCode),
		stringField(ids.BankAccount, offer.BankAccount),
		floatField(ids.ShipmentCost, offer.ShipmentCost),
	)
}
