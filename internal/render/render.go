// Package render turns an enriched deck into the HTML page used for the
// preview file and the auction description.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
)

const (
	manaSymbolURL = "http://gatherer.wizards.com/Handlers/Image.ashx?size=small&name=%s&type=symbol"
	setSymbolURL  = "http://gatherer.wizards.com/Handlers/Image.ashx?type=symbol&set=%s&size=small&rarity=%s"

	defaultTemplate = "templates/deck.html.tmpl"
	defaultStyle    = "templates/mtg_style.css"
)

//go:embed templates/deck.html.tmpl templates/mtg_style.css
var assets embed.FS

var (
	manaPattern      = regexp.MustCompile(`\{(.*?)\}`)
	referencePattern = regexp.MustCompile(`\[(.*?)\]`)
)

// Price is the market price shown next to a card.
type Price struct {
	Value float64
	Stock int
}

// Options selects the optional table columns.
type Options struct {
	// ShowRating adds a rating column and orders both lists by rating,
	// highest first.
	ShowRating bool

	// ShowPrices adds a price column filled from Prices.
	ShowPrices bool

	// Prices maps card names to their market price. Cards without an entry
	// or without stock render as "-".
	Prices map[string]Price
}

// Template renders decks with a parsed page template and stylesheet.
type Template struct {
	tmpl  *template.Template
	style string
}

// New returns a Template using the embedded page template and stylesheet.
func New() (*Template, error) {
	return Load("", "")
}

// Load returns a Template reading the page template and stylesheet from the
// given files. An empty path selects the embedded default.
func Load(templatePath, stylePath string) (*Template, error) {
	src, err := readAsset(templatePath, defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	style, err := readAsset(stylePath, defaultStyle)
	if err != nil {
		return nil, fmt.Errorf("failed to read stylesheet: %w", err)
	}

	tmpl, err := template.New("deck").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Template{tmpl: tmpl, style: string(style)}, nil
}

func readAsset(path, embedded string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return assets.ReadFile(embedded)
}

// Render writes the deck page to w. The deck is not modified.
func (t *Template) Render(w io.Writer, deck *deckfile.Deck, opts Options) error {
	if deck == nil {
		return fmt.Errorf("deck cannot be nil")
	}
	if err := t.tmpl.Execute(w, buildPage(deck, t.style, opts)); err != nil {
		return fmt.Errorf("failed to render deck %q: %w", deck.Name, err)
	}
	return nil
}

// RenderString renders the deck page into a string.
func (t *Template) RenderString(deck *deckfile.Deck, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := t.Render(&buf, deck, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderFile writes the deck page to path.
func (t *Template) RenderFile(path string, deck *deckfile.Deck, opts Options) error {
	html, err := t.RenderString(deck, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type page struct {
	Style       template.CSS
	Name        string
	Description template.HTML
	Main        section
	Sideboard   section
	Stats       stats
	Gallery     []cardLink
}

type section struct {
	Title      string
	Count      int
	ShowRating bool
	ShowPrices bool
	Rows       []row
}

type row struct {
	Count        int
	Card         cardLink
	Type         string
	Mana         []string
	SetSymbolURL string
	Rating       string
	Price        string
}

type cardLink struct {
	Name     string
	PageURL  string
	ImageURL string
}

type stats struct {
	Total int
	Lines []statLine
}

type statLine struct {
	Count int
	Label string
}

func buildPage(deck *deckfile.Deck, style string, opts Options) page {
	all := deck.AllCards()

	p := page{
		Style:       template.CSS(style),
		Name:        deck.Name,
		Description: Description(deck.Description, all),
		Main:        buildSection("Karty", deck.Main, opts),
		Sideboard:   buildSection("Sideboard", deck.Sideboard, opts),
		Stats:       stats{Total: all.Count()},
	}

	for _, r := range cards.Rarities {
		if n := all.CountByRarity(r); n > 0 {
			p.Stats.Lines = append(p.Stats.Lines, statLine{Count: n, Label: r.String()})
		}
	}

	for _, c := range all.Cards() {
		if link := linkFor(c); link.ImageURL != "" {
			p.Gallery = append(p.Gallery, link)
		}
	}

	return p
}

func buildSection(title string, list *cards.List, opts Options) section {
	s := section{
		Title:      title,
		ShowRating: opts.ShowRating,
		ShowPrices: opts.ShowPrices,
	}
	if list == nil {
		return s
	}

	ordered := cards.Merge(list, nil)
	if opts.ShowRating {
		ordered.SortByRating(false)
	}

	s.Count = ordered.Count()
	for _, c := range ordered.Cards() {
		r := row{
			Count: c.Count(),
			Card:  linkFor(c),
			Type:  c.Type(),
			Mana:  ManaSymbolURLs(c.ManaCost()),
		}
		if code := c.Rarity(); code != "" {
			r.SetSymbolURL = fmt.Sprintf(setSymbolURL, url.QueryEscape(c.GathererSetCode()), url.QueryEscape(code))
		}
		if opts.ShowRating {
			r.Rating = formatRating(c)
		}
		if opts.ShowPrices {
			r.Price = FormatPrice(opts.Prices, c.Name())
		}
		s.Rows = append(s.Rows, r)
	}
	return s
}

func linkFor(c *cards.Card) cardLink {
	return cardLink{
		Name:     c.Name(),
		PageURL:  c.GathererURL(),
		ImageURL: c.GathererImageURL(),
	}
}

func formatRating(c *cards.Card) string {
	rating, ok := c.Rating()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f", rating)
}

// FormatPrice renders the price cell for name: "12.50 (3)", or "-" when
// there is no price or no stock.
func FormatPrice(prices map[string]Price, name string) string {
	p, ok := prices[name]
	if !ok || p.Stock == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f (%d)", p.Value, p.Stock)
}

// ManaSymbolURLs returns one Gatherer symbol image per {X} group of a mana
// cost.
func ManaSymbolURLs(cost string) []string {
	matches := manaPattern.FindAllStringSubmatch(cost, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, fmt.Sprintf(manaSymbolURL, url.QueryEscape(m[1])))
	}
	return urls
}

// Description escapes the deck description and turns each [Card Name]
// reference found in all into a tooltip link showing the card image.
// References to unknown cards render as plain names. Line breaks become <br/>.
func Description(text string, all *cards.List) template.HTML {
	var b strings.Builder
	last := 0
	for _, loc := range referencePattern.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(escapeText(text[last:loc[0]]))
		name := text[loc[2]:loc[3]]
		if c, ok := all.FindByName(name); ok {
			b.WriteString(tooltipHTML(c))
		} else {
			b.WriteString(template.HTMLEscapeString(name))
		}
		last = loc[1]
	}
	b.WriteString(escapeText(text[last:]))
	return template.HTML(b.String())
}

func escapeText(s string) string {
	return strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br/>\n")
}

func tooltipHTML(c *cards.Card) string {
	link := linkFor(c)
	href := "#"
	if link.PageURL != "" {
		href = link.PageURL
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<a class="cardTooltip" href="%s">%s`,
		template.HTMLEscapeString(href), template.HTMLEscapeString(link.Name))
	if link.ImageURL != "" {
		fmt.Fprintf(&b, `<span><img class="cardImgGatherer shadow" src="%s"/></span>`,
			template.HTMLEscapeString(link.ImageURL))
	}
	b.WriteString("</a>")
	return b.String()
}
