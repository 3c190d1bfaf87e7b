// Package deckfile reads Magic Workstation deck files (.mwDeck) annotated with
// publisher tags.
//
// A deck file mixes comment lines, tag lines and card rows:
//
//	// ### Deck Publisher Header ###
//	// @name  Burn Deck
//	// @price 49.99
//	// @photo http://example.com/deck1.jpg
//	// @description Fast red deck built around [Lightning Bolt].
//	// Sideboard handles control matchups.
//	        4 [M10] Lightning Bolt
//	        20 [M21] Mountain (1)
//	SB:     2 [M21] Duress
package deckfile

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
)

// MaxPhotos is the number of photo slots a deck can fill.
const MaxPhotos = 8

// Tags recognized in deck files.
const (
	TagName        = "name"
	TagPrice       = "price"
	TagPhoto       = "photo"
	TagDescription = "description"
)

var (
	// "// @tag value"
	tagLineRegex = regexp.MustCompile(`^\s*//\s*@(\w+)(?:\s+(.*?))?\s*$`)

	// "    4 [M21] Lightning Bolt"
	mainRowRegex = regexp.MustCompile(`^[ \t]+([0-9]+)[ \t]+\[(\w+)\][ \t]+(.*)$`)

	// "SB:  2 [M21] Duress"
	sideboardRowRegex = regexp.MustCompile(`^SB:[ \t]+([0-9]+)[ \t]+\[(\w+)\][ \t]+(.*)$`)

	// Basic land numbering, e.g. "Mountain (1)"
	landNumberRegex = regexp.MustCompile(`\s\([0-9]\)`)

	commentMarkerRegex = regexp.MustCompile(`^\s*//\s*`)
)

// Options controls how deck files are normalized.
type Options struct {
	// Header is prepended to files without the sentinel. Empty uses
	// DefaultHeader().
	Header string

	// RewriteFile writes the normalized text back to disk when ParseFile had
	// to add the header.
	RewriteFile bool
}

// DefaultOptions returns options with the embedded header and file rewriting
// enabled.
func DefaultOptions() *Options {
	return &Options{
		Header:      DefaultHeader(),
		RewriteFile: true,
	}
}

// ParseResult contains a parsed deck and what happened while parsing it.
type ParseResult struct {
	Deck *Deck

	// HeaderAdded is set when the text lacked the sentinel and the header
	// block was injected.
	HeaderAdded bool

	// Text is the normalized deck text the deck was extracted from.
	Text string

	// Warnings lists skipped lines and dropped values. They never fail a
	// parse.
	Warnings []string
}

// Parser extracts decks from deck file text.
type Parser struct {
	header  string
	rewrite bool
}

// NewParser creates a parser. A nil opts uses DefaultOptions.
func NewParser(opts *Options) *Parser {
	if opts == nil {
		opts = DefaultOptions()
	}
	header := opts.Header
	if header == "" {
		header = DefaultHeader()
	}
	return &Parser{
		header:  header,
		rewrite: opts.RewriteFile,
	}
}

// ParseFile reads and parses a deck file. When the header is injected and
// rewriting is enabled the file is overwritten with the normalized text
// before extraction, so it is rewritten even if extraction then fails.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}

	text, added := Normalize(string(data), p.header)
	if added && p.rewrite {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat deck file: %w", err)
		}
		if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("failed to write deck header: %w", err)
		}
	}

	result, err := p.extract(text)
	if err != nil {
		return nil, err
	}
	result.HeaderAdded = added
	return result, nil
}

// Parse normalizes text in memory and extracts the deck from it.
func (p *Parser) Parse(text string) (*ParseResult, error) {
	normalized, added := Normalize(text, p.header)
	result, err := p.extract(normalized)
	if err != nil {
		return nil, err
	}
	result.HeaderAdded = added
	return result, nil
}

// extract runs every extraction rule over canonical text in a single pass.
func (p *Parser) extract(text string) (*ParseResult, error) {
	result := &ParseResult{
		Text:     text,
		Warnings: make([]string, 0),
	}
	deck := &Deck{
		Photos:    make([]string, 0),
		Main:      cards.NewList(),
		Sideboard: cards.NewList(),
	}

	var (
		name, price         string
		nameSeen, priceSeen bool
		descSeen, inDesc    bool
		description         []string
	)

	for i, line := range splitLines(text) {
		lineNo := i + 1

		// A description block runs over every comment line after its marker
		// and ends at the first non-comment line. Tag lines inside it are
		// description text and are still applied as tags.
		if inDesc {
			if !isComment(line) {
				inDesc = false
			} else {
				if strings.TrimSpace(line) != Sentinel {
					description = append(description, commentMarkerRegex.ReplaceAllString(line, ""))
				}
				if !tagLineRegex.MatchString(line) {
					continue
				}
			}
		}

		if m := tagLineRegex.FindStringSubmatch(line); m != nil {
			tag, value := m[1], strings.TrimSpace(m[2])
			switch tag {
			case TagName:
				if !nameSeen {
					name, nameSeen = value, true
				}
			case TagPrice:
				if !priceSeen {
					price, priceSeen = value, true
				}
			case TagPhoto:
				if value == "" {
					continue
				}
				if len(deck.Photos) >= MaxPhotos {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("Line %d: photo %q dropped, only %d photos allowed", lineNo, value, MaxPhotos))
					continue
				}
				deck.Photos = append(deck.Photos, value)
			case TagDescription:
				if !descSeen {
					descSeen, inDesc = true, true
					if value != "" {
						description = append(description, value)
					}
				}
			}
			continue
		}

		if isComment(line) || strings.TrimSpace(line) == "" {
			continue
		}

		if m := sideboardRowRegex.FindStringSubmatch(line); m != nil {
			p.addRow(deck.Sideboard, m, lineNo, result)
			continue
		}
		if m := mainRowRegex.FindStringSubmatch(line); m != nil {
			p.addRow(deck.Main, m, lineNo, result)
			continue
		}

		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Line %d: Could not parse '%s'", lineNo, strings.TrimSpace(line)))
	}

	if name == "" {
		return nil, &MissingFieldError{Field: TagName}
	}
	if price == "" {
		return nil, &MissingFieldError{Field: TagPrice}
	}

	deck.Name = name
	deck.Price = price
	deck.Description = strings.TrimRight(strings.Join(description, "\n"), "\n")
	result.Deck = deck

	return result, nil
}

// addRow adds a matched card row (count, edition, raw name) to list.
func (p *Parser) addRow(list *cards.List, m []string, lineNo int, result *ParseResult) {
	count, err := strconv.Atoi(m[1])
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Line %d: Invalid quantity '%s'", lineNo, m[1]))
		return
	}

	name := CleanCardName(m[3])
	if name == "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Line %d: Missing card name", lineNo))
		return
	}

	if err := list.AddNew(name, m[2], count); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Line %d: %v", lineNo, err))
	}
}

// CleanCardName reduces a raw deck file name to the card's identity name:
//   - "Apprentice | Werewolf" => "Apprentice" (second face dropped)
//   - "Mountain (1)" => "Mountain" (land numbering dropped)
func CleanCardName(name string) string {
	if i := strings.IndexByte(name, '|'); i >= 0 {
		name = name[:i]
	}
	name = landNumberRegex.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
