package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/publisher"
)

const confirmQuestion = "Do you want create new auction?"

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(11)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAC858"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9622B"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5470C6")).
			Padding(0, 1)
)

// summary renders the deck overview shown before publishing.
func summary(build *publisher.Build) string {
	deck := build.Deck
	line := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label+":"), valueStyle.Render(value))
	}

	lines := []string{
		line("Name", deck.Name),
		line("Price", deck.Price),
	}
	for _, r := range cards.Rarities {
		lines = append(lines, line(r.String(), fmt.Sprint(deck.CountByRarity(r))))
	}
	lines = append(lines,
		line("All cards", fmt.Sprint(deck.CardCount())),
		"",
		line("Preview", build.PreviewPath),
	)
	if build.ChartPath != "" {
		lines = append(lines, line("Chart", build.ChartPath))
	}
	if n := len(build.Unresolved); n > 0 {
		lines = append(lines, "", warnStyle.Render(fmt.Sprintf("%d card(s) not found in the card database", n)))
		for _, id := range build.Unresolved {
			if names := build.Suggestions[id]; len(names) > 0 {
				lines = append(lines, fmt.Sprintf("  %s: did you mean %s?", id, strings.Join(names, ", ")))
			}
		}
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

// confirm asks a Y/N question and reads answers until one is given. Any
// other input is ignored; end of input counts as no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "\n%s (Y/N): ", question)

	reader := bufio.NewReader(in)
	for {
		r, _, err := reader.ReadRune()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		switch r {
		case 'Y', 'y':
			return true, nil
		case 'N', 'n':
			return false, nil
		}
	}
}
