package deckfile

import (
	_ "embed"
	"strings"
)

// Sentinel marks a deck file that already carries the publisher header.
const Sentinel = "// ### Deck Publisher Header ###"

//go:embed default_header.txt
var defaultHeader string

// DefaultHeader returns the header block prepended to deck files that lack
// the sentinel.
func DefaultHeader() string {
	return defaultHeader
}

// HasHeader reports whether any line of text is the sentinel.
func HasHeader(text string) bool {
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == Sentinel {
			return true
		}
	}
	return false
}

// AddHeader prepends header to text and drops every comment line of text.
// The sentinel is added to header when it does not contain one. Line endings
// follow text: CRLF files stay CRLF.
func AddHeader(text, header string) string {
	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
	}

	headerLines := splitLines(strings.TrimRight(header, "\r\n"))
	if !HasHeader(header) {
		headerLines = append([]string{Sentinel}, headerLines...)
	}

	out := make([]string, 0, len(headerLines)+1)
	out = append(out, headerLines...)
	for _, line := range splitLines(text) {
		if isComment(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, eol)
}

// Normalize returns the canonical text of a deck and whether the header had
// to be added.
func Normalize(text, header string) (string, bool) {
	if HasHeader(text) {
		return text, false
	}
	return AddHeader(text, header), true
}

// splitLines splits on LF and drops the CR of CRLF endings.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "//")
}
