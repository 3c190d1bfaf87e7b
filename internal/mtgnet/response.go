package mtgnet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// rowsMarker is the script call that carries the result rows in the ajax
// response.
const rowsMarker = "addRowsUnsorted("

// ErrMalformedResponse is returned when the response carries no result rows.
var ErrMalformedResponse = errors.New("malformed search response")

// Result row columns.
const (
	colName = iota
	colSet
	colNumber
	colRarity
	colArtist
	colType
	colMana
	colConvMana
	colColor
	_
	colLanguage
	colCondition
	colFoil
	colCount
	colBasket
	colReserve
	colPrice
)

// ParseResponse extracts the result rows from an ajax search response. The
// rows are a javascript array literal with single-quoted strings.
func ParseResponse(body []byte) ([][]string, error) {
	start := bytes.Index(body, []byte(rowsMarker))
	if start < 0 {
		return nil, ErrMalformedResponse
	}

	literal := jsToJSON(string(body[start+len(rowsMarker):]))

	dec := json.NewDecoder(strings.NewReader(literal))
	dec.UseNumber()

	var raw [][]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	rows := make([][]string, len(raw))
	for i, r := range raw {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// jsToJSON rewrites single-quoted string literals as JSON strings. Text
// outside string literals is copied unchanged.
func jsToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var quote byte // 0 outside a literal
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0:
			if ch == '\'' {
				quote = '\''
				b.WriteByte('"')
				continue
			}
			if ch == '"' {
				quote = '"'
			}
			b.WriteByte(ch)

		case ch == '\\' && i+1 < len(s):
			i++
			next := s[i]
			if quote == '\'' && next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}

		case ch == quote:
			quote = 0
			b.WriteByte('"')

		case quote == '\'' && ch == '"':
			b.WriteString(`\"`)

		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func listingFromRow(row []string) Listing {
	at := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	return Listing{
		Name:      at(colName),
		Set:       at(colSet),
		Number:    at(colNumber),
		Rarity:    at(colRarity),
		Artist:    at(colArtist),
		Type:      at(colType),
		Mana:      at(colMana),
		Language:  at(colLanguage),
		Condition: at(colCondition),
		Foil:      truthy(at(colFoil)),
		Count:     parseCount(at(colCount)),
		Price:     parsePrice(at(colPrice)),
	}
}

// truthy reports whether a cell holds a set flag. Empty, "0" and "false"
// are unset.
func truthy(v string) bool {
	return v != "" && v != "0" && !strings.EqualFold(v, "false")
}

func parseCount(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parsePrice(v string) float64 {
	v = strings.ReplaceAll(v, ",", ".")
	p, err := strconv.ParseFloat(v, 64)
	if err != nil || p < 0 {
		return 0
	}
	return p
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
