// Package parse turns informal shorthand chat messages into structured
// transaction drafts.
//
// The grammar is deliberately loose:
//
//	[+|-] <magnitude>[k|m] [category] [- description]
//
// "10k food - sushi" records a 10,000 expense in Food & Dining. The parser
// always produces a best-effort record when the magnitude is valid: an
// unknown category never fails the parse, a missing or non-numeric magnitude
// always does. That asymmetry is the core usability contract and must hold.
package parse

import (
	"strconv"
	"strings"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

// descSep separates the category token from the free-text description.
const descSep = " - "

// Parser converts shorthand text into transaction drafts using a fixed
// category vocabulary. It is stateless and safe for concurrent use.
type Parser struct {
	vocab Vocabulary
}

func New(vocab Vocabulary) *Parser {
	return &Parser{vocab: vocab}
}

// Vocabulary exposes the parser's category table for callers that need to
// re-normalize edited categories the same way.
func (p *Parser) Vocabulary() Vocabulary {
	return p.vocab
}

// Parse converts one shorthand message into a draft. The second return value
// is false when no transaction can be derived: empty input, missing
// magnitude, non-numeric magnitude, or magnitude <= 0. There is no error
// value; callers branch on ok and ask the user to resend in the documented
// format.
func (p *Parser) Parse(text string) (core.Draft, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Draft{}, false
	}

	income := false
	switch {
	case strings.HasPrefix(text, "+"):
		income = true
		text = strings.TrimSpace(text[1:])
	case strings.HasPrefix(text, "-"):
		// Explicit expense marker, same as the default.
		text = strings.TrimSpace(text[1:])
	}

	head, desc := text, ""
	if i := strings.Index(text, descSep); i >= 0 {
		head = text[:i]
		desc = strings.TrimSpace(text[i+len(descSep):])
	}

	fields := strings.Fields(head)
	if len(fields) == 0 {
		return core.Draft{}, false
	}

	amount, ok := parseMagnitude(fields[0])
	if !ok {
		return core.Draft{}, false
	}

	rawCategory := strings.Join(fields[1:], " ")
	category := p.vocab.Normalize(rawCategory)
	if p.vocab.IsIncome(category) {
		income = true
	}

	kind := core.Expense
	if income {
		kind = core.Income
	}

	return core.Draft{
		Type:        kind,
		Amount:      core.Money{Cents: amount},
		Category:    category,
		Description: desc,
	}, true
}

// parseMagnitude parses a decimal token with an optional case-insensitive
// k (x1,000) or m (x1,000,000) suffix into minor currency units. Fractions
// beyond the scale of the multiplier truncate toward zero ("10.5" -> 10,
// "1.2345k" -> 1234). Everything is integer arithmetic; no floats.
func parseMagnitude(tok string) (int64, bool) {
	if tok == "" {
		return 0, false
	}

	mult := int64(1)
	fracDigits := 0
	switch tok[len(tok)-1] {
	case 'k', 'K':
		mult, fracDigits = 1_000, 3
		tok = tok[:len(tok)-1]
	case 'm', 'M':
		mult, fracDigits = 1_000_000, 6
		tok = tok[:len(tok)-1]
	}

	intPart, fracPart := tok, ""
	if i := strings.IndexByte(tok, '.'); i >= 0 {
		intPart, fracPart = tok[:i], tok[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, false
		}
	}
	if intPart == "" && fracPart == "" {
		return 0, false
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	const maxBeforeScale = (1<<63 - 1) / 1_000_000
	if iv > maxBeforeScale {
		return 0, false
	}

	value := iv * mult

	// Fractional digits contribute only down to whole minor units.
	if len(fracPart) > fracDigits {
		fracPart = fracPart[:fracDigits]
	}
	scale := mult
	for _, d := range fracPart {
		scale /= 10
		value += int64(d-'0') * scale
	}

	if value <= 0 {
		return 0, false
	}
	return value, true
}
