// Package holdings turns 13F information table documents into normalized holdings.
package holdings

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

// Canonical element names: lower case with '-' and '_' removed, so the
// camel-case and hyphenated schema spellings compare equal.
const (
	elemInformationTable = "informationtable"
	elemInfoTable        = "infotable"
	elemNameOfIssuer     = "nameofissuer"
	elemTitleOfClass     = "titleofclass"
	elemCUSIP            = "cusip"
	elemValue            = "value"
	elemShrsOrPrnAmt     = "shrsorprnamt"
	elemSshPrnamt        = "sshprnamt"
	elemPutCall          = "putcall"
)

// xmlNode is a namespace-free element tree.
type xmlNode struct {
	name     string // canonical
	text     strings.Builder
	children []*xmlNode
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *xmlNode) childText(name string) string {
	if c := n.child(name); c != nil {
		return strings.TrimSpace(c.text.String())
	}
	return ""
}

// find returns the first element named name in document order.
func (n *xmlNode) find(name string) *xmlNode {
	if n.name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

// Parser parses information table documents.
type Parser struct {
	log zerolog.Logger
}

// NewParser creates a new holdings parser.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{
		log: log.With().Str("component", "holdings_parser").Logger(),
	}
}

// Parse returns the holdings of an information table document.
// It never fails: a malformed document or one without an information table
// yields an empty slice. Option positions (put/call other than "none") are dropped.
func (p *Parser) Parse(data []byte) []domain.Holding {
	root, err := buildTree(data)
	if err != nil {
		p.log.Debug().Err(err).Int("bytes", len(data)).Msg("Malformed information table")
		return []domain.Holding{}
	}

	table := root.find(elemInformationTable)
	if table == nil {
		p.log.Debug().Int("bytes", len(data)).Msg("Document has no information table")
		return []domain.Holding{}
	}

	holdings := make([]domain.Holding, 0, len(table.children))
	dropped := 0
	for _, row := range table.children {
		if row.name != elemInfoTable {
			continue
		}
		h := holdingFromRow(row)
		if !isLongPosition(h.PutCall) {
			dropped++
			continue
		}
		holdings = append(holdings, h)
	}

	if dropped > 0 {
		p.log.Debug().Int("dropped", dropped).Msg("Dropped option positions")
	}

	return holdings
}

func holdingFromRow(row *xmlNode) domain.Holding {
	h := domain.Holding{
		NameOfIssuer: row.childText(elemNameOfIssuer),
		ClassTitle:   row.childText(elemTitleOfClass),
		CUSIP:        strings.ToUpper(row.childText(elemCUSIP)),
		Value:        parseNumber(row.childText(elemValue)),
		PutCall:      row.childText(elemPutCall),
	}
	if amt := row.child(elemShrsOrPrnAmt); amt != nil {
		h.Shares = int64(parseNumber(amt.childText(elemSshPrnamt)))
	}
	return h
}

func isLongPosition(putCall string) bool {
	return putCall == "" || strings.EqualFold(putCall, "none")
}

// parseNumber reads a numeric field, tolerating thousands separators.
// Unparseable input counts as zero.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func canonicalName(local string) string {
	var b strings.Builder
	b.Grow(len(local))
	for _, r := range strings.ToLower(local) {
		if r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// buildTree decodes data into an element tree rooted at a synthetic document node.
// Element names keep only their local part, which drops namespace prefixes.
func buildTree(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	// Filers emit bare ampersands and HTML entities in issuer names
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	root := &xmlNode{}
	stack := []*xmlNode{root}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: canonicalName(t.Name.Local)}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		}
	}

	return root, nil
}

// TopHolding returns the holding with the largest value.
// Ties go to the holding that appears first. ok is false for an empty list.
func TopHolding(holdings []domain.Holding) (domain.Holding, bool) {
	if len(holdings) == 0 {
		return domain.Holding{}, false
	}
	top := holdings[0]
	for _, h := range holdings[1:] {
		if h.Value > top.Value {
			top = h
		}
	}
	return top, true
}
