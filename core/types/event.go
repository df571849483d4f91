package types

import "strconv"

// HeightAttribute is the attribute key stamped on every committed event.
const HeightAttribute = "height"

// Event is the wire form of a ledger event: a type name plus string
// attributes. Amounts are decimal strings and addresses are bech32.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// WithHeight stamps the commit height onto e and returns it.
func (e *Event) WithHeight(height uint64) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string, 1)
	}
	e.Attributes[HeightAttribute] = strconv.FormatUint(height, 10)
	return e
}

// Attr returns the named attribute, or "" when it is absent.
func (e *Event) Attr(key string) string {
	if e == nil {
		return ""
	}
	return e.Attributes[key]
}
