package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Document is the persisted form of the whole ledger.
type Document struct {
	Holdings     map[string]Positions     `json:"holdings"`
	Transactions map[string][]Transaction `json:"transactions"`
}

// NewDocument returns an empty document.
func NewDocument() Document {
	return Document{
		Holdings:     make(map[string]Positions),
		Transactions: make(map[string][]Transaction),
	}
}

// Positions is one user's holdings in first-insertion order. It encodes as a JSON
// object whose key order is the slice order.
type Positions []Holding

// MarshalJSON writes {"SYMBOL": "quantity", ...} preserving order.
func (p Positions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(h.Symbol)
		if err != nil {
			return nil, err
		}
		val, err := h.Quantity.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object back in document order.
func (p *Positions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("positions: expected object, got %v", tok)
	}

	out := Positions{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		symbol, ok := tok.(string)
		if !ok {
			return fmt.Errorf("positions: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("positions %s: %w", symbol, err)
		}
		var qty decimal.Decimal
		if err := qty.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("positions %s: %w", symbol, err)
		}
		out = append(out, Holding{Symbol: symbol, Quantity: qty})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}
