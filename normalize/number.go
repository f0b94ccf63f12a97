package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Number decodes every numeric shape the Yahoo endpoints emit: a bare number,
// {"raw": 1.5, "fmt": "1.50"}, an empty object, a numeric string, or null.
// The empty object and null both mean "not reported".
type Number struct {
	decimal.NullDecimal
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	n.NullDecimal = decimal.NullDecimal{}

	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '{':
		var wrapped struct {
			Raw json.RawMessage `json:"raw"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return fmt.Errorf("decode wrapped number: %w", err)
		}
		if len(wrapped.Raw) == 0 || wrapped.Raw[0] == '{' {
			return nil
		}
		return n.UnmarshalJSON(wrapped.Raw)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode numeric string: %w", err)
		}
		n.NullDecimal = ParseText(s)
		return nil
	default:
		d, err := decimal.NewFromString(string(b))
		if err != nil {
			return fmt.Errorf("decode number %s: %w", b, err)
		}
		n.NullDecimal = decimal.NullDecimal{Decimal: d, Valid: true}
		return nil
	}
}

// MarshalJSON emits a plain number, or null when absent
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Decimal.String()), nil
}
