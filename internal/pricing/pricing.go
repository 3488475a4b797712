package pricing

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Cents is an integer minor-unit amount decoded from untrusted JSON.
// Numbers and numeric strings are accepted; anything else decodes to an
// invalid zero value instead of failing the whole payload.
type Cents struct {
	Value int64
	Valid bool
}

func NewCents(v int64) Cents { return Cents{Value: v, Valid: true} }

func (c *Cents) UnmarshalJSON(b []byte) error {
	*c = Coerce(string(bytes.Trim(bytes.TrimSpace(b), `"`)))
	return nil
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(decimal.NewFromInt(c.Value).String()), nil
}

// Coerce parses a raw amount into cents-as-given, rounding fractions.
func Coerce(raw string) Cents {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Cents{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Cents{}
	}
	return fromDecimal(d)
}

// ToCents converts a whole-currency amount (e.g. 10.00 BRL) to cents.
func ToCents(amount decimal.Decimal) Cents {
	return fromDecimal(amount.Mul(hundred))
}

// fromDecimal rounds d to whole cents. Values outside int64 are invalid
// rather than wrapped.
func fromDecimal(d decimal.Decimal) Cents {
	r := d.Round(0)
	if !r.BigInt().IsInt64() {
		return Cents{}
	}
	return Cents{Value: r.IntPart(), Valid: true}
}

// Commission is the affiliate share of a sale. A paid order with a
// positive total never reports less than one cent.
func Commission(total, fee int64, paid bool) int64 {
	commission := total - fee
	if paid && total > 0 && commission <= 0 {
		return 1
	}
	return commission
}
