package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCentsUnmarshal(t *testing.T) {
	var body struct {
		Number Cents `json:"number"`
		Text   Cents `json:"text"`
		Bad    Cents `json:"bad"`
		Null   Cents `json:"null"`
		Frac   Cents `json:"frac"`
		Object Cents `json:"object"`
		Absent Cents `json:"absent"`
	}
	raw := `{"number":1000,"text":"250","bad":"abc","null":null,"frac":99.6,"object":{"x":1}}`
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !body.Number.Valid || body.Number.Value != 1000 {
		t.Fatalf("number: got %+v", body.Number)
	}
	if !body.Text.Valid || body.Text.Value != 250 {
		t.Fatalf("text: got %+v", body.Text)
	}
	if !body.Frac.Valid || body.Frac.Value != 100 {
		t.Fatalf("frac: got %+v", body.Frac)
	}
	for name, c := range map[string]Cents{"bad": body.Bad, "null": body.Null, "object": body.Object, "absent": body.Absent} {
		if c.Valid || c.Value != 0 {
			t.Fatalf("%s: expected invalid zero, got %+v", name, c)
		}
	}
}

func TestToCents(t *testing.T) {
	cases := map[string]int64{
		"10":     1000,
		"10.00":  1000,
		"4.99":   499,
		"19.995": 2000,
		"0.1":    10,
	}
	for in, want := range cases {
		if got := ToCents(decimal.RequireFromString(in)); !got.Valid || got.Value != want {
			t.Fatalf("ToCents(%s) = %+v, want %d", in, got, want)
		}
	}
}

func TestOutOfRangeIsInvalid(t *testing.T) {
	for _, raw := range []string{"1e20", "-1e20", "9223372036854775808"} {
		if c := Coerce(raw); c.Valid || c.Value != 0 {
			t.Fatalf("Coerce(%s): expected invalid zero, got %+v", raw, c)
		}
	}
	if c := Coerce("9223372036854775807"); !c.Valid || c.Value != 9223372036854775807 {
		t.Fatalf("max int64 must stay valid, got %+v", c)
	}
	if c := ToCents(decimal.RequireFromString("1e18")); c.Valid {
		t.Fatalf("1e18 whole units overflow cents, got %+v", c)
	}

	var body struct {
		Amount Cents `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":1e20}`), &body); err != nil || body.Amount.Valid {
		t.Fatalf("huge json amount must decode invalid, got %+v %v", body.Amount, err)
	}
}

func TestCommission(t *testing.T) {
	if got := Commission(1000, 200, true); got != 800 {
		t.Fatalf("expected 800, got %d", got)
	}
	if got := Commission(500, 500, true); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
	if got := Commission(500, 700, true); got != 1 {
		t.Fatalf("expected floor of 1 for negative commission, got %d", got)
	}
	if got := Commission(500, 500, false); got != 0 {
		t.Fatalf("expected no floor for unpaid order, got %d", got)
	}
	if got := Commission(0, 0, true); got != 0 {
		t.Fatalf("expected no floor for zero total, got %d", got)
	}
}
