package document

// DefaultPhone is sent to the gateway when the buyer gave none.
const DefaultPhone = "5511999999999"

// NormalizePhone returns the digits of a Brazilian phone number with the
// country code prefixed.
func NormalizePhone(s string) string {
	d := Digits(s)
	switch {
	case d == "":
		return DefaultPhone
	case len(d) == 10 || len(d) == 11:
		return "55" + d
	}
	return d
}
