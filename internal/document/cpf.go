package document

import (
	"math/rand"
	"strings"
)

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF reports whether s (punctuation allowed) is a checksum-valid CPF.
func ValidCPF(s string) bool {
	d := Digits(s)
	if len(d) != 11 || allSame(d) {
		return false
	}
	digits := make([]int, 11)
	for i, r := range d {
		digits[i] = int(r - '0')
	}
	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

// GenerateCPF returns a random checksum-valid CPF as 11 digits.
func GenerateCPF() string {
	digits := make([]int, 9, 11)
	for {
		for i := range digits[:9] {
			digits[i] = rand.Intn(10)
		}
		if !allSameInts(digits[:9]) {
			break
		}
	}
	digits = append(digits, checkDigit(digits))
	digits = append(digits, checkDigit(digits))

	var b strings.Builder
	for _, v := range digits {
		b.WriteByte(byte('0' + v))
	}
	return b.String()
}

// Resolve returns the digits of s when it is a valid CPF, otherwise a
// freshly generated one.
func Resolve(s string) string {
	if ValidCPF(s) {
		return Digits(s)
	}
	return GenerateCPF()
}

func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, v := range digits {
		sum += v * weight
		weight--
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		return 0
	}
	return rem
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func allSameInts(v []int) bool {
	for i := 1; i < len(v); i++ {
		if v[i] != v[0] {
			return false
		}
	}
	return true
}
