package calc

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds x to 2 decimal places, half away from zero.
// The value goes through its shortest decimal representation first, so 1.005
// rounds to 1.01 rather than to the binary neighbour 1.00.
func Round2(x float64) float64 {
	x = finite(x)
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// Cents converts x to an integer number of hundredths, rounding half away from zero.
func Cents(x float64) int64 {
	return decimal.NewFromFloat(finite(x)).Round(2).Shift(2).IntPart()
}

// WholeCents reports whether x has no digits past the second decimal place.
func WholeCents(x float64) bool {
	d := decimal.NewFromFloat(finite(x))
	return d.Equal(d.Round(2))
}

// FromCents converts hundredths back to a float.
func FromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}

// Format renders x with exactly two decimals, e.g. "1062.00".
func Format(x float64) string {
	return decimal.NewFromFloat(finite(x)).StringFixed(2)
}

// Coerce parses a form value as a number. Anything unparseable, including
// NaN and infinities, becomes 0.
func Coerce(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Number is a JSON numeric input that tolerates form-style values.
// It accepts numbers and numeric strings; other strings decode to 0.
// Set records whether the field held a number or a non-empty string, so
// null, booleans, objects and arrays count as absent.
type Number struct {
	Value float64
	Set   bool
}

// N builds a present Number.
func N(v float64) Number { return Number{Value: v, Set: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = Number{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = Number{Value: Coerce(str), Set: strings.TrimSpace(str) != ""}
		return nil
	}
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		// Booleans, objects and arrays carry no number at all.
		*n = Number{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = Number{Set: true}
		return nil
	}
	*n = Number{Value: finite(f), Set: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
