package ir

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// decimalContext is wide enough for remainders of any int64 or float64 pair.
var decimalContext = apd.BaseContext.WithPrecision(400)

// ToRat converts a numeric value to an exact rational. Floats are converted
// through their shortest decimal representation, so 0.1 becomes 1/10.
func ToRat(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int8:
		return new(big.Rat).SetInt64(int64(n)), true
	case int16:
		return new(big.Rat).SetInt64(int64(n)), true
	case int32:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case uint:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Rat).SetUint64(n), true
	case float32:
		return floatRat(float64(n), 32)
	case float64:
		return floatRat(n, 64)
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Rat).SetInt(n), true
	case *big.Rat:
		if n == nil {
			return nil, false
		}
		return new(big.Rat).Set(n), true
	case *apd.Decimal:
		if n == nil {
			return nil, false
		}
		return decimalRat(n)
	case apd.Decimal:
		return decimalRat(&n)
	case json.Number:
		return new(big.Rat).SetString(string(n))
	}
	return nil, false
}

// ToDecimal converts an integer, float or decimal to an apd decimal.
// Rationals have no exact decimal form and report false.
func ToDecimal(v any) (*apd.Decimal, bool) {
	switch n := v.(type) {
	case *apd.Decimal:
		if n == nil || n.Form != apd.Finite {
			return nil, false
		}
		return new(apd.Decimal).Set(n), true
	case apd.Decimal:
		if n.Form != apd.Finite {
			return nil, false
		}
		return new(apd.Decimal).Set(&n), true
	case float32:
		return floatDecimal(float64(n), 32)
	case float64:
		return floatDecimal(n, 64)
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(n), 0), true
	case *big.Rat:
		return nil, false
	}
	if !isInteger(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.CanInt() {
		return apd.New(rv.Int(), 0), true
	}
	d, _, err := apd.NewFromString(strconv.FormatUint(rv.Uint(), 10))
	if err != nil {
		return nil, false
	}
	return d, true
}

// IsNumeric reports whether v is one of the numeric kinds.
func IsNumeric(v any) bool {
	_, ok := ToRat(v)
	return ok
}

// IsMultipleOf reports whether value is an exact multiple of divisor. valid is
// false when either operand is not numeric or divisor is zero.
func IsMultipleOf(value, divisor any) (ok bool, valid bool) {
	_, valueRat := value.(*big.Rat)
	_, divisorRat := divisor.(*big.Rat)
	if !valueRat && !divisorRat {
		x, okx := ToDecimal(value)
		y, oky := ToDecimal(divisor)
		if okx && oky {
			if y.IsZero() {
				return false, false
			}
			var rem apd.Decimal
			if _, err := decimalContext.Rem(&rem, x, y); err == nil {
				return rem.IsZero(), true
			}
		}
	}
	x, okx := ToRat(value)
	y, oky := ToRat(divisor)
	if !okx || !oky || y.Sign() == 0 {
		return false, false
	}
	return new(big.Rat).Quo(x, y).IsInt(), true
}

// Compare orders two values of the same family: numbers, strings, times or
// durations. ok is false when the values are not comparable.
func Compare(a, b any) (int, bool) {
	if ra, oka := ToRat(a); oka {
		if rb, okb := ToRat(b); okb {
			return ra.Cmp(rb), true
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case time.Duration:
		if y, ok := b.(time.Duration); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

// ValuesEqual compares numbers by value across numeric kinds and everything else
// with reflect.DeepEqual.
func ValuesEqual(a, b any) bool {
	if ra, oka := ToRat(a); oka {
		if rb, okb := ToRat(b); okb {
			return ra.Cmp(rb) == 0
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func floatRat(f float64, bits int) (*big.Rat, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, bits))
}

func floatDecimal(f float64, bits int) (*apd.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'g', -1, bits))
	if err != nil {
		return nil, false
	}
	return d, true
}

func decimalRat(d *apd.Decimal) (*big.Rat, bool) {
	if d.Form != apd.Finite {
		return nil, false
	}
	return new(big.Rat).SetString(d.Text('f'))
}
