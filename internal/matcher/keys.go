package matcher

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"quote-vehicle-reconciler/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrUncoercibleKey = errors.New("value cannot be coerced to a catalog key")

// KeyString renders a legacy descriptor code the way catalog keys are
// stored. Integral floats lose their fraction, so 3 and 3.0 both become "3".
func KeyString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case primitive.Decimal128:
		return formatDecimal(x)
	default:
		return "", fmt.Errorf("%w: %T", ErrUncoercibleKey, v)
	}
}

// formatDecimal renders d in plain notation without trailing fractional
// zeros, so 3.0, 3.00 and 300E-2 all become "3".
func formatDecimal(d primitive.Decimal128) (string, error) {
	coef, exp, err := d.BigInt()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUncoercibleKey, d)
	}
	if coef.Sign() == 0 {
		return "0", nil
	}

	ten := big.NewInt(10)
	rem := new(big.Int)
	for exp < 0 {
		q, r := new(big.Int).QuoRem(coef, ten, rem)
		if r.Sign() != 0 {
			break
		}
		coef, exp = q, exp+1
	}
	if exp >= 0 {
		scale := new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil)
		return new(big.Int).Mul(coef, scale).String(), nil
	}

	digits := new(big.Int).Abs(coef).String()
	frac := -exp
	if len(digits) <= frac {
		digits = strings.Repeat("0", frac-len(digits)+1) + digits
	}
	out := digits[:len(digits)-frac] + "." + digits[len(digits)-frac:]
	if coef.Sign() < 0 {
		out = "-" + out
	}
	return out, nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUncoercibleKey, f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// descriptorKeys coerces the make, model and body style of a query.
func descriptorKeys(q models.CatalogQuery) (mk, model, bodyStyle string, err error) {
	if mk, err = KeyString(q.Make); err != nil {
		return "", "", "", fmt.Errorf("make: %w", err)
	}
	if model, err = KeyString(q.Model); err != nil {
		return "", "", "", fmt.Errorf("model: %w", err)
	}
	if bodyStyle, err = KeyString(q.BodyStyle); err != nil {
		return "", "", "", fmt.Errorf("bodyStyle: %w", err)
	}
	return mk, model, bodyStyle, nil
}

// idEqual compares opaque identifiers with the store's equality: numbers
// compare by value across widths, everything else structurally.
func idEqual(a, b interface{}) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
