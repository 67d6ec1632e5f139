package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/shopspring/decimal"
)

// Args holds the loosely typed arguments of a tool call as decoded from
// JSON. The accessors convert them into strict types and report type
// mismatches as validation errors. A key holding null counts as absent.
type Args map[string]any

func (a Args) lookup(key string) (any, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (a Args) Has(key string) bool {
	_, ok := a.lookup(key)
	return ok
}

func typeError(key, expected string) error {
	return appErrors.AddValidationError(key, "must be "+expected)
}

func (a Args) String(key string) (string, error) {
	v, ok := a.lookup(key)
	if !ok {
		return "", nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	default:
		return "", typeError(key, "a string")
	}
}

func (a Args) RequiredString(key string) (string, error) {
	s, err := a.String(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", appErrors.AddValidationError(key, "is required")
	}
	return s, nil
}

// OptionalString returns nil when key is absent.
func (a Args) OptionalString(key string) (*string, error) {
	if !a.Has(key) {
		return nil, nil
	}
	s, err := a.String(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Int accepts JSON numbers with no fractional part and strings of digits.
func (a Args) Int(key string) (*int, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, nil
	}

	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.Abs(x) > math.MaxInt32 {
			return nil, typeError(key, "an integer")
		}
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil, typeError(key, "an integer")
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil, typeError(key, "an integer")
		}
		n = i
	default:
		return nil, typeError(key, "an integer")
	}
	return &n, nil
}

// IntOr returns def when key is absent.
func (a Args) IntOr(key string, def int) (int, error) {
	n, err := a.Int(key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return def, nil
	}
	return *n, nil
}

// Decimal accepts JSON numbers and numeric strings such as "79.90".
func (a Args) Decimal(key string) (*decimal.Decimal, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, typeError(key, "a number")
		}
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	default:
		return nil, typeError(key, "a number")
	}
	if err != nil {
		return nil, typeError(key, "a number")
	}
	return &d, nil
}

func (a Args) Bool(key string) (bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return false, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, typeError(key, "a boolean")
		}
		return b, nil
	default:
		return false, typeError(key, "a boolean")
	}
}

// Time accepts RFC 3339 timestamps and plain dates. A plain date is the
// start of that day in UTC, or its last instant when endOfDay is set, so a
// date range written as two days covers both of them.
func (a Args) Time(key string, endOfDay bool) (*time.Time, error) {
	s, err := a.String(key)
	if err != nil || s == "" {
		return nil, err
	}
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}

	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, typeError(key, "a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

// Strings accepts a list of strings or one comma separated string.
func (a Args) Strings(key string) ([]string, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, nil
	}

	var out []string
	switch x := v.(type) {
	case []string:
		out = x
	case string:
		for _, part := range strings.Split(x, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []any:
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, typeError(fmt.Sprintf("%s[%d]", key, i), "a string")
			}
			out = append(out, s)
		}
	default:
		return nil, typeError(key, "a list of strings")
	}
	return out, nil
}

// Entry is one element of a list argument. Err is set when the element is
// not an object; the other elements are still usable.
type Entry struct {
	Args Args
	Err  error
}

// Entries returns the elements of a required list of objects. Only a missing
// or non-list value fails the whole argument.
func (a Args) Entries(key string) ([]Entry, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, appErrors.AddValidationError(key, "is required")
	}

	items, ok := v.([]any)
	if !ok {
		return nil, typeError(key, "a list of objects")
	}

	out := make([]Entry, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, Entry{Err: typeError(fmt.Sprintf("%s[%d]", key, i), "an object")})
			continue
		}
		out = append(out, Entry{Args: Args(obj)})
	}
	return out, nil
}

// Object returns a nested argument object, or nil when it is absent.
func (a Args) Object(key string) (Args, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, typeError(key, "an object")
	}
	return Args(obj), nil
}
