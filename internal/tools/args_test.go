package tools

import (
	"encoding/json"
	"testing"
	"time"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsInt(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    *int
		wantErr bool
	}{
		{name: "absent", value: nil, want: nil},
		{name: "json float", value: float64(3), want: intPtr(3)},
		{name: "json number", value: json.Number("12"), want: intPtr(12)},
		{name: "digit string", value: " 7 ", want: intPtr(7)},
		{name: "negative", value: float64(-2), want: intPtr(-2)},
		{name: "fraction", value: 2.5, wantErr: true},
		{name: "word", value: "three", wantErr: true},
		{name: "bool", value: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := Args{}
			if tt.value != nil {
				args["n"] = tt.value
			}

			got, err := args.Int("n")

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
				assert.Equal(t, "Invalid field 'n': must be an integer", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgsDecimal(t *testing.T) {
	args := Args{"a": 79.9, "b": "79.90", "c": json.Number("0.1"), "d": "abc", "e": []any{}}

	a, err := args.Decimal("a")
	require.NoError(t, err)
	assert.Equal(t, "79.90", a.StringFixed(2))

	b, err := args.Decimal("b")
	require.NoError(t, err)
	assert.True(t, a.Equal(*b))

	c, err := args.Decimal("c")
	require.NoError(t, err)
	assert.Equal(t, "0.1", c.String())

	_, err = args.Decimal("d")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
	_, err = args.Decimal("e")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	missing, err := args.Decimal("missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestArgsStringsAndBool(t *testing.T) {
	args := Args{
		"list":   []any{"id", "email"},
		"csv":    "id, name,,email",
		"bad":    []any{"id", 3},
		"yes":    "true",
		"flag":   true,
		"number": float64(1),
	}

	list, err := args.Strings("list")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, list)

	csv, err := args.Strings("csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email"}, csv)

	_, err = args.Strings("bad")
	assert.EqualError(t, err, "Invalid field 'bad[1]': must be a string")

	yes, err := args.Bool("yes")
	require.NoError(t, err)
	assert.True(t, yes)

	flag, err := args.Bool("flag")
	require.NoError(t, err)
	assert.True(t, flag)

	_, err = args.Bool("number")
	assert.Error(t, err)

	_, err = args.String("number")
	assert.EqualError(t, err, "Invalid field 'number': must be a string")
}

func TestArgsTime(t *testing.T) {
	args := Args{
		"day":   "2024-06-10",
		"stamp": "2024-06-10T15:04:05Z",
		"bad":   "10/06/2024",
	}

	start, err := args.Time("day", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), *start)

	end, err := args.Time("day", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 23, 59, 59, 999999999, time.UTC), *end)

	stamp, err := args.Time("stamp", true)
	require.NoError(t, err)
	assert.Equal(t, 15, stamp.Hour())

	_, err = args.Time("bad", false)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	none, err := args.Time("missing", false)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestArgsEntries(t *testing.T) {
	args := Args{
		"items": []any{map[string]any{"user_id": "u1"}, "nope", map[string]any{}},
		"flat":  "u1",
	}

	entries, err := args.Entries("items")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.NoError(t, entries[0].Err)
	assert.Equal(t, "u1", entries[0].Args["user_id"])
	assert.EqualError(t, entries[1].Err, "Invalid field 'items[1]': must be an object")
	assert.NoError(t, entries[2].Err)

	_, err = args.Entries("flat")
	assert.EqualError(t, err, "Invalid field 'flat': must be a list of objects")

	_, err = args.Entries("missing")
	assert.EqualError(t, err, "Invalid field 'missing': is required")
}

func TestArgsObject(t *testing.T) {
	args := Args{"filter": map[string]any{"name": "ana"}, "flat": "ana"}

	obj, err := args.Object("filter")
	require.NoError(t, err)
	assert.Equal(t, "ana", obj["name"])

	none, err := args.Object("missing")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = args.Object("flat")
	assert.EqualError(t, err, "Invalid field 'flat': must be an object")
}

func intPtr(v int) *int { return &v }
