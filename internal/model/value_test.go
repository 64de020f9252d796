package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValue_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   Value
	}{
		{"null", Null{}},
		{"bool_true", Bool(true)},
		{"bool_false", Bool(false)},
		{"int", Int(42)},
		{"int_negative", Int(-7)},
		{"int_large", Int(1 << 60)},
		{"float", Float(3.25)},
		{"float_whole", Float(2.0)},
		{"string", String("Tank")},
		{"string_unicode", String("naïve £")},
		{"point", Point{X: 1.5, Y: -2.0}},
		{"ref", Ref(12)},
		{"reflist", RefList{1, 2, 3}},
		{"reflist_empty", RefList{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeValue(tc.in)
			require.NoError(t, err)

			out, err := DecodeValue(data)
			require.NoError(t, err)
			assert.True(t, ValuesEqual(tc.in, out),
				"round trip changed value: %#v -> %s -> %#v", tc.in, data, out)
		})
	}
}

func TestEncodeValue_FloatKeepsDecimalPoint(t *testing.T) {
	data, err := EncodeValue(Float(2.0))
	require.NoError(t, err)
	assert.Equal(t, "2.0", string(data))

	// Whole floats must not decode back as ints.
	out, err := DecodeValue(data)
	require.NoError(t, err)
	_, isFloat := out.(Float)
	assert.True(t, isFloat, "got %#v", out)
}

func TestEncodeValue_NonFiniteFloatRejected(t *testing.T) {
	_, err := EncodeValue(Float(math.Inf(1)))
	assert.Error(t, err)

	_, err = EncodeValue(Float(math.NaN()))
	assert.Error(t, err)
}

func TestDecodeValue_LargeIntKeepsPrecision(t *testing.T) {
	out, err := DecodeValue([]byte("9007199254740993")) // 2^53 + 1
	require.NoError(t, err)
	assert.Equal(t, Int(9007199254740993), out)
}

func TestTypeOf(t *testing.T) {
	vt, ok := TypeOf(Int(1))
	assert.True(t, ok)
	assert.Equal(t, TypeInt, vt)

	_, ok = TypeOf(Null{})
	assert.False(t, ok, "null has no type of its own")
}

func TestReferences(t *testing.T) {
	assert.Equal(t, []ObjectID{7}, References(Ref(7)))
	assert.Equal(t, []ObjectID{1, 2}, References(RefList{1, 2}))
	assert.Nil(t, References(Int(3)))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(10)
	require.NoError(t, err)
	assert.Equal(t, Int(10), v)

	v, err = FromAny("hi")
	require.NoError(t, err)
	assert.Equal(t, String("hi"), v)

	v, err = FromAny(map[string]any{"ref": "5"})
	require.NoError(t, err)
	assert.Equal(t, Ref(5), v)

	v, err = FromAny(nil)
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}
