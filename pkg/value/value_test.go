package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"true boolean", Boolean(true), true},
		{"false boolean", Boolean(false), false},
		{"nonzero integer", Integer(1), true},
		{"zero integer", Integer(0), false},
		{"nonzero float", Float(0.5), true},
		{"zero float", Float(0), false},
		{"nonempty symbol", Symbol("x"), true},
		{"empty symbol", Symbol(""), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truthy(tc.v))
		})
	}
}

func TestEqualCrossesIntFloat(t *testing.T) {
	assert.True(t, Integer(2).Equal(Float(2.0)))
	assert.True(t, Float(2.0).Equal(Integer(2)))
	assert.False(t, Integer(2).Equal(Float(2.5)))
	assert.False(t, Integer(1).Equal(Symbol("1")))
}

func TestArithPromotesToFloatOnlyWhenNeeded(t *testing.T) {
	addOp := NumericOp{
		Int:   func(a, b int64) (int64, error) { return a + b, nil },
		Float: func(a, b float64) float64 { return a + b },
	}
	sum, err := Arith(Integer(2), Integer(3), addOp)
	require.NoError(t, err)
	assert.Equal(t, Integer(5), sum)

	sum, err = Arith(Integer(2), Float(3.5), addOp)
	require.NoError(t, err)
	assert.Equal(t, Float(5.5), sum)
}

func TestArithRejectsNonNumeric(t *testing.T) {
	op := NumericOp{Float: func(a, b float64) float64 { return a + b }}
	_, err := Arith(Symbol("x"), Integer(1), op)
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	lt, err := Compare(Integer(1), Integer(2))
	require.NoError(t, err)
	assert.Equal(t, -1, lt)

	eq, err := Compare(Float(2.0), Integer(2))
	require.NoError(t, err)
	assert.Equal(t, 0, eq)

	gt, err := Compare(Integer(3), Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1, gt)
}

func TestFloatStringFormatsWholeValuesWithTrailingZero(t *testing.T) {
	assert.Equal(t, "3.0", Float(3).String())
	assert.Equal(t, "3.5", Float(3.5).String())
}
