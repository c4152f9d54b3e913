package primitive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCompareSameKind(t *testing.T) {
	assert.Equal(t, -1, NewInteger(1).Compare(NewInteger(2)))
	assert.Equal(t, 0, NewInteger(2).Compare(NewInteger(2)))
	assert.Equal(t, 1, NewInteger(3).Compare(NewInteger(2)))
	assert.Equal(t, -1, NewDouble(1.5).Compare(NewDouble(2.5)))
	assert.Equal(t, -1, NewBoolean(false).Compare(NewBoolean(true)))
	assert.True(t, NewString("a").Compare(NewString("b")) < 0)
}

func TestValueCompareCrossKindFallsBackToString(t *testing.T) {
	// "10" < "9" lexicographically even though 10 > 9 numerically.
	assert.True(t, NewInteger(10).Compare(NewString("9")) < 0)
}

func TestValueJSONRoundTrip(t *testing.T) {
	cases := []Value{
		NewString("hello"),
		NewInteger(-42),
		NewDouble(3.14),
		NewBoolean(true),
		NewBytes([]byte{0x01, 0x02, 0xff}),
	}
	for _, v := range cases {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var out Value
		require.NoError(t, json.Unmarshal(data, &out))
		assert.True(t, v.Equal(out), "round trip mismatch for kind %s", v.Kind())
	}
}

func TestFromJSONTokenCoercion(t *testing.T) {
	assert.Equal(t, KindString, FromJSONToken("x").Kind())
	assert.Equal(t, KindInteger, FromJSONToken(float64(5)).Kind())
	assert.Equal(t, KindDouble, FromJSONToken(float64(5.5)).Kind())
	assert.Equal(t, KindBoolean, FromJSONToken(true).Kind())
}

func TestOperationResult(t *testing.T) {
	ok := Ok(42)
	assert.True(t, ok.IsSuccessful())
	assert.Equal(t, 42, ok.Value())
	assert.NoError(t, ok.Err())

	fail := Fail[int](StatusPreconditionFailed, "condition %s failed", "Value>=50")
	assert.False(t, fail.IsSuccessful())
	assert.Equal(t, StatusPreconditionFailed, fail.StatusCode())
	require.Error(t, fail.Err())
}
