package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertInteger(t *testing.T) {
	v, err := Convert(TypeInteger, "", float64(42))
	require.NoError(t, err)
	assert.Equal(t, KindInteger, v.Kind())
	assert.Equal(t, "42", v.String())

	v, err = Convert(TypeInteger, "", "17")
	require.NoError(t, err)
	assert.Equal(t, int64(17), v.Interface())

	v, err = Convert(TypeInteger, "", json.Number("9007199254740993"))
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", v.String())

	_, err = Convert(TypeInteger, "", 1.5)
	assert.Error(t, err)
	_, err = Convert(TypeInteger, "", true)
	assert.Error(t, err)
	_, err = Convert(TypeInteger, "", "010x")
	assert.Error(t, err)
}

func TestConvertString(t *testing.T) {
	v, err := Convert(TypeString, "", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", v.String())

	v, err = Convert(TypeString, "", float64(123))
	require.NoError(t, err)
	assert.Equal(t, "123", v.String())

	_, err = Convert(TypeString, "", map[string]any{"a": 1})
	assert.Error(t, err)
}

func TestConvertBooleanAndNumber(t *testing.T) {
	v, err := Convert(TypeBoolean, "", "TRUE")
	require.NoError(t, err)
	assert.Equal(t, "true", v.String())

	_, err = Convert(TypeBoolean, "", float64(1))
	assert.Error(t, err)

	v, err = Convert(TypeNumber, "", "2.50")
	require.NoError(t, err)
	assert.Equal(t, "2.5", v.String())

	_, err = Convert(TypeNumber, "", false)
	assert.Error(t, err)
}

func TestConvertArray(t *testing.T) {
	v, err := Convert(TypeArray, TypeInteger, []any{float64(1), "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, v.QueryValues())
	assert.Equal(t, "1,2", v.String())

	v, err = Convert(TypeArray, "", []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, v.Items(), 2)

	_, err = Convert(TypeArray, TypeString, "a,b")
	assert.Error(t, err)

	_, err = Convert(TypeArray, TypeInteger, []any{"x"})
	assert.ErrorContains(t, err, "item 0")
}

func TestConvertObject(t *testing.T) {
	v, err := Convert(TypeObject, "", map[string]any{"a": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v.String())

	_, err = Convert(TypeObject, "", float64(3))
	assert.Error(t, err)
}

func TestConvertNullAndQueryValues(t *testing.T) {
	v, err := Convert(TypeString, "", nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Nil(t, v.QueryValues())
	assert.Nil(t, v.Interface())
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod(" patch ")
	assert.True(t, ok)
	assert.Equal(t, MethodPatch, m)
	assert.True(t, m.SupportsBody())
	assert.False(t, MethodGet.SupportsBody())
	assert.True(t, MethodHead.ReadOnly())

	_, ok = ParseMethod("TRACE")
	assert.False(t, ok)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "json", DetectFormat([]byte("  \n{\"openapi\":\"3.0.0\"}")))
	assert.Equal(t, "yaml", DetectFormat([]byte("openapi: 3.0.0")))
	assert.Equal(t, "yaml", DetectFormat(nil))
}
