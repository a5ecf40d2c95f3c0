package inject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"absent", Value{}, ""},
		{"string", StringValue("Jane Doe"), "Jane Doe"},
		{"true", BoolValue(true), "True"},
		{"false", BoolValue(false), "False"},
		{"int", IntValue(42), "42"},
		{"negative int", IntValue(-7), "-7"},
		{"float", FloatValue(3.25), "3.25"},
		{"integral float", FloatValue(3), "3.0"},
		{"negative integral float", FloatValue(-2), "-2.0"},
		{"zero float", FloatValue(0), "0.0"},
		{"large float", FloatValue(1e16), "1e+16"},
		{"small float", FloatValue(0.00001), "1e-05"},
		{"fraction", FloatValue(0.0001), "0.0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestValue_Truthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"absent", Value{}, false},
		{"true", BoolValue(true), true},
		{"false", BoolValue(false), false},
		{"one", IntValue(1), true},
		{"zero", IntValue(0), false},
		{"float zero", FloatValue(0), false},
		{"float", FloatValue(0.5), true},
		{"empty string", StringValue(""), false},
		{"yes", StringValue("yes"), true},
		{"x", StringValue("X"), true},
		{"string true", StringValue("true"), true},
		{"string false", StringValue("false"), false},
		{"string zero", StringValue("0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Truthy())
		})
	}
}

func TestValue_IsBlank(t *testing.T) {
	assert.True(t, Value{}.IsBlank())
	assert.True(t, StringValue("").IsBlank())
	assert.False(t, StringValue(" ").IsBlank())
	assert.False(t, BoolValue(false).IsBlank())
	assert.False(t, IntValue(0).IsBlank())
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantKind ValueKind
		want     string
		wantErr  bool
	}{
		{"nil", nil, KindAbsent, "", false},
		{"string", "abc", KindString, "abc", false},
		{"bool", true, KindBool, "True", false},
		{"int", 12, KindInt, "12", false},
		{"uint8", uint8(3), KindInt, "3", false},
		{"float64", 1.5, KindFloat, "1.5", false},
		{"json integer", json.Number("100"), KindInt, "100", false},
		{"json float", json.Number("99.95"), KindFloat, "99.95", false},
		{"json integral float", json.Number("3.0"), KindFloat, "3.0", false},
		{"map", map[string]any{}, KindAbsent, "", true},
		{"slice", []any{1}, KindAbsent, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValueOf(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, v.Kind())
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestDataMap_JSON(t *testing.T) {
	raw := `{"name": "Jane", "agree": true, "age": 41, "balance": 10.5, "note": "", "gone": null}`

	var data DataMap
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	assert.Equal(t, KindString, data["name"].Kind())
	assert.Equal(t, KindBool, data["agree"].Kind())
	assert.Equal(t, KindInt, data["age"].Kind())
	assert.Equal(t, KindFloat, data["balance"].Kind())

	_, ok := data.Lookup("note")
	assert.False(t, ok, "empty string is blank")
	_, ok = data.Lookup("gone")
	assert.False(t, ok, "null is blank")
	_, ok = data.Lookup("missing")
	assert.False(t, ok)

	v, ok := data.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, "41", v.String())

	out, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Jane", "agree": true, "age": 41, "balance": 10.5, "note": "", "gone": null}`, string(out))
}

func TestDataMap_RejectsNested(t *testing.T) {
	var data DataMap
	err := json.Unmarshal([]byte(`{"address": {"city": "Springfield"}}`), &data)
	assert.Error(t, err)
}
