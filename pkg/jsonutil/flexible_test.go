package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"hello"`, "hello"},
		{"integer", `42`, "42"},
		{"float", `3.5`, "3.5"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleString(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, FlexibleStrings(json.RawMessage(`["a","b"]`)))
	assert.Equal(t, []string{"PORTAL"}, FlexibleStrings(json.RawMessage(`"PORTAL"`)))
	assert.Equal(t, []string{"7"}, FlexibleStrings(json.RawMessage(`7`)))
	assert.Nil(t, FlexibleStrings(json.RawMessage(`null`)))
}

func TestFlexibleInt(t *testing.T) {
	assert.Equal(t, 100, FlexibleInt(json.RawMessage(`100`)))
	assert.Equal(t, 50, FlexibleInt(json.RawMessage(`"50"`)))
	assert.Equal(t, 0, FlexibleInt(json.RawMessage(`"many"`)))
	assert.Equal(t, 0, FlexibleInt(nil))
}
