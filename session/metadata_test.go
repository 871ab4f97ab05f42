package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "plain object",
			raw:  `{"android":"fp-1234","dispatch_id":"d-9"}`,
			want: map[string]any{"android": "fp-1234", "dispatch_id": "d-9"},
		},
		{
			name: "double encoded object",
			raw:  `"{\"android\":\"fp-1234\"}"`,
			want: map[string]any{"android": "fp-1234"},
		},
		{
			name: "plain tag",
			raw:  "dispatch_via_api",
			want: map[string]any{RawValueKey: "dispatch_via_api"},
		},
		{
			name: "json string that is not json",
			raw:  `"just words"`,
			want: map[string]any{RawValueKey: "just words"},
		},
		{
			name: "json array",
			raw:  `[1,2,3]`,
			want: map[string]any{RawValueKey: `[1,2,3]`},
		},
		{
			name: "empty",
			raw:  "",
			want: map[string]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMetadata(tt.raw))
		})
	}
}

func TestParseMetadata_NeverNil(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "raw")
		md := ParseMetadata(raw)
		require.NotNil(t, md)

		// Parsing the same payload twice gives the same result.
		assert.Equal(t, md, ParseMetadata(raw))
	})
}

func TestParseMetadata_ObjectRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		obj := rapid.MapOf(
			rapid.StringMatching(`[a-z_]{1,12}`),
			rapid.String(),
		).Draw(t, "obj")

		raw, err := json.Marshal(obj)
		require.NoError(t, err)

		md := ParseMetadata(string(raw))
		require.Len(t, md, len(obj))
		for k, v := range obj {
			assert.Equal(t, v, md[k])
		}
	})
}

func TestMetadataString(t *testing.T) {
	md := ParseMetadata(`{"android":"fp-1","n":3}`)

	v, ok := MetadataString(md, "android")
	require.True(t, ok)
	assert.Equal(t, "fp-1", v)

	_, ok = MetadataString(md, "n")
	assert.False(t, ok)

	_, ok = MetadataString(md, "missing")
	assert.False(t, ok)
}
