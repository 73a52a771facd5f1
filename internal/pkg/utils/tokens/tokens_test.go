package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, err := Generate("node_", "pepper")
	require.NoError(t, err)
	b, err := Generate("node_", "pepper")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Raw, "node_"))
	assert.Equal(t, "node_"+a.Secret, a.Raw)
	assert.Len(t, a.Lookup, 64)
	assert.Equal(t, HMAC256Hex("pepper", a.Secret), a.Lookup)
	assert.NotEqual(t, a.Secret, b.Secret)
	assert.NotEqual(t, a.Lookup, b.Lookup)
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		prefix string
		want   string
		ok     bool
	}{
		{name: "with prefix", raw: "node_abc", prefix: "node_", want: "abc", ok: true},
		{name: "wrong prefix", raw: "sk_abc", prefix: "node_", ok: false},
		{name: "prefix only", raw: "node_", prefix: "node_", ok: false},
		{name: "empty prefix", raw: "abc", prefix: "", want: "abc", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseToken(tt.raw, tt.prefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "extra spaces", header: "  Bearer   abc  ", want: "abc"},
		{name: "basic scheme", header: "Basic abc", wantErr: true},
		{name: "no token", header: "Bearer ", wantErr: true},
		{name: "empty", header: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromBearer(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("abc", "ab"))
}
