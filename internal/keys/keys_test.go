package keys

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePublicFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pub, err := GeneratePublic()
		require.NoError(t, err)
		assert.True(t, ValidPublic(pub), "generated key %q should validate", pub)
		assert.Len(t, pub, 40)
		assert.False(t, seen[pub], "generated keys should not repeat")
		seen[pub] = true
	}
}

func TestGenerateSecretFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sec, err := GenerateSecret()
		require.NoError(t, err)
		assert.True(t, ValidSecret(sec), "generated secret %q should validate", sec)
		assert.False(t, seen[sec], "generated secrets should not repeat")
		seen[sec] = true
	}
}

func TestValidPublic(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"well formed", "aB3d-eF6h1J-kL9n0pQr2sTu-Vw4xY-Z5a6b7c8d", true},
		{"too short group", "aB3-eF6h1J-kL9n0pQr2sTu-Vw4xY-Z5a6b7c8d", false},
		{"missing dashes", "aB3deF6h1JkL9n0pQr2sTuVw4xYZ5a6b7c8dExtr", false},
		{"illegal characters", "aB3d-eF6h1J-kL9n0pQr2sTu-Vw4xY-Z5a6b7c!", false},
		{"empty", "", false},
		{"secret shaped", "abcdefghijklmnopqrstuvwxyz123456", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidPublic(tc.input))
		})
	}
}

func TestValidSecret(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"well formed", "abcdefghijklmnopqrstuvwxyz123456", true},
		{"too short", "abcdef", false},
		{"too long", "abcdefghijklmnopqrstuvwxyz1234567", false},
		{"illegal characters", "abcdefghijklmnopqrstuvwxyz12345!", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidSecret(tc.input))
		})
	}
}

func TestValidDevice(t *testing.T) {
	assert.True(t, ValidDevice(uuid.NewString()))
	assert.True(t, ValidDevice("A35A9AF1-9C84-4D4B-9D3A-2C1B2D0E9C11"))
	assert.False(t, ValidDevice("not-a-uuid"))
	assert.False(t, ValidDevice(""))
	// Alternate encodings accepted by uuid parsers are rejected here: the
	// API contract is the canonical 36-character form only.
	assert.False(t, ValidDevice("urn:uuid:a35a9af1-9c84-4d4b-9d3a-2c1b2d0e9c11"))
	assert.False(t, ValidDevice("{a35a9af1-9c84-4d4b-9d3a-2c1b2d0e9c11}"))
}
