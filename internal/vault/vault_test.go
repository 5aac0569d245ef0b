package vault

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	_, err := New([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New(make([]byte, 64))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSealOpenRoundTrip(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	for _, plaintext := range []string{"", "hunter2", "pässwörd with ünicode", "very long secret very long secret very long secret"} {
		sealed, err := v.Seal(plaintext)
		require.NoError(t, err)

		opened, err := v.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	a, err := v.Seal("same plaintext")
	require.NoError(t, err)
	b, err := v.Seal("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	sealed, err := v.Seal("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)

	// Flip one bit in every byte position; authentication must fail
	// each time.
	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := v.Open(base64.StdEncoding.EncodeToString(tampered))
		assert.ErrorIs(t, err, ErrAuthentication, "byte %d", i)
	}
}

func TestOpenRejectsMalformedInput(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	_, err = v.Open("not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = v.Open(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestOpenRejectsForeignKey(t *testing.T) {
	v1, err := New(testKey())
	require.NoError(t, err)
	v2, err := New([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	sealed, err := v1.Seal("secret")
	require.NoError(t, err)

	_, err = v2.Open(sealed)
	assert.ErrorIs(t, err, ErrAuthentication)
}
