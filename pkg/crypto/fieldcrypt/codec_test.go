package fieldcrypt

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossmark-io/crossmark-api/pkg/config"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	codec, err := New(config.EncryptionConfig{Key: key})
	require.NoError(t, err)
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	cases := []string{
		"SECRET CLASSIFICATION DATA",
		"a",
		"text with\ncontrol\tcharacters\x00embedded",
		"défense très secrète — 機密情報",
		"UK SECRET // REL TO USA, GBR",
	}

	for _, plaintext := range cases {
		blob, err := codec.Seal(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, blob)

		opened, err := codec.Open(blob)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestCodecFreshNoncePerSeal(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Seal("same plaintext")
	require.NoError(t, err)
	second, err := codec.Seal("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, blob := range []string{first, second} {
		opened, err := codec.Open(blob)
		require.NoError(t, err)
		assert.Equal(t, "same plaintext", opened)
	}
}

func TestCodecBitFlipFails(t *testing.T) {
	codec := newTestCodec(t)

	blob, err := codec.Seal("important data")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// A single flipped bit anywhere in nonce, ciphertext, or tag must be
	// rejected rather than yielding altered plaintext.
	for i := 0; i < len(raw); i++ {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := codec.Open(base64.StdEncoding.EncodeToString(tampered))
		require.Error(t, err, "flipped bit at byte %d was accepted", i)
		assert.True(t, appErrors.Is(err, appErrors.ErrDecryption))
	}
}

func TestCodecMalformedInput(t *testing.T) {
	codec := newTestCodec(t)

	for _, blob := range []string{
		"",
		"not base64 !!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
	} {
		_, err := codec.Open(blob)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrDecryption))
	}
}

func TestCodecWrongKey(t *testing.T) {
	sealing := newTestCodec(t)
	opening := newTestCodec(t)

	blob, err := sealing.Seal("cross-key data")
	require.NoError(t, err)

	_, err = opening.Open(blob)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDecryption))
}

func TestCodecPassphraseDerivation(t *testing.T) {
	cfg := config.EncryptionConfig{Passphrase: "correct horse battery staple", Salt: []byte("0123456789abcdef")}

	first, err := New(cfg)
	require.NoError(t, err)
	second, err := New(cfg)
	require.NoError(t, err)

	blob, err := first.Seal("derived key data")
	require.NoError(t, err)

	// Same passphrase and salt derive the same key.
	opened, err := second.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, "derived key data", opened)
}

func TestCodecAbsentKey(t *testing.T) {
	_, err := New(config.EncryptionConfig{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDecryption))

	var uninitialized *Codec
	_, err = uninitialized.Seal("x")
	require.Error(t, err)
	_, err = uninitialized.Open("x")
	require.Error(t, err)
}
