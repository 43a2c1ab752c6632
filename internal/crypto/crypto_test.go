package crypto_test

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/jerichox/jerichox-security/internal/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passphrase = "unit-test-passphrase"

func newKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAESGCM_RoundTrip(t *testing.T) {
	key := newKey(t)
	plaintext := []byte("secret payload")

	sealed, err := crypto.SealGCM(key, plaintext)
	require.NoError(t, err)

	decrypted, err := crypto.OpenGCM(key, sealed)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, decrypted))
}

func TestAESGCM_Tamper(t *testing.T) {
	key := newKey(t)
	sealed, err := crypto.SealGCM(key, []byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = crypto.OpenGCM(key, sealed)
	assert.ErrorIs(t, err, crypto.ErrDecryption)

	_, err = crypto.OpenGCM(key, sealed[:4])
	assert.ErrorIs(t, err, crypto.ErrDecryption)
}

func TestAESGCM_KeySize(t *testing.T) {
	_, err := crypto.SealGCM([]byte("short"), []byte("x"))
	assert.ErrorIs(t, err, crypto.ErrInvalidKeySize)
}

func TestSecretCipher_LegacyRoundTrip(t *testing.T) {
	c, err := crypto.NewSecretCipher(passphrase, crypto.ModeLegacy)
	require.NoError(t, err)

	for _, plain := range []string{"", "sk", "exactly-16-bytes", "a much longer secret key that spans several blocks"} {
		ct, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.Zero(t, len(ct)%32, "hex of whole AES blocks")

		got, err := c.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestSecretCipher_LegacyIsDeterministic(t *testing.T) {
	c, err := crypto.NewSecretCipher(passphrase, "")
	require.NoError(t, err)
	assert.Equal(t, crypto.ModeLegacy, c.Mode())

	a, _ := c.Encrypt("same-secret")
	b, _ := c.Encrypt("same-secret")
	assert.Equal(t, a, b)

	// A second instance with the same passphrase reads the first one's output.
	other, err := crypto.NewSecretCipher(passphrase, crypto.ModeLegacy)
	require.NoError(t, err)
	got, err := other.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "same-secret", got)
}

func TestSecretCipher_GCMMode(t *testing.T) {
	gcm, err := crypto.NewSecretCipher(passphrase, crypto.ModeGCM)
	require.NoError(t, err)
	legacy, err := crypto.NewSecretCipher(passphrase, crypto.ModeLegacy)
	require.NoError(t, err)

	a, err := gcm.Encrypt("vendor-secret")
	require.NoError(t, err)
	b, err := gcm.Encrypt("vendor-secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a, "v2:"))
	assert.NotEqual(t, a, b, "random nonce per encryption")

	// Either mode reads both formats.
	got, err := legacy.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "vendor-secret", got)

	old, _ := legacy.Encrypt("vendor-secret")
	got, err = gcm.Decrypt(old)
	require.NoError(t, err)
	assert.Equal(t, "vendor-secret", got)
}

func TestSecretCipher_MalformedInput(t *testing.T) {
	c, err := crypto.NewSecretCipher(passphrase, crypto.ModeLegacy)
	require.NoError(t, err)

	cases := map[string]string{
		"not hex":           "zz-not-hex",
		"empty":             "",
		"partial block":     "00112233",
		"gcm not hex":       "v2:xyz",
		"gcm too short":     "v2:0011",
		"gcm wrong payload": "v2:" + strings.Repeat("ab", 40),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(in)
			assert.ErrorIs(t, err, crypto.ErrCrypto)
		})
	}
}

func TestSecretCipher_WrongPassphraseGCM(t *testing.T) {
	a, _ := crypto.NewSecretCipher("one", crypto.ModeGCM)
	b, _ := crypto.NewSecretCipher("two", crypto.ModeGCM)

	ct, err := a.Encrypt("secret")
	require.NoError(t, err)
	_, err = b.Decrypt(ct)
	assert.ErrorIs(t, err, crypto.ErrCrypto)
}

func TestNewSecretCipher_Validation(t *testing.T) {
	_, err := crypto.NewSecretCipher("", crypto.ModeLegacy)
	assert.Error(t, err)

	_, err = crypto.NewSecretCipher(passphrase, crypto.Mode("rot13"))
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	k1, err := crypto.DeriveKey(passphrase)
	require.NoError(t, err)
	k2, err := crypto.DeriveKey(passphrase)
	require.NoError(t, err)
	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
}
