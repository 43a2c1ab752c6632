package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrCrypto is wrapped by every Encrypt/Decrypt failure.
var ErrCrypto = errors.New("secret cipher failure")

type Mode string

const (
	ModeLegacy Mode = "legacy"
	ModeGCM    Mode = "gcm"
)

const (
	gcmPrefix = "v2:"

	kdfSalt = "salt"
	kdfN    = 16384
	kdfR    = 8
	kdfP    = 1
	keyLen  = 32
)

// SecretCipher encrypts vendor secrets for storage. Ciphertext is hex text.
// Legacy mode produces AES-256-CBC output readable by the previous backend;
// GCM mode produces "v2:"-prefixed sealed boxes. Decrypt accepts both.
type SecretCipher struct {
	key  []byte
	mode Mode
}

func NewSecretCipher(passphrase string, mode Mode) (*SecretCipher, error) {
	if passphrase == "" {
		return nil, errors.New("crypto: empty encryption passphrase")
	}
	switch mode {
	case "":
		mode = ModeLegacy
	case ModeLegacy, ModeGCM:
	default:
		return nil, fmt.Errorf("crypto: unknown cipher mode %q", mode)
	}

	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	return &SecretCipher{key: key, mode: mode}, nil
}

// DeriveKey stretches a passphrase into an AES-256 key with scrypt.
func DeriveKey(passphrase string) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), []byte(kdfSalt), kdfN, kdfR, kdfP, keyLen)
}

func (c *SecretCipher) Mode() Mode { return c.mode }

func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	if c.mode == ModeGCM {
		sealed, err := SealGCM(c.key, []byte(plaintext))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCrypto, err)
		}
		return gcmPrefix + hex.EncodeToString(sealed), nil
	}

	out, err := encryptCBC(c.key, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return hex.EncodeToString(out), nil
}

func (c *SecretCipher) Decrypt(ciphertext string) (string, error) {
	if rest, ok := strings.CutPrefix(ciphertext, gcmPrefix); ok {
		raw, err := hex.DecodeString(rest)
		if err != nil {
			return "", fmt.Errorf("%w: malformed hex", ErrCrypto)
		}
		plain, err := OpenGCM(c.key, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCrypto, err)
		}
		return string(plain), nil
	}

	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed hex", ErrCrypto)
	}
	plain, err := decryptCBC(c.key, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return string(plain), nil
}
