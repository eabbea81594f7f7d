package aes

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKey_EncryptDecrypt(t *testing.T) {
	k, err := GenerateGroupKey()
	require.NoError(t, err)

	testCases := []struct {
		name      string
		plaintext []byte
	}{
		{"Empty", []byte{}},
		{"Short", []byte("Hello, World!")},
		{"Long", bytes.Repeat([]byte("A"), 1000)},
		{"Exact block size", bytes.Repeat([]byte("A"), BlockSize)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ct, err := k.Encrypt(tc.plaintext)
			require.NoError(t, err)
			assert.Len(t, ct, CiphertextLen(len(tc.plaintext)))

			pt, err := k.Decrypt(ct)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tc.plaintext, pt))
		})
	}
}

func TestGroupKey_RandomIV(t *testing.T) {
	k, err := GenerateGroupKey()
	require.NoError(t, err)
	a, err := k.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := k.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewGroupKey_InvalidSizes(t *testing.T) {
	for _, n := range []int{0, 15, 17, 31, 33} {
		_, err := NewGroupKey(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidKeySize, "size %d", n)
	}
	_, err := NewGroupKey(nil)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestGroupKey_WrongKeyOrTampered(t *testing.T) {
	k1, err := NewGroupKey(bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)
	k2, err := NewGroupKey(bytes.Repeat([]byte{2}, 16))
	require.NoError(t, err)

	ct, err := k1.Encrypt(bytes.Repeat([]byte("x"), 40))
	require.NoError(t, err)

	// a wrong key almost always breaks the padding; when it does not, the
	// plaintext differs
	if pt, err := k2.Decrypt(ct); err == nil {
		assert.NotEqual(t, bytes.Repeat([]byte("x"), 40), pt)
	}

	_, err = k1.Decrypt(ct[:BlockSize])
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
	_, err = k1.Decrypt(ct[:len(ct)-1])
	assert.ErrorIs(t, err, ErrCiphertextLength)
}

func TestPassphraseKeyIsDeterministic(t *testing.T) {
	a, err := NewGroupKeyFromPassphrase("correct horse")
	require.NoError(t, err)
	b, err := NewGroupKeyFromPassphrase("correct horse")
	require.NoError(t, err)
	c, err := NewGroupKeyFromPassphrase("battery staple")
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Bytes(), KeySize)

	ct, err := a.Encrypt([]byte("payload"))
	require.NoError(t, err)
	pt, err := b.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), pt)

	_, err = NewGroupKeyFromPassphrase("")
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestLoadGroupKeyFile(t *testing.T) {
	dir := t.TempDir()
	raw := bytes.Repeat([]byte{0xAB}, 32)

	rawPath := filepath.Join(dir, "raw.key")
	require.NoError(t, os.WriteFile(rawPath, raw, 0o600))
	hexPath := filepath.Join(dir, "hex.key")
	require.NoError(t, os.WriteFile(hexPath, []byte(hex.EncodeToString(raw)+"\n"), 0o600))

	k1, err := LoadGroupKeyFile(rawPath)
	require.NoError(t, err)
	k2, err := LoadGroupKeyFile(hexPath)
	require.NoError(t, err)
	assert.Equal(t, k1.Hash(), k2.Hash())
	assert.Equal(t, raw, k1.Bytes())

	_, err = LoadGroupKeyFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.key")
	require.NoError(t, os.WriteFile(bad, []byte("short"), 0o600))
	_, err = LoadGroupKeyFile(bad)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestPKCS7(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), BlockSize)
	assert.Len(t, padded, BlockSize)
	out, err := pkcs7Unpad(padded)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	_, err = pkcs7Unpad(nil)
	assert.ErrorIs(t, err, ErrInvalidPadding)
	bad := append(bytes.Repeat([]byte{1}, 15), 3)
	_, err = pkcs7Unpad(bad)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}
