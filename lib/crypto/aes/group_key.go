package aes

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of keys derived from passphrases (AES-256).
	KeySize = 32
	// PassphraseIterations is the PBKDF2 round count for passphrase keys.
	PassphraseIterations = 4096
)

// passphraseSalt is shared by every group member so that the same
// passphrase yields the same key everywhere.
var passphraseSalt = []byte("go-nms group key v1")

// GroupKey encrypts and decrypts payloads with a shared AES key.
type GroupKey struct {
	key   []byte
	block cipher.Block
	hash  string
}

// NewGroupKey wraps raw key bytes. raw is copied.
func NewGroupKey(raw []byte) (*GroupKey, error) {
	switch len(raw) {
	case 16, 24, 32:
	default:
		return nil, oops.Wrapf(ErrInvalidKeySize, "got %d bytes", len(raw))
	}
	key := append([]byte(nil), raw...)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, oops.Wrapf(err, "creating AES cipher")
	}
	sum := sha256.Sum256(key)
	return &GroupKey{
		key:   key,
		block: block,
		hash:  hex.EncodeToString(sum[:]),
	}, nil
}

// NewGroupKeyFromPassphrase derives an AES-256 key with PBKDF2-SHA256.
func NewGroupKeyFromPassphrase(passphrase string) (*GroupKey, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	key := pbkdf2.Key([]byte(passphrase), passphraseSalt, PassphraseIterations, KeySize, sha256.New)
	return NewGroupKey(key)
}

// LoadGroupKeyFile reads a key file holding either the raw key bytes or
// their hex encoding.
func LoadGroupKeyFile(path string) (*GroupKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "reading key file %s", path)
	}
	if trimmed := bytes.TrimSpace(content); len(trimmed)%2 == 0 {
		if decoded, err := hex.DecodeString(string(trimmed)); err == nil {
			content = decoded
		}
	}
	k, err := NewGroupKey(content)
	if err != nil {
		return nil, oops.Wrapf(err, "key file %s", path)
	}
	log.WithFields(logger.Fields{
		"at":   "LoadGroupKeyFile",
		"path": path,
		"hash": k.hash[:16],
	}).Debug("group key loaded")
	return k, nil
}

// GenerateGroupKey creates a random AES-256 key.
func GenerateGroupKey() (*GroupKey, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, oops.Wrapf(err, "generating key")
	}
	return NewGroupKey(key)
}

// Bytes returns a copy of the raw key.
func (k *GroupKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// Hash returns the hex SHA-256 of the key. It identifies a key without
// revealing it.
func (k *GroupKey) Hash() string {
	return k.hash
}

// Encrypt returns IV || AES-CBC(PKCS#7(plain)) with a random IV.
func (k *GroupKey) Encrypt(plain []byte) ([]byte, error) {
	iv := make([]byte, BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, oops.Wrapf(err, "generating IV")
	}
	return append(iv, encryptCBC(k.block, iv, plain)...), nil
}

// Decrypt reverses Encrypt.
func (k *GroupKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2*BlockSize {
		return nil, ErrCiphertextTooShort
	}
	return decryptCBC(k.block, ciphertext[:BlockSize], ciphertext[BlockSize:])
}

// CiphertextLen returns the length Encrypt produces for n plaintext bytes.
func CiphertextLen(n int) int {
	return BlockSize + (n/BlockSize+1)*BlockSize
}
