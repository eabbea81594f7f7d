package aes

import "github.com/samber/oops"

var (
	ErrInvalidKeySize     = oops.New("AES key must be 16, 24 or 32 bytes")
	ErrEmptyPassphrase    = oops.New("empty passphrase")
	ErrCiphertextLength   = oops.New("ciphertext is not a whole number of blocks")
	ErrCiphertextTooShort = oops.New("ciphertext shorter than IV plus one block")
	ErrInvalidPadding     = oops.New("invalid PKCS#7 padding")
)
