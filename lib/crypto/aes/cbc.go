package aes

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// BlockSize is the AES block size, also the IV size.
const BlockSize = aes.BlockSize

// encryptCBC pads data and encrypts it with AES-CBC under block and iv.
func encryptCBC(block cipher.Block, iv, data []byte) []byte {
	padded := pkcs7Pad(data, BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

// decryptCBC reverses encryptCBC.
func decryptCBC(block cipher.Block, iv, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrCiphertextLength
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return pkcs7Unpad(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+padding)
	copy(out, data)
	for range padding {
		out = append(out, byte(padding))
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(data[n-1])
	if padding == 0 || padding > BlockSize || padding > n {
		log.WithFields(logger.Fields{
			"at":      "pkcs7Unpad",
			"padding": padding,
			"length":  n,
		}).Debug("invalid padding byte")
		return nil, ErrInvalidPadding
	}
	for _, b := range data[n-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return data[:n-padding], nil
}
