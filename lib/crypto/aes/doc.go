// Package aes provides the AES-CBC group key the NMS service uses to
// encrypt message payloads.
//
// Every group member holds the same key, taken either from raw key bytes,
// a key file or a passphrase run through PBKDF2-SHA256. Each Encrypt call
// draws a fresh random IV that is prepended to the ciphertext, so no IV has
// to be agreed on out of band.
package aes
