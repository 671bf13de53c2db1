package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/plukevdh/go-keydir/interfaces"
)

// SealKeyBundle protects an encoded private-key bundle for local caching
// using AES-256-GCM. The bundle stays opaque; this only wraps it so it can
// sit in a keyring store without exposing the encoding.
//
// Output format: [12-byte nonce][ciphertext]. A fresh nonce is generated per
// call, so sealing the same bundle twice yields different artifacts.
func SealKeyBundle(key []byte, bundle []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: sealing key must be 32 bytes", interfaces.ErrPrimitive)
	}

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create cipher: %v", interfaces.ErrPrimitive, err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create GCM: %v", interfaces.ErrPrimitive, err)
	}

	// Generate random nonce for AES-GCM
	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: could not generate nonce: %v", interfaces.ErrPrimitive, err)
	}

	sealed := aesGCM.Seal(nonce, nonce, bundle, nil)
	return sealed, nil
}

// OpenKeyBundle reverses SealKeyBundle. Opening with any key other than the
// sealing key fails authentication and returns a primitive error.
func OpenKeyBundle(key []byte, sealed []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: sealing key must be 32 bytes", interfaces.ErrPrimitive)
	}

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create cipher: %v", interfaces.ErrPrimitive, err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create GCM: %v", interfaces.ErrPrimitive, err)
	}

	if len(sealed) < aesGCM.NonceSize() {
		return nil, fmt.Errorf("%w: sealed bundle too short", interfaces.ErrPrimitive)
	}

	nonce := sealed[:aesGCM.NonceSize()]
	ciphertext := sealed[aesGCM.NonceSize():]

	bundle, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open sealed bundle: %v", interfaces.ErrPrimitive, err)
	}

	return bundle, nil
}
