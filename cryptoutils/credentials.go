package cryptoutils

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/plukevdh/go-keydir/interfaces"
)

// Scrypt cost parameters for passphrase hardening. The directory service
// hardens with the same parameters on account creation; changing them here
// locks every existing account out.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1

	// PasswordHashLen is the length of a hardened passphrase in bytes.
	PasswordHashLen = 32
)

// HardenPassphrase stretches a login passphrase against the account salt
// using scrypt. The result is the password hash the directory expects
// authenticators to be keyed with. Deterministic: identical inputs always
// produce identical output.
func HardenPassphrase(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", interfaces.ErrPrimitive)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", interfaces.ErrPrimitive)
	}

	passwordHash, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, PasswordHashLen)
	if err != nil {
		return nil, fmt.Errorf("%w: could not harden passphrase: %v", interfaces.ErrPrimitive, err)
	}
	return passwordHash, nil
}

// ComputeAuthenticator keys the login-session nonce with a hardened
// passphrase: hex(HMAC-SHA512(passwordHash, loginSession)). The result
// proves knowledge of the passphrase without transmitting it.
func ComputeAuthenticator(passwordHash, loginSession []byte) (string, error) {
	if len(passwordHash) == 0 {
		return "", fmt.Errorf("%w: empty password hash", interfaces.ErrPrimitive)
	}
	if len(loginSession) == 0 {
		return "", fmt.Errorf("%w: empty login session nonce", interfaces.ErrPrimitive)
	}

	mac := hmac.New(sha512.New, passwordHash)
	mac.Write(loginSession)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// DeriveAuthenticator chains the two login primitives: harden the passphrase
// against the salt, then key the login-session nonce with the result. This
// is the one derivation the login handshake performs; it is pure and leaves
// no state behind.
func DeriveAuthenticator(passphrase string, salt, loginSession []byte) (string, error) {
	passwordHash, err := HardenPassphrase(passphrase, salt)
	if err != nil {
		return "", err
	}
	return ComputeAuthenticator(passwordHash, loginSession)
}

// VerifyAuthenticator recomputes an authenticator from a stored password
// hash and compares in constant time. Used by the service side of the
// handshake; clients never hold the stored hash.
func VerifyAuthenticator(passwordHash, loginSession []byte, authenticator string) (bool, error) {
	expected, err := ComputeAuthenticator(passwordHash, loginSession)
	if err != nil {
		return false, err
	}

	submitted, err := hex.DecodeString(authenticator)
	if err != nil {
		return false, fmt.Errorf("%w: malformed authenticator encoding: %v", interfaces.ErrPrimitive, err)
	}

	expectedRaw, err := hex.DecodeString(expected)
	if err != nil {
		return false, fmt.Errorf("%w: malformed authenticator encoding: %v", interfaces.ErrPrimitive, err)
	}

	return hmac.Equal(expectedRaw, submitted), nil
}
