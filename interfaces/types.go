// Package interfaces defines the core identifiers, contracts, and error
// taxonomy shared by the keydir client packages. It provides the contract
// between components without implementation details.
package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// UserID is the directory-assigned identifier of a user account. The service
// issues it; clients treat it as opaque and never derive meaning from it.
type UserID string

// NewUserID validates and wraps a directory user identifier.
func NewUserID(id string) (UserID, error) {
	if id == "" {
		return UserID(""), errors.New("empty user id")
	}
	return UserID(id), nil
}

// String returns the identifier as a string.
func (id UserID) String() string {
	return string(id)
}

// KeyID identifies a key held by the directory. KIDs are service-issued,
// hex-encoded, and variable length, so the type is string-backed rather
// than a fixed-size array.
type KeyID string

// NewKeyIDFromHex creates a key ID from its hex form with validation.
func NewKeyIDFromHex(kid string) (KeyID, error) {
	clean := strings.TrimPrefix(kid, "0x")
	if clean == "" {
		return KeyID(""), errors.New("empty key id")
	}
	if len(clean)%2 != 0 {
		return KeyID(""), errors.New("invalid key id length: hex string must have an even number of characters")
	}
	if _, err := hex.DecodeString(clean); err != nil {
		return KeyID(""), fmt.Errorf("invalid hex format: %w", err)
	}
	return KeyID(clean), nil
}

// String returns the hex string representation of the key ID.
func (kid KeyID) String() string {
	return string(kid)
}

// Bytes returns the decoded key ID. The value must have been validated on
// construction; malformed IDs decode to nil.
func (kid KeyID) Bytes() []byte {
	raw, err := hex.DecodeString(string(kid))
	if err != nil {
		return nil
	}
	return raw
}

// Equal compares two key IDs for equality.
func (kid KeyID) Equal(other KeyID) bool {
	return kid == other
}

// Fingerprint is a PGP key fingerprint as the directory reports it: 40 hex
// characters for v4 keys, empty when the record carries none. Records pass
// fingerprints through verbatim; Validate is for callers that require one.
type Fingerprint string

// NewFingerprint creates a fingerprint from its hex form with validation.
func NewFingerprint(fpr string) (Fingerprint, error) {
	clean := strings.ToLower(strings.TrimPrefix(fpr, "0x"))
	if len(clean) != 40 {
		return Fingerprint(""), errors.New("invalid fingerprint length: hex string must be 40 characters")
	}
	if _, err := hex.DecodeString(clean); err != nil {
		return Fingerprint(""), fmt.Errorf("invalid hex format: %w", err)
	}
	return Fingerprint(clean), nil
}

// String returns the fingerprint as a string.
func (fpr Fingerprint) String() string {
	return string(fpr)
}

// Validate checks the fingerprint has a valid format.
func (fpr Fingerprint) Validate() error {
	_, err := NewFingerprint(string(fpr))
	return err
}

// SessionToken is the opaque session identifier issued by the directory on
// login. The core passes it to the transport on privileged calls; callers of
// the core never see it.
type SessionToken string

// String returns the token as a string.
func (t SessionToken) String() string {
	return string(t)
}

// KeyOp is a named key operation a caller may request keys for. The wire
// protocol encodes operation sets as a bitmask; callers only ever use the
// named constants, never the raw mask.
type KeyOp uint

const (
	// OpEncrypt requests keys usable for encryption.
	OpEncrypt KeyOp = 1 << iota
	// OpDecrypt requests keys usable for decryption.
	OpDecrypt
	// OpVerify requests keys usable for signature verification.
	OpVerify
	// OpSign requests keys usable for signing.
	OpSign
)

// allKeyOps lists the recognized operations in canonical order.
var allKeyOps = []KeyOp{OpEncrypt, OpDecrypt, OpVerify, OpSign}

// String returns the operation name.
func (op KeyOp) String() string {
	switch op {
	case OpEncrypt:
		return "encrypt"
	case OpDecrypt:
		return "decrypt"
	case OpVerify:
		return "verify"
	case OpSign:
		return "sign"
	default:
		return "unknown"
	}
}

// ParseKeyOp maps an operation name to its constant.
func ParseKeyOp(name string) (KeyOp, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "encrypt":
		return OpEncrypt, nil
	case "decrypt":
		return OpDecrypt, nil
	case "verify":
		return OpVerify, nil
	case "sign":
		return OpSign, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized key operation %q", ErrInput, name)
	}
}

// KeyOpMask is the wire encoding of an operation set. It only ever leaves
// EncodeKeyOps; nothing outside the transport layer should construct one.
type KeyOpMask uint

// EncodeKeyOps folds a set of named operations into the wire bitmask. An
// empty set or a member outside the recognized vocabulary is an input error.
func EncodeKeyOps(ops []KeyOp) (KeyOpMask, error) {
	if len(ops) == 0 {
		return 0, fmt.Errorf("%w: empty key operation set", ErrInput)
	}
	var mask KeyOpMask
	for _, op := range ops {
		switch op {
		case OpEncrypt, OpDecrypt, OpVerify, OpSign:
			mask |= KeyOpMask(op)
		default:
			return 0, fmt.Errorf("%w: unrecognized key operation %d", ErrInput, uint(op))
		}
	}
	return mask, nil
}

// Ops decodes the mask back into named operations in canonical order.
func (m KeyOpMask) Ops() []KeyOp {
	var ops []KeyOp
	for _, op := range allKeyOps {
		if m.Has(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// Has reports whether the mask includes the operation.
func (m KeyOpMask) Has(op KeyOp) bool {
	return m&KeyOpMask(op) != 0
}

// String renders the mask as its operation names, for logging.
func (m KeyOpMask) String() string {
	ops := m.Ops()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.String())
	}
	return strings.Join(names, ",")
}
