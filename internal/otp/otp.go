package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a generated code.
const CodeLength = 6

// saltLength is the number of random bytes used to salt a code digest.
const saltLength = 16

// GenerateCode produces a 6-digit zero-padded numeric code drawn from
// crypto/rand. Codes are independent across calls.
func GenerateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewSalt returns a fresh random salt, hex encoded.
func NewSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate otp salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashCode returns the hex SHA-256 digest of salt+code. Only this digest is
// ever stored server-side; the plaintext code never outlives the request that
// generated it.
func HashCode(code, salt string) string {
	h := sha256.Sum256([]byte(salt + code))
	return hex.EncodeToString(h[:])
}

// VerifyCode compares a submitted code against a stored digest in constant
// time.
func VerifyCode(code, salt, storedHash string) bool {
	computed := HashCode(code, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
