// Package cryptox wraps the password-hashing primitives used by the
// credential store: bcrypt digests for stored passwords and random salts
// for remember-me cookies.
package cryptox

import (
	"crypto/subtle"

	"microblog/internal/common"

	"golang.org/x/crypto/bcrypt"
)

// rememberSaltBytes is the entropy of the remember-me salt; the stored hex
// string is twice as long.
const rememberSaltBytes = 16

// HashPassword derives a bcrypt digest from the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether candidate matches the stored bcrypt digest.
func CheckPassword(hash string, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// NewRememberSalt generates the random hex salt stored alongside a user and
// echoed back by remember-me cookies.
func NewRememberSalt() (string, error) {
	return common.MakeRandHexString(rememberSaltBytes)
}

// CheckRememberSalt compares a cookie-supplied salt with the stored one in
// constant time.
func CheckRememberSalt(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
