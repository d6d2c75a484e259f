// Package auth hashes and verifies user passwords.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt hashes without truncating.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password is longer than 72 bytes")

type Hasher struct {
	Cost int
}

var DefaultHasher = Hasher{Cost: bcrypt.DefaultCost}

// Hash returns a salted bcrypt hash of plain.
func (h Hasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. The comparison is constant time.
// Inputs longer than MaxPasswordBytes never match: bcrypt would compare only
// their prefix, and Hash never accepts them.
func (h Hasher) Verify(plain, hash string) bool {
	if len(plain) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
