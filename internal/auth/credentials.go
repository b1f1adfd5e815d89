package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials checks the single administrator account.
type AdminCredentials struct {
	username string
	hash     []byte
}

// NewAdminCredentials accepts either a plain password or a bcrypt hash.
func NewAdminCredentials(username, password string) (*AdminCredentials, error) {
	if strings.HasPrefix(password, "$2") {
		if _, err := bcrypt.Cost([]byte(password)); err == nil {
			return &AdminCredentials{username: username, hash: []byte(password)}, nil
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AdminCredentials{username: username, hash: hash}, nil
}

func (a *AdminCredentials) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	return userOK && passErr == nil
}
