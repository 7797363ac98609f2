package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a password with its hash.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Admin is the single dashboard operator account.
type Admin struct {
	username string
	hash     string
}

// NewAdmin creates the admin account. An empty hash disables login and
// leaves the API open; a malformed hash is an error.
func NewAdmin(username, passwordHash string) (*Admin, error) {
	if username == "" {
		username = "admin"
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
	}
	return &Admin{username: username, hash: passwordHash}, nil
}

// Enabled reports whether a password hash is configured.
func (a *Admin) Enabled() bool {
	return a.hash != ""
}

// Username returns the admin login name.
func (a *Admin) Username() string {
	return a.username
}

// Authenticate checks the given credentials.
func (a *Admin) Authenticate(username, password string) error {
	if !a.Enabled() {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// bcrypt runs even for an unknown user so both failures take the same time.
	passErr := VerifyPassword(password, a.hash)
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
