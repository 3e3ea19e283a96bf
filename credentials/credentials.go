// Package credentials hashes and verifies back-office passwords.
package credentials

import (
	"errors"
	"fmt"

	"github.com/warp/canteen-ledger/ledger"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a username/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Hash returns the salted bcrypt hash of password.
func Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("hashing password: empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewSystemUser builds a system user with a hashed password.
func NewSystemUser(username, password string, role ledger.Role) (ledger.SystemUser, error) {
	hash, err := Hash(password)
	if err != nil {
		return ledger.SystemUser{}, err
	}
	return ledger.SystemUser{Username: username, PasswordHash: hash, Role: role}, nil
}

// SeedUsers returns the default admin and tech accounts.
func SeedUsers(adminPassword, techPassword string) ([]ledger.SystemUser, error) {
	admin, err := NewSystemUser("admin", adminPassword, ledger.RoleAdmin)
	if err != nil {
		return nil, err
	}
	tech, err := NewSystemUser("tech", techPassword, ledger.RoleTech)
	if err != nil {
		return nil, err
	}
	return []ledger.SystemUser{admin, tech}, nil
}

// Authenticate finds username in s and checks the password.
func Authenticate(s ledger.State, username, password string) (ledger.User, error) {
	u, ok := s.SystemUser(username)
	if !ok || !Verify(u.PasswordHash, password) {
		return ledger.User{}, ErrInvalidCredentials
	}
	return u.Identity(), nil
}
