package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskflow/domain"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 100
)

// HashPassword hashes password with bcrypt at cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInvalid, "password cannot be hashed", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateNewPassword checks length and confirmation of a password being set.
func ValidateNewPassword(password, confirm string) error {
	if password == "" || confirm == "" {
		return domain.Validation("password and confirmation are required")
	}
	if password != confirm {
		return domain.Validation("passwords do not match")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateName trims and checks a display name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", domain.Validation("name cannot exceed %d characters", MaxNameLength)
	}
	return name, nil
}

// NormalizeEmail trims and lower-cases email after checking it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Validation("please provide a valid email")
	}
	return strings.ToLower(email), nil
}
