package validator

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrNoDomain     = errors.New("email domain must be fully qualified")
)

// NormalizeEmail trims and lowercases a bare address. Display names
// ("Ada <ada@example.com>") are rejected.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}

	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrNoDomain
	}

	return email, nil
}

// LocalPart returns the text before the @, used as a default display name.
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
