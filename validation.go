package goAccount

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
)

const maxNameLength = 100

func normalizeEmail(email string) (string, error) {
	email = account.NormalizeEmail(email)
	if !account.ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (e *Engine) validatePassword(pw string) error {
	if len(pw) < password.MinLength {
		return fmt.Errorf("%w: must be at least %d bytes", ErrPasswordPolicy, password.MinLength)
	}
	if len(pw) > password.MaxLength {
		return fmt.Errorf("%w: must be at most %d bytes", ErrPasswordPolicy, password.MaxLength)
	}
	for _, rule := range e.passwordRules {
		if err := rule(pw); err != nil {
			return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
		}
	}
	return nil
}

func (e *Engine) validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: must be 1 to %d characters", ErrNameInvalid, maxNameLength)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: control characters", ErrNameInvalid)
	}
	for _, rule := range e.nameRules {
		if err := rule(name); err != nil {
			return "", fmt.Errorf("%w: %v", ErrNameInvalid, err)
		}
	}
	return name, nil
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return account.DefaultLocale
	}
	return locale
}

// normalizeCode uppercases and trims a user-typed reset code.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
