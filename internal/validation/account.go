package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"tagboard/internal/models"
)

// Account field names reported in FieldErrors.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 32
	minPasswordLength = 12
	maxPasswordLength = 128
	maxEmailLength    = 254
)

// Names that forum posts and dmails use for system authored content.
var reservedUsernames = map[string]bool{
	"anonymous": true,
	"system":    true,
	"admin":     true,
	"moderator": true,
}

// ValidateUsername checks a display name. Names show up in forum posts and
// dmails, so they may not contain whitespace, be numeric only, or collide
// with a reserved name.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}

	digits := 0
	for _, r := range username {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r), r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("username cannot contain %q", r)
		}
	}
	if digits == n {
		return errors.New("username cannot be a number")
	}
	if strings.ContainsAny(username[:1]+username[len(username)-1:], "_-.") {
		return errors.New("username cannot start or end with punctuation")
	}
	if strings.Contains(username, "__") {
		return errors.New("username cannot contain consecutive underscores")
	}
	if reservedUsernames[strings.ToLower(username)] {
		return fmt.Errorf("username %q is reserved", username)
	}
	return nil
}

// ValidateEmail accepts a bare address with a dotted domain.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email cannot exceed %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return errors.New("invalid email format")
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") || strings.ContainsAny(email, " \t") {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidatePassword enforces length and asks for three of the four character
// classes: upper case, lower case, digits, and symbols.
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if length > maxPasswordLength {
		return fmt.Errorf("password cannot exceed %d characters", maxPasswordLength)
	}

	var classes [4]bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes[0] = true
		case unicode.IsLower(r):
			classes[1] = true
		case unicode.IsDigit(r):
			classes[2] = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			classes[3] = true
		}
	}
	found := 0
	for _, ok := range classes {
		if ok {
			found++
		}
	}
	if found < 3 {
		return errors.New("password must mix at least three of: upper case, lower case, digits, symbols")
	}
	return nil
}

// ValidateAccount runs every account check and collects the failures.
func ValidateAccount(username, email, password string) models.FieldErrors {
	var errs models.FieldErrors
	if err := ValidateUsername(username); err != nil {
		errs.Add(FieldUsername, err.Error())
	}
	if err := ValidateEmail(email); err != nil {
		errs.Add(FieldEmail, err.Error())
	}
	if err := ValidatePassword(password); err != nil {
		errs.Add(FieldPassword, err.Error())
	}
	return errs
}
