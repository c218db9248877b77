package contact

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

// FirstNameMinLength is the minimum number of characters (runes) in firstName.
const FirstNameMinLength = 5

// ErrFirstNameTooShort is returned when firstName is empty or shorter than FirstNameMinLength.
var ErrFirstNameTooShort = errors.New("firstName must have at least 5 characters.")

// ErrLastNameRequired is returned when lastName is empty.
var ErrLastNameRequired = errors.New("lastName is a required field.")

// ErrEmailInvalid is returned when email is empty or not shaped like an address.
var ErrEmailInvalid = errors.New("email must be a valid email address.")

// ErrUnknownField is returned for field names outside firstName, lastName, email, message.
var ErrUnknownField = errors.New("unknown field")

// emailPattern accepts local@domain.tld: one @, no whitespace, dotted domain with non-empty labels.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)

// ValidateField runs the rule for field against value. Values are checked as typed,
// without trimming. message has no rule and always passes.
func ValidateField(field Field, value string) error {
	switch field {
	case FieldFirstName:
		return validateFirstName(value)
	case FieldLastName:
		return validateLastName(value)
	case FieldEmail:
		return validateEmail(value)
	case FieldMessage:
		return nil
	}
	return ErrUnknownField
}

func validateFirstName(s string) error {
	if utf8.RuneCountInString(s) < FirstNameMinLength {
		return ErrFirstNameTooShort
	}
	return nil
}

func validateLastName(s string) error {
	if s == "" {
		return ErrLastNameRequired
	}
	return nil
}

func validateEmail(s string) error {
	if s == "" || !emailPattern.MatchString(s) {
		return ErrEmailInvalid
	}
	return nil
}
