package service

import (
	"errors"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// bcrypt rejects passwords longer than this many bytes.
const maxPasswordBytes = 72

type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&r.Email,
			validation.Required,
			validation.RuneLength(3, 255),
			is.Email,
		),
		validation.Field(&r.Password,
			validation.Required,
			validation.RuneLength(8, 32),
			validation.By(passwordBytes),
			validation.By(passwordComplexity),
		),
		validation.Field(&r.PasswordConfirmation,
			validation.Required,
			validation.By(stringEquals(r.Password)),
		),
	)
}

func passwordBytes(value any) error {
	s, _ := value.(string)
	if len(s) > maxPasswordBytes {
		return errors.New("must not exceed 72 bytes")
	}
	return nil
}

// passwordComplexity requires at least one letter, one digit and one symbol.
func passwordComplexity(value any) error {
	s, _ := value.(string)
	var letter, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !letter || !digit || !symbol {
		return errors.New("must contain at least one letter, one digit and one symbol")
	}
	return nil
}

func stringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
