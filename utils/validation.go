package utils

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{10,20}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Field error messages shown next to the checkout inputs
const (
	ErrMsgNameRequired = "Пожалуйста, укажите ваше имя"
	ErrMsgPhoneInvalid = "Пожалуйста, укажите корректный номер телефона"
	ErrMsgEmailInvalid = "Пожалуйста, укажите корректный email"
)

// ValidName reports whether name is non-empty after trimming
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// ValidPhone accepts digits, spaces, '+', '-' and parentheses, 10 to 20 chars
func ValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	return phone != "" && phonePattern.MatchString(phone)
}

// ValidEmail checks for a local part, an '@' and a dotted domain
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailPattern.MatchString(email)
}

// ValidateContact validates the three required contact fields and returns
// field name -> message for every invalid one.
func ValidateContact(name, phone, email string) map[string]string {
	errs := make(map[string]string)
	if !ValidName(name) {
		errs["customerName"] = ErrMsgNameRequired
	}
	if !ValidPhone(phone) {
		errs["phone"] = ErrMsgPhoneInvalid
	}
	if !ValidEmail(email) {
		errs["email"] = ErrMsgEmailInvalid
	}
	return errs
}
