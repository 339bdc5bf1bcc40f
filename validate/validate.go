// Package validate holds the input checks shared by registration and login
// dialogs. All checks work on raw user text and never normalize it.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// Email reports whether the value looks like an email address.
func Email(v string) bool {
	return emailRe.MatchString(v)
}

// Password reports whether the value is long enough to be a password.
func Password(v string) bool {
	return len(v) >= MinPasswordLen
}

// Name reports whether the value is a plausible full name.
func Name(v string) bool {
	return strings.TrimSpace(v) != "" && len(v) >= 2
}

// Phone reports whether the value is a plausible phone number.
// Spaces, dashes and parentheses are tolerated around the digits.
func Phone(v string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(v))
	return phoneRe.MatchString(cleaned)
}

// Address reports whether the value is a usable delivery address.
func Address(v string) bool {
	return len(strings.TrimSpace(v)) >= 5
}
