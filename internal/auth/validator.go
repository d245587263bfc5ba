// Package auth validates login credentials and holds the session tokens used
// against the SupplyLine backend.
package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is the outcome of a validation: either Success or an error carrying
// a human-readable reason.
type Result struct {
	message string
}

// Success is the Result of valid input.
var Success = Result{}

// Invalid returns an error Result with the given reason.
func Invalid(message string) Result {
	return Result{message: message}
}

// OK reports whether the input was valid.
func (r Result) OK() bool { return r.message == "" }

// Message is the reason the input was rejected, or empty on success.
func (r Result) Message() string { return r.message }

const (
	minEmployeeNumberLength = 3
	minPasswordLength       = 8
	maxPasswordLength       = 128
)

var sqlInjectionPatterns = []string{
	"drop table", "delete from", "insert into", "update set",
	"union select", "or 1=1", "' or '", "-- ", "/*", "*/",
}

// ValidateEmployeeNumber rejects blank, too short and injection-like values.
func ValidateEmployeeNumber(employeeNumber string) Result {
	switch {
	case strings.TrimSpace(employeeNumber) == "":
		return Invalid("Employee number is required")
	case utf8.RuneCountInString(employeeNumber) < minEmployeeNumberLength:
		return Invalid("Employee number must be at least 3 characters")
	case containsSQLInjectionPattern(employeeNumber):
		return Invalid("Invalid characters in employee number")
	default:
		return Success
	}
}

// ValidatePassword enforces length and character class rules.
func ValidatePassword(password string) Result {
	switch {
	case strings.TrimSpace(password) == "":
		return Invalid("Password is required")
	case utf8.RuneCountInString(password) < minPasswordLength:
		return Invalid("Password must be at least 8 characters")
	case !strings.ContainsFunc(password, unicode.IsUpper):
		return Invalid("Password must contain uppercase letters")
	case !strings.ContainsFunc(password, unicode.IsLower):
		return Invalid("Password must contain lowercase letters")
	case !strings.ContainsFunc(password, unicode.IsDigit):
		return Invalid("Password must contain numbers")
	case utf8.RuneCountInString(password) > maxPasswordLength:
		return Invalid("Password is too long")
	default:
		return Success
	}
}

// ValidateCredentials returns the employee number failure if any, else the
// password failure if any, else Success.
func ValidateCredentials(employeeNumber, password string) Result {
	if r := ValidateEmployeeNumber(employeeNumber); !r.OK() {
		return r
	}
	return ValidatePassword(password)
}

func containsSQLInjectionPattern(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range sqlInjectionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
