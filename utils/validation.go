package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Add appends a field error
func (e *FieldValidationErrors) Add(field, message string) {
	*e = append(*e, FieldValidationError{Field: field, Message: message})
}

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	jsEventRegex = regexp.MustCompile(`on\w+="[^"]*"`)
	dataURIRegex = regexp.MustCompile(`data:[^;]+;base64,[^"']+`)

	xssPatterns = []struct {
		re  *regexp.Regexp
		msg string
	}{
		{regexp.MustCompile(`(?i)<script.*>`), "Script tag found"},
		{regexp.MustCompile(`(?i)javascript:`), "JavaScript protocol found"},
		{regexp.MustCompile(`(?i)vbscript:`), "VBScript protocol found"},
		{regexp.MustCompile(`(?i)on(load|error|click)=`), "Event handler found"},
		{regexp.MustCompile(`(?i)document\.(cookie|write)`), "Document access found"},
	}
)

// SanitizeString removes potentially dangerous characters and HTML tags
func SanitizeString(input string) string {
	sanitized := htmlTagRegex.ReplaceAllString(input, "")
	sanitized = jsEventRegex.ReplaceAllString(sanitized, "")
	sanitized = dataURIRegex.ReplaceAllString(sanitized, "")
	return strings.TrimSpace(html.EscapeString(sanitized))
}

// ValidateXSS checks for common XSS attack patterns
func ValidateXSS(input string) (bool, string) {
	for _, p := range xssPatterns {
		if p.re.MatchString(input) {
			return false, "XSS detected: " + p.msg
		}
	}
	return true, ""
}

// ValidateEmail checks if the email is valid and safe
func ValidateEmail(email string) (bool, string) {
	if valid, msg := ValidateXSS(email); !valid {
		return false, "Email: " + msg
	}
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return false, ErrInvalidEmail
	}
	return true, ""
}

// FormatPhoneNumber normalizes a Korean phone number to its digits, e.g. 01059400104
func FormatPhoneNumber(phone string) (string, error) {
	phone = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	// +82 10-... becomes 010-...
	if strings.HasPrefix(phone, "82") {
		phone = "0" + phone[2:]
	}

	if len(phone) < 9 || len(phone) > 11 {
		return "", fmt.Errorf("phone number must have 9 to 11 digits")
	}
	if phone[0] != '0' {
		return "", fmt.Errorf("phone number must start with 0 or +82")
	}
	return phone, nil
}

// ValidatePhone checks if the phone number is valid; the formatted number is returned on success
func ValidatePhone(phone string) (bool, string) {
	if phone == "" {
		return true, "" // Phone is optional
	}
	formatted, err := FormatPhoneNumber(phone)
	if err != nil {
		return false, err.Error()
	}
	return true, formatted
}

// ValidateName checks if the name is valid and safe
func ValidateName(name string) (bool, string) {
	if valid, msg := ValidateXSS(name); !valid {
		return false, "Name: " + msg
	}
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < 2 {
		return false, "Name must be at least 2 characters long"
	}
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			return false, "Name cannot contain numbers"
		}
	}
	return true, ""
}

// ValidateDateRange checks that end is not before start
func ValidateDateRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf(ErrInvalidDateRange)
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
