package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const maxMessageLength = 4000

func ValidateRegister(email, name, password string) ValidationErrors {
	errs := make(ValidationErrors)

	// Email
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	// Name
	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Name must be at least 2 characters")
	} else if len(name) > 100 {
		errs.Add("name", "Name is too long")
	}

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateMessage checks a send request. A message carries text, an
// attachment, or both; never neither.
func ValidateMessage(content, attachmentURL *string) ValidationErrors {
	errs := make(ValidationErrors)

	hasContent := content != nil && strings.TrimSpace(*content) != ""
	hasAttachment := attachmentURL != nil && *attachmentURL != ""

	if !hasContent && !hasAttachment {
		errs.Add("content", "Message needs content or an attachment")
		return errs
	}

	if hasContent && len(*content) > maxMessageLength {
		errs.Add("content", fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}

	if hasAttachment {
		u, err := url.Parse(*attachmentURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs.Add("attachment_url", "Attachment URL must be a valid http(s) URL")
		}
	}

	return errs
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
