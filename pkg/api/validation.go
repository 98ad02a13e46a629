package api

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MinPasswordLength int
	MaxPasswordLength int
	MaxNameLength     int
	MaxTitleLength    int
	MaxBodyLength     int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
// MaxPasswordLength is 72 bytes because bcrypt silently ignores input
// beyond that; longer passwords are rejected rather than truncated.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinPasswordLength: 8,
		MaxPasswordLength: 72,
		MaxNameLength:     200,
		MaxTitleLength:    500,
		MaxBodyLength:     10 * 1024,
	}
}

// ValidateRegisterRequest checks a RegisterRequest. It returns an *APIError
// describing the first validation failure, or nil if the request is valid.
func ValidateRegisterRequest(req *RegisterRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Name) == "" {
		return NewInvalidRequestError("name", "name is required")
	}
	if utf8.RuneCountInString(req.Name) > cfg.MaxNameLength {
		return NewInvalidRequestError("name",
			fmt.Sprintf("name exceeds maximum of %d characters", cfg.MaxNameLength))
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validatePassword(req.Password, cfg); err != nil {
		return err
	}
	if req.Role != "" && req.Role != "user" && req.Role != "admin" {
		return NewInvalidRequestError("role", "role must be 'user' or 'admin'")
	}
	return nil
}

// ValidateLoginRequest checks a LoginRequest for structural validity.
// It deliberately does not apply the password length policy: a login
// attempt with any password shape must fail credential verification,
// not input validation, so the responses stay indistinguishable.
func ValidateLoginRequest(req *LoginRequest) *APIError {
	if req.Email == "" {
		return NewInvalidRequestError("email", "email is required")
	}
	if req.Password == "" {
		return NewInvalidRequestError("password", "password is required")
	}
	return nil
}

// ValidateCreateTaskRequest checks a CreateTaskRequest.
func ValidateCreateTaskRequest(req *CreateTaskRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Title) == "" {
		return NewInvalidRequestError("title", "title is required")
	}
	if utf8.RuneCountInString(req.Title) > cfg.MaxTitleLength {
		return NewInvalidRequestError("title",
			fmt.Sprintf("title exceeds maximum of %d characters", cfg.MaxTitleLength))
	}
	if utf8.RuneCountInString(req.Description) > cfg.MaxBodyLength {
		return NewInvalidRequestError("description",
			fmt.Sprintf("description exceeds maximum of %d characters", cfg.MaxBodyLength))
	}
	return nil
}

// ValidateUpdateTaskRequest checks an UpdateTaskRequest. At least one
// field must be present.
func ValidateUpdateTaskRequest(req *UpdateTaskRequest, cfg ValidationConfig) *APIError {
	if req.Title == nil && req.Description == nil && req.Status == nil {
		return NewInvalidRequestError("", "at least one field must be provided")
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return NewInvalidRequestError("title", "title must not be empty")
		}
		if utf8.RuneCountInString(*req.Title) > cfg.MaxTitleLength {
			return NewInvalidRequestError("title",
				fmt.Sprintf("title exceeds maximum of %d characters", cfg.MaxTitleLength))
		}
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > cfg.MaxBodyLength {
		return NewInvalidRequestError("description",
			fmt.Sprintf("description exceeds maximum of %d characters", cfg.MaxBodyLength))
	}
	return nil
}

func validateEmail(email string) *APIError {
	if email == "" {
		return NewInvalidRequestError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewInvalidRequestError("email", "email is not a valid address")
	}
	return nil
}

func validatePassword(pw string, cfg ValidationConfig) *APIError {
	if pw == "" {
		return NewInvalidRequestError("password", "password is required")
	}
	if len(pw) < cfg.MinPasswordLength {
		return NewInvalidRequestError("password",
			fmt.Sprintf("password must be at least %d bytes", cfg.MinPasswordLength))
	}
	if len(pw) > cfg.MaxPasswordLength {
		return NewInvalidRequestError("password",
			fmt.Sprintf("password exceeds maximum of %d bytes", cfg.MaxPasswordLength))
	}
	return nil
}
