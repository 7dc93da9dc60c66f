package auth

import (
	"net/mail"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (d LoginDTO) Validate() error {
	errs := map[string]string{}
	if strings.TrimSpace(d.Email) == "" {
		errs["email"] = "Email is required"
	}
	if d.Password == "" {
		errs["password"] = "Password is required"
	}
	if len(errs) > 0 {
		return internal.NewFieldMapError(errs)
	}
	return nil
}

type PasswordResetRequestDTO struct {
	Email string `json:"email"`
}

func (d PasswordResetRequestDTO) Validate() error {
	return validEmail(d.Email)
}

type VerifyCodeDTO struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (d VerifyCodeDTO) Validate() error {
	if err := validEmail(d.Email); err != nil {
		return err
	}
	if strings.TrimSpace(d.OTP) == "" {
		return internal.NewValidationFieldError("otp", "Verification code is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ResetPasswordDTO struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	if err := (VerifyCodeDTO{Email: d.Email, OTP: d.OTP}).Validate(); err != nil {
		return err
	}
	if n := len([]rune(d.NewPassword)); n < 6 || n > 50 {
		return internal.NewValidationFieldError("new_password", "Password must be between 6 and 50 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

func validEmail(email string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return internal.NewValidationFieldError("email", "Please enter a valid email address", internal.ErrCodeValidationFailed)
	}
	return nil
}
