package auth

import (
	"strings"

	"github.com/nhatdang2003/tms-backend/internal/core/common/validation"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *LoginDTO) Normalize() {
	d.Email = strings.TrimSpace(d.Email)
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LogoutDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d LogoutDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8).MaxLength(100).StrongPassword()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

func (d ForgotPasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ResetPasswordDTO struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("reset_token", d.ResetToken).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8).MaxLength(100).StrongPassword()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LoginResponse struct {
	TokenPair
	User UserSummary `json:"user"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ProfileResponse struct {
	UserSummary
	Status      string   `json:"status"`
	Permissions []string `json:"permissions"`
}
