// AngelaMos | 2026
// dto.go

package auth

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type TokenResponse struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthResponse struct {
	User    AuthUser      `json:"user"`
	Tokens  TokenResponse `json:"tokens"`
	Message string        `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
