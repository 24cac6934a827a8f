// AngelaMos | 2026
// dto.go

package registration

type SignupRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8,max=128"`
	Password2 string `json:"password2"  validate:"required,eqfield=Password"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name"  validate:"omitempty,max=100"`
}

type SignupResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type VerifyOTPRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}
