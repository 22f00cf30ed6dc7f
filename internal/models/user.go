package models

// Identity is the signed-in shopper. The zero value is the guest identity.
type Identity struct {
	UserID        string `json:"userId,omitempty"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// IsGuest reports whether no account is signed in
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

// SignUpRequest represents the body of POST /auth/signup
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName" binding:"required"`
}

// SignUpResponse represents the response after creating an account
type SignUpResponse struct {
	UserID string `json:"userId"`
	// VerificationCode stands in for the emailed verification link
	VerificationCode string `json:"verificationCode"`
}

// VerifyEmailRequest represents the body of POST /auth/verify
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// SignInRequest represents the body of POST /auth/signin
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignInResponse carries the bearer token for subsequent calls
type SignInResponse struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// Credential is what a client persists to stay signed in across runs
type Credential struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}
