package account

import (
	"time"

	"github.com/duohub-io/duohub/internal/models"
)

// SignupRequest carries a registration attempt.
type SignupRequest struct {
	AccountID     string `json:"account_id"`
	Email         string `json:"email"`
	Nickname      string `json:"nickname"`
	Password      string `json:"password"`
	PasswordCheck string `json:"password_check"`
	EmailAuthCode string `json:"email_auth_code"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	AccountID string `json:"account_id"`
	Password  string `json:"password"`
}

// LoginResponse returns the freshly minted bearer token and display name.
type LoginResponse struct {
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
}

// EmailRequest asks for a verification code to be mailed.
type EmailRequest struct {
	Email string `json:"email"`
}

// ProfileResponse is the read projection of an account. It never carries the
// password hash.
type ProfileResponse struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	ImagePath string    `json:"image_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func profileFromUser(u *models.User) *ProfileResponse {
	return &ProfileResponse{
		AccountID: u.AccountID,
		Email:     u.Email,
		Nickname:  u.Nickname,
		ImagePath: u.ImagePath,
		CreatedAt: u.CreatedAt,
	}
}

// UpdateProfileRequest overwrites email, nickname and password. AccountID
// must match the authenticated identity; it is never changed.
type UpdateProfileRequest struct {
	AccountID     string `json:"account_id"`
	Email         string `json:"email"`
	Nickname      string `json:"nickname"`
	Password      string `json:"password"`
	PasswordCheck string `json:"password_check"`
}

// ChangePasswordRequest carries the new password and its confirmation.
type ChangePasswordRequest struct {
	Password      string `json:"password"`
	PasswordCheck string `json:"password_check"`
}
