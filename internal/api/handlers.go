package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/duohub-io/duohub/internal/account"
)

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps account faults to their HTTP status and stable code.
func writeError(w http.ResponseWriter, err error) {
	var accErr *account.Error
	if errors.As(err, &accErr) {
		writeJSON(w, accErr.Status, ErrorResponse{Code: string(accErr.Code), Error: accErr.Message})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "Internal", Error: "internal server error"})
}

// SendVerificationHandler mails a one-time verification code.
func (api *Api) SendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req account.EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := api.accounts.SendVerificationEmail(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// RegisterHandler handles account registration.
func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req account.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := api.accounts.Register(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// LoginHandler handles login and returns a fresh bearer token.
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := api.accounts.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// LogoutHandler revokes the presented token.
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())
	if err := api.accounts.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetProfileHandler returns the authenticated account's profile.
func (api *Api) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	profile, err := api.accounts.GetProfile(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfileHandler overwrites the account's profile fields.
func (api *Api) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req account.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	profile, err := api.accounts.UpdateProfile(r.Context(), claims.AccountID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ChangePasswordHandler overwrites only the stored password hash.
func (api *Api) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req account.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := api.accounts.ChangePassword(r.Context(), claims.AccountID, req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteAccountHandler removes the account and its profile image directory.
func (api *Api) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if err := api.accounts.DeleteAccount(r.Context(), claims.AccountID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UploadProfileImageHandler accepts a multipart image upload.
func (api *Api) UploadProfileImageHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	// 10 MB in-memory limit for the multipart form
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := api.accounts.UploadProfileImage(r.Context(), claims.AccountID, header.Filename, file); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ListBookmarksHandler returns one page of the account's bookmarks.
func (api *Api) ListBookmarksHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}

	bookmarks, err := api.accounts.ListBookmarks(r.Context(), claims.AccountID, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}
