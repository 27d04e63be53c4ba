package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/duohub-io/duohub/internal/cache"
	"github.com/duohub-io/duohub/internal/imagestore"
	"github.com/duohub-io/duohub/internal/mail"
	"github.com/duohub-io/duohub/internal/models"
)

const (
	minPasswordLength = 8
	profileFilePrefix = "profile."

	verificationSubject  = "[DuoHub] Email verification code"
	verificationBodyTmpl = "Enter the code below to verify your email.\n%s"
)

// CredentialStore is the persistence contract the service depends on.
// *store.Store satisfies it.
type CredentialStore interface {
	UserExistsByEmail(email string) (bool, error)
	UserExistsByAccountID(accountID string) (bool, error)
	CreateUser(user *models.User) error
	GetUserByAccountID(accountID string) (*models.User, error)
	UpdateUser(accountID, email, nickname, passwordHash string) error
	UpdatePassword(accountID, passwordHash string) error
	UpdateImagePath(accountID, imagePath string) error
	DeleteUser(accountID string) error
	ListBookmarks(userID int64, page, size int) (*models.BookmarkPage, error)
}

// VerificationCache stores one-time email verification codes.
type VerificationCache interface {
	Get(ctx context.Context, email string) (string, error)
	Set(ctx context.Context, email, code string, ttl time.Duration) error
	Delete(ctx context.Context, email string) error
}

// TokenCache tracks active refresh tokens and the access-token denylist.
type TokenCache interface {
	RegisterRefresh(ctx context.Context, token string) error
	RemoveRefresh(ctx context.Context, token string) error
	Denylist(ctx context.Context, token string) error
}

// TokenIssuer mints bearer tokens for an authenticated identity.
type TokenIssuer interface {
	GenerateToken(accountID, nickname string) (string, error)
}

// Service orchestrates the account management flows. Every operation is a
// synchronous validate-then-delegate sequence against the injected
// collaborators; there is no local state.
type Service struct {
	store      CredentialStore
	codes      VerificationCache
	tokens     TokenCache
	issuer     TokenIssuer
	mailer     mail.Sender
	images     imagestore.Store
	codeTTL    time.Duration
	publicBase string
}

// New wires an account service.
func New(
	store CredentialStore,
	codes VerificationCache,
	tokens TokenCache,
	issuer TokenIssuer,
	mailer mail.Sender,
	images imagestore.Store,
	codeTTL time.Duration,
	publicBase string,
) *Service {
	return &Service{
		store:      store,
		codes:      codes,
		tokens:     tokens,
		issuer:     issuer,
		mailer:     mailer,
		images:     images,
		codeTTL:    codeTTL,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// Register creates an account after checking the password confirmation, email
// uniqueness and the one-time verification code. The code is consumed on
// success.
func (s *Service) Register(ctx context.Context, req SignupRequest) error {
	if req.Password != req.PasswordCheck {
		return ErrPasswordMismatch
	}

	exists, err := s.store.UserExistsByEmail(req.Email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return ErrDuplicateEmail
	}

	code, err := s.codes.Get(ctx, req.Email)
	if err != nil {
		if errors.Is(err, cache.ErrNoCode) {
			return ErrNoVerificationRequested
		}
		return fmt.Errorf("failed to read verification code: %w", err)
	}
	if code != req.EmailAuthCode {
		return ErrInvalidVerificationCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		AccountID: req.AccountID,
		Email:     req.Email,
		Nickname:  req.Nickname,
		Password:  string(hash),
	}
	if err := s.store.CreateUser(user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.codes.Delete(ctx, req.Email); err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	return nil
}

// Login verifies the credentials, mints a fresh token and registers it as an
// active refresh token. A new token is issued on every successful call.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.store.GetUserByAccountID(req.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	token, err := s.issuer.GenerateToken(user.AccountID, user.Nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.tokens.RegisterRefresh(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to register refresh token: %w", err)
	}

	return &LoginResponse{Token: token, Nickname: user.Nickname}, nil
}

// SendVerificationEmail mails a random 6-digit code and stores it against the
// email. Repeated requests overwrite the prior code.
func (s *Service) SendVerificationEmail(ctx context.Context, req EmailRequest) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	body := fmt.Sprintf(verificationBodyTmpl, code)
	if err := s.mailer.Send(req.Email, verificationSubject, body); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	if err := s.codes.Set(ctx, req.Email, code, s.codeTTL); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Logout denylists the token and drops it from the active refresh set. It is
// idempotent: logging out an already logged-out token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Denylist(ctx, token); err != nil {
		return fmt.Errorf("failed to denylist token: %w", err)
	}
	if err := s.tokens.RemoveRefresh(ctx, token); err != nil {
		return fmt.Errorf("failed to remove refresh token: %w", err)
	}
	return nil
}

// GetProfile returns the account's read projection.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*ProfileResponse, error) {
	user, err := s.store.GetUserByAccountID(accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return profileFromUser(user), nil
}

// UpdateProfile overwrites email, nickname and password. The account id in
// the request body must match the authenticated identity. Returns the
// submitted representation.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, req UpdateProfileRequest) (*ProfileResponse, error) {
	if accountID != req.AccountID {
		return nil, ErrTokenAccountMismatch
	}
	if req.Password != req.PasswordCheck {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdateUser(req.AccountID, req.Email, req.Nickname, string(hash)); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &ProfileResponse{
		AccountID: req.AccountID,
		Email:     req.Email,
		Nickname:  req.Nickname,
	}, nil
}

// ChangePassword overwrites only the stored credential hash. Checks run in
// order: mismatch, empty, length. A blank/blank pair passes the mismatch
// check and fails as EmptyPassword.
func (s *Service) ChangePassword(ctx context.Context, accountID string, req ChangePasswordRequest) error {
	if req.Password != req.PasswordCheck {
		return ErrPasswordMismatch
	}
	if strings.TrimSpace(req.Password) == "" {
		return ErrEmptyPassword
	}
	if len(req.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.UpdatePassword(accountID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the account record, then its profile image directory.
// Directory cleanup failure surfaces after the record is already gone; the
// deletion is not rolled back.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	exists, err := s.store.UserExistsByAccountID(accountID)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	if err := s.store.DeleteUser(accountID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := s.images.DeleteDirectory(ctx, accountID); err != nil {
		log.Printf("Error deleting profile image directory for %s: %v", accountID, err)
		return ErrDirectoryDeletionFailed.WithCause(err)
	}
	return nil
}

// UploadProfileImage stores the image as profile.<ext> in the account's
// directory, removing any previous profile file first so a changed extension
// cannot leave a stale image behind, and updates the account's public image
// reference.
func (s *Service) UploadProfileImage(ctx context.Context, accountID, originalName string, data io.Reader) error {
	if err := s.images.EnsureDirectory(ctx, accountID); err != nil {
		log.Printf("Error creating profile image directory for %s: %v", accountID, err)
		return ErrImageSaveFailed.WithCause(err)
	}

	ext := originalName
	if idx := strings.LastIndex(originalName, "."); idx >= 0 {
		ext = originalName[idx+1:]
	}
	filename := profileFilePrefix + ext

	if err := s.images.RemoveMatching(ctx, accountID, profileFilePrefix); err != nil {
		log.Printf("Error removing previous profile image for %s: %v", accountID, err)
		return ErrImageSaveFailed.WithCause(err)
	}
	if err := s.images.Write(ctx, accountID, filename, data); err != nil {
		log.Printf("Error writing profile image for %s: %v", accountID, err)
		return ErrImageSaveFailed.WithCause(err)
	}

	publicPath := fmt.Sprintf("%s/%s/%s", s.publicBase, accountID, filename)
	if err := s.store.UpdateImagePath(accountID, publicPath); err != nil {
		return fmt.Errorf("failed to update image path: %w", err)
	}
	return nil
}

// ListBookmarks returns one page of the account's bookmarks in insertion
// order. Page is zero-based.
func (s *Service) ListBookmarks(ctx context.Context, accountID string, page, size int) (*models.BookmarkPage, error) {
	user, err := s.store.GetUserByAccountID(accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	bookmarks, err := s.store.ListBookmarks(user.ID, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return bookmarks, nil
}
