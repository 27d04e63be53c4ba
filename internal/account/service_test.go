package account

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duohub-io/duohub/internal/auth"
	"github.com/duohub-io/duohub/internal/cache"
	"github.com/duohub-io/duohub/internal/imagestore"
	"github.com/duohub-io/duohub/internal/models"
)

// fakeStore is an in-memory CredentialStore.
type fakeStore struct {
	users     map[string]*models.User // keyed by account id
	bookmarks map[int64][]models.Bookmark
	nextID    int64
	failWith  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*models.User),
		bookmarks: make(map[int64][]models.Bookmark),
		nextID:    1,
	}
}

func (f *fakeStore) UserExistsByEmail(email string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UserExistsByAccountID(accountID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.users[accountID]
	return ok, nil
}

func (f *fakeStore) CreateUser(user *models.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	f.users[user.AccountID] = user
	return nil
}

func (f *fakeStore) GetUserByAccountID(accountID string) (*models.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[accountID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) UpdateUser(accountID, email, nickname, passwordHash string) error {
	if u, ok := f.users[accountID]; ok {
		u.Email = email
		u.Nickname = nickname
		u.Password = passwordHash
	}
	return nil
}

func (f *fakeStore) UpdatePassword(accountID, passwordHash string) error {
	if u, ok := f.users[accountID]; ok {
		u.Password = passwordHash
	}
	return nil
}

func (f *fakeStore) UpdateImagePath(accountID, imagePath string) error {
	if u, ok := f.users[accountID]; ok {
		u.ImagePath = imagePath
	}
	return nil
}

func (f *fakeStore) DeleteUser(accountID string) error {
	if _, ok := f.users[accountID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, accountID)
	return nil
}

func (f *fakeStore) ListBookmarks(userID int64, page, size int) (*models.BookmarkPage, error) {
	all := f.bookmarks[userID]
	start := page * size
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	items := []models.BookmarkSummary{}
	for _, bm := range all[start:end] {
		items = append(items, models.BookmarkSummary{
			BoardID: bm.BoardID, Title: bm.Title, Writer: bm.Writer, CreatedAt: bm.CreatedAt,
		})
	}
	total := int64(len(all))
	return &models.BookmarkPage{
		Items: items, Page: page, Size: size, TotalCount: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// fakeMailer records sent messages.
type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, body string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

// failingImageStore fails directory deletion to exercise the non-rollback
// path of DeleteAccount.
type failingImageStore struct {
	imagestore.Store
	deleteErr error
}

func (f *failingImageStore) DeleteDirectory(ctx context.Context, accountID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.DeleteDirectory(ctx, accountID)
}

type testEnv struct {
	svc    *Service
	store  *fakeStore
	mailer *fakeMailer
	codes  *cache.VerificationCache
	tokens *cache.TokenCache
	images imagestore.Store
	imgDir string
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := newFakeStore()
	mailer := &fakeMailer{}
	codes := cache.NewVerificationCache(client)
	tokens := cache.NewTokenCache(client, time.Hour)
	imgDir := t.TempDir()
	images := imagestore.NewLocal(imgDir)
	issuer := auth.NewTokenManager("test-secret", time.Hour)

	svc := New(st, codes, tokens, issuer, mailer, images, 5*time.Minute, "/static/profile")
	return &testEnv{svc: svc, store: st, mailer: mailer, codes: codes, tokens: tokens, images: images, imgDir: imgDir}
}

func (e *testEnv) registerUser(t *testing.T, accountID, email, password string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.codes.Set(ctx, email, "123456", time.Minute))
	err := e.svc.Register(ctx, SignupRequest{
		AccountID:     accountID,
		Email:         email,
		Nickname:      accountID + "-nick",
		Password:      password,
		PasswordCheck: password,
		EmailAuthCode: "123456",
	})
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("PasswordMismatch", func(t *testing.T) {
		env := setupService(t)
		err := env.svc.Register(ctx, SignupRequest{
			AccountID: "alice", Email: "a@x.com",
			Password: "password1", PasswordCheck: "password2",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
		assert.Empty(t, env.store.users, "no account may be created on mismatch")
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		err := env.svc.Register(ctx, SignupRequest{
			AccountID: "bob", Email: "a@x.com",
			Password: "password1", PasswordCheck: "password1",
		})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("NoVerificationRequested", func(t *testing.T) {
		env := setupService(t)
		err := env.svc.Register(ctx, SignupRequest{
			AccountID: "alice", Email: "a@x.com",
			Password: "password1", PasswordCheck: "password1",
			EmailAuthCode: "123456",
		})
		assert.ErrorIs(t, err, ErrNoVerificationRequested)
	})

	t.Run("InvalidVerificationCode", func(t *testing.T) {
		env := setupService(t)
		require.NoError(t, env.codes.Set(ctx, "a@x.com", "123456", time.Minute))

		err := env.svc.Register(ctx, SignupRequest{
			AccountID: "alice", Email: "a@x.com",
			Password: "password1", PasswordCheck: "password1",
			EmailAuthCode: "654321",
		})
		assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	})

	t.Run("SuccessConsumesCode", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		require.Len(t, env.store.users, 1)
		user := env.store.users["alice"]
		assert.Equal(t, "a@x.com", user.Email)
		assert.NotEqual(t, "password1", user.Password, "password must be stored hashed")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password1")))

		// Second use of the same code fails: the entry was consumed.
		err := env.svc.Register(ctx, SignupRequest{
			AccountID: "alice2", Email: "a2@x.com",
			Password: "password1", PasswordCheck: "password1",
			EmailAuthCode: "123456",
		})
		assert.ErrorIs(t, err, ErrNoVerificationRequested)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("UserNotFound", func(t *testing.T) {
		env := setupService(t)
		_, err := env.svc.Login(ctx, LoginRequest{AccountID: "ghost", Password: "whatever1"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("InvalidPassword", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		_, err := env.svc.Login(ctx, LoginRequest{AccountID: "alice", Password: "wrongpass"})
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("FreshTokenPerLogin", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		resp1, err := env.svc.Login(ctx, LoginRequest{AccountID: "alice", Password: "password1"})
		require.NoError(t, err)
		resp2, err := env.svc.Login(ctx, LoginRequest{AccountID: "alice", Password: "password1"})
		require.NoError(t, err)

		assert.Equal(t, "alice-nick", resp1.Nickname)
		assert.NotEmpty(t, resp1.Token)
		assert.NotEqual(t, resp1.Token, resp2.Token, "every login mints a distinct token")

		active, err := env.tokens.IsRefreshActive(ctx, resp1.Token)
		require.NoError(t, err)
		assert.True(t, active)
	})
}

func TestSendVerificationEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("CodeRangeAndStorage", func(t *testing.T) {
		env := setupService(t)
		require.NoError(t, env.svc.SendVerificationEmail(ctx, EmailRequest{Email: "a@x.com"}))

		require.Len(t, env.mailer.sent, 1)
		msg := env.mailer.sent[0]
		assert.Equal(t, "a@x.com", msg.to)
		assert.Contains(t, msg.subject, "verification")

		code, err := env.codes.Get(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
		assert.Contains(t, msg.body, code, "mail body must carry the stored code")
	})

	t.Run("ResendOverwrites", func(t *testing.T) {
		env := setupService(t)
		require.NoError(t, env.svc.SendVerificationEmail(ctx, EmailRequest{Email: "a@x.com"}))
		require.NoError(t, env.svc.SendVerificationEmail(ctx, EmailRequest{Email: "a@x.com"}))

		// The stored entry is the most recent one: its code is the one in the
		// second mail.
		second, err := env.codes.Get(ctx, "a@x.com")
		require.NoError(t, err)
		require.Len(t, env.mailer.sent, 2)
		assert.Contains(t, env.mailer.sent[1].body, second)
	})

	t.Run("MailFailure", func(t *testing.T) {
		env := setupService(t)
		env.mailer.err = errors.New("smtp down")
		err := env.svc.SendVerificationEmail(ctx, EmailRequest{Email: "a@x.com"})
		assert.Error(t, err)

		_, err = env.codes.Get(ctx, "a@x.com")
		assert.ErrorIs(t, err, cache.ErrNoCode, "no code stored when the mail was never sent")
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)
	env.registerUser(t, "alice", "a@x.com", "password1")

	resp, err := env.svc.Login(ctx, LoginRequest{AccountID: "alice", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, resp.Token))

	denied, err := env.tokens.IsDenylisted(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, denied)

	active, err := env.tokens.IsRefreshActive(ctx, resp.Token)
	require.NoError(t, err)
	assert.False(t, active)

	// Logout is idempotent: a second call must not fail.
	require.NoError(t, env.svc.Logout(ctx, resp.Token))
	denied, err = env.tokens.IsDenylisted(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, denied)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		env := setupService(t)
		_, err := env.svc.GetProfile(ctx, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("ExcludesPassword", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		profile, err := env.svc.GetProfile(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.AccountID)
		assert.Equal(t, "a@x.com", profile.Email)
		assert.Equal(t, "alice-nick", profile.Nickname)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("TokenAccountMismatch", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		_, err := env.svc.UpdateProfile(ctx, "alice", UpdateProfileRequest{
			AccountID: "mallory", Email: "m@x.com", Nickname: "m",
			Password: "password1", PasswordCheck: "password1",
		})
		assert.ErrorIs(t, err, ErrTokenAccountMismatch)
	})

	t.Run("PasswordMismatch", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		_, err := env.svc.UpdateProfile(ctx, "alice", UpdateProfileRequest{
			AccountID: "alice", Email: "new@x.com", Nickname: "new",
			Password: "password1", PasswordCheck: "password2",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("OverwritesFields", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		profile, err := env.svc.UpdateProfile(ctx, "alice", UpdateProfileRequest{
			AccountID: "alice", Email: "new@x.com", Nickname: "newnick",
			Password: "newpassword", PasswordCheck: "newpassword",
		})
		require.NoError(t, err)
		assert.Equal(t, "new@x.com", profile.Email)
		assert.Equal(t, "newnick", profile.Nickname)

		stored := env.store.users["alice"]
		assert.Equal(t, "new@x.com", stored.Email)
		assert.Equal(t, "alice", stored.AccountID, "account id is immutable")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpassword")))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Mismatch", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")
		err := env.svc.ChangePassword(ctx, "alice", ChangePasswordRequest{
			Password: "newpass12", PasswordCheck: "newpass13",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("BlankPairHitsEmptyCheck", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")
		err := env.svc.ChangePassword(ctx, "alice", ChangePasswordRequest{
			Password: "   ", PasswordCheck: "   ",
		})
		assert.ErrorIs(t, err, ErrEmptyPassword)
	})

	t.Run("TooShort", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")
		err := env.svc.ChangePassword(ctx, "alice", ChangePasswordRequest{
			Password: "seven77", PasswordCheck: "seven77",
		})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("EightCharsSucceeds", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")
		oldHash := env.store.users["alice"].Password

		err := env.svc.ChangePassword(ctx, "alice", ChangePasswordRequest{
			Password: "eight888", PasswordCheck: "eight888",
		})
		require.NoError(t, err)

		newHash := env.store.users["alice"].Password
		assert.NotEqual(t, oldHash, newHash)
		assert.Error(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("password1")),
			"old password must no longer match")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("eight888")))
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		env := setupService(t)
		err := env.svc.DeleteAccount(ctx, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("RemovesRecordAndDirectory", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")
		require.NoError(t, env.svc.UploadProfileImage(ctx, "alice", "me.png", strings.NewReader("png-bytes")))

		require.NoError(t, env.svc.DeleteAccount(ctx, "alice"))
		assert.Empty(t, env.store.users)
		_, err := os.Stat(filepath.Join(env.imgDir, "alice"))
		assert.True(t, os.IsNotExist(err), "image directory must be gone")
	})

	t.Run("RecordGoneDespiteDirectoryFailure", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		failing := &failingImageStore{Store: env.images, deleteErr: errors.New("file locked")}
		svc := New(env.store, env.codes, env.tokens,
			auth.NewTokenManager("test-secret", time.Hour),
			env.mailer, failing, 5*time.Minute, "/static/profile")

		err := svc.DeleteAccount(ctx, "alice")
		assert.ErrorIs(t, err, ErrDirectoryDeletionFailed)
		assert.Empty(t, env.store.users, "record deletion is not rolled back")
	})
}

func TestUploadProfileImage(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresAsProfileExt", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		require.NoError(t, env.svc.UploadProfileImage(ctx, "alice", "holiday.png", strings.NewReader("png-bytes")))

		data, err := os.ReadFile(filepath.Join(env.imgDir, "alice", "profile.png"))
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
		assert.Equal(t, "/static/profile/alice/profile.png", env.store.users["alice"].ImagePath)
	})

	t.Run("NewExtensionReplacesOldFile", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		require.NoError(t, env.svc.UploadProfileImage(ctx, "alice", "one.jpg", strings.NewReader("jpg-bytes")))
		require.NoError(t, env.svc.UploadProfileImage(ctx, "alice", "two.png", strings.NewReader("png-bytes")))

		_, err := os.Stat(filepath.Join(env.imgDir, "alice", "profile.jpg"))
		assert.True(t, os.IsNotExist(err), "stale-extension file must be removed")
		_, err = os.Stat(filepath.Join(env.imgDir, "alice", "profile.png"))
		assert.NoError(t, err)
		assert.Equal(t, "/static/profile/alice/profile.png", env.store.users["alice"].ImagePath)
	})

	t.Run("DirectoryCreationFailure", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")

		// A file where the root directory should be makes MkdirAll fail.
		blocked := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
		svc := New(env.store, env.codes, env.tokens,
			auth.NewTokenManager("test-secret", time.Hour),
			env.mailer, imagestore.NewLocal(blocked), 5*time.Minute, "/static/profile")

		err := svc.UploadProfileImage(ctx, "alice", "me.png", strings.NewReader("png-bytes"))
		assert.ErrorIs(t, err, ErrImageSaveFailed)
	})
}

func TestListBookmarks(t *testing.T) {
	ctx := context.Background()

	t.Run("AbsentAccount", func(t *testing.T) {
		env := setupService(t)
		_, err := env.svc.ListBookmarks(ctx, "ghost", 0, 10)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("Pagination", func(t *testing.T) {
		env := setupService(t)
		env.registerUser(t, "alice", "a@x.com", "password1")
		userID := env.store.users["alice"].ID
		for i := 0; i < 5; i++ {
			env.store.bookmarks[userID] = append(env.store.bookmarks[userID], models.Bookmark{
				BoardID: int64(i + 1), Title: "post", Writer: "bob",
			})
		}

		page, err := env.svc.ListBookmarks(ctx, "alice", 0, 2)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, int64(1), page.Items[0].BoardID)
		assert.Equal(t, int64(5), page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)

		last, err := env.svc.ListBookmarks(ctx, "alice", 2, 2)
		require.NoError(t, err)
		assert.Len(t, last.Items, 1)
		assert.Equal(t, int64(5), last.Items[0].BoardID)
	})
}
