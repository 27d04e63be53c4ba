package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/duohub-io/duohub/internal/models"
)

// Store handles all database operations for users and bookmarks.
type Store struct {
	db     *sql.DB
	dbType string
}

// New creates a new store instance.
func New(db *sql.DB, dbType string) *Store {
	return &Store{db: db, dbType: dbType}
}

// rebind converts ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UserExistsByEmail reports whether a user with the given email exists.
func (s *Store) UserExistsByEmail(email string) (bool, error) {
	var count int
	err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM users WHERE email = ?"), email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UserExistsByAccountID reports whether a user with the given account id exists.
func (s *Store) UserExistsByAccountID(accountID string) (bool, error) {
	var count int
	err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM users WHERE account_id = ?"), accountID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUser creates a new user record.
func (s *Store) CreateUser(user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if s.dbType == "postgres" {
		return s.db.QueryRow(
			`INSERT INTO users (account_id, email, nickname, password, image_path, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			user.AccountID, user.Email, user.Nickname, user.Password, user.ImagePath,
			user.CreatedAt, user.UpdatedAt,
		).Scan(&user.ID)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (account_id, email, nickname, password, image_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.AccountID, user.Email, user.Nickname, user.Password, user.ImagePath,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByAccountID retrieves a user by account id. Returns sql.ErrNoRows if
// no such user exists.
func (s *Store) GetUserByAccountID(accountID string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		s.rebind(`SELECT id, account_id, email, nickname, password, image_path, created_at, updated_at
		 FROM users WHERE account_id = ?`),
		accountID,
	).Scan(&user.ID, &user.AccountID, &user.Email, &user.Nickname, &user.Password,
		&user.ImagePath, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser overwrites email, nickname and password hash for the given
// account id. The account id itself is immutable.
func (s *Store) UpdateUser(accountID, email, nickname, passwordHash string) error {
	_, err := s.db.Exec(
		s.rebind(`UPDATE users SET email = ?, nickname = ?, password = ?, updated_at = ? WHERE account_id = ?`),
		email, nickname, passwordHash, time.Now(), accountID,
	)
	return err
}

// UpdatePassword overwrites only the stored password hash.
func (s *Store) UpdatePassword(accountID, passwordHash string) error {
	_, err := s.db.Exec(
		s.rebind(`UPDATE users SET password = ?, updated_at = ? WHERE account_id = ?`),
		passwordHash, time.Now(), accountID,
	)
	return err
}

// UpdateImagePath overwrites the stored profile image reference.
func (s *Store) UpdateImagePath(accountID, imagePath string) error {
	_, err := s.db.Exec(
		s.rebind(`UPDATE users SET image_path = ?, updated_at = ? WHERE account_id = ?`),
		imagePath, time.Now(), accountID,
	)
	return err
}

// DeleteUser removes a user record. Bookmarks cascade via the foreign key.
func (s *Store) DeleteUser(accountID string) error {
	result, err := s.db.Exec(s.rebind(`DELETE FROM users WHERE account_id = ?`), accountID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateBookmark stores a bookmark for a user.
func (s *Store) CreateBookmark(bm *models.Bookmark) error {
	bm.CreatedAt = time.Now()

	if s.dbType == "postgres" {
		return s.db.QueryRow(
			`INSERT INTO bookmarks (user_id, board_id, title, writer, created_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			bm.UserID, bm.BoardID, bm.Title, bm.Writer, bm.CreatedAt,
		).Scan(&bm.ID)
	}

	result, err := s.db.Exec(
		`INSERT INTO bookmarks (user_id, board_id, title, writer, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		bm.UserID, bm.BoardID, bm.Title, bm.Writer, bm.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	bm.ID = id
	return nil
}

// ListBookmarks returns one page of a user's bookmarks in insertion order.
// Page is zero-based.
func (s *Store) ListBookmarks(userID int64, page, size int) (*models.BookmarkPage, error) {
	var total int64
	err := s.db.QueryRow(s.rebind(`SELECT COUNT(*) FROM bookmarks WHERE user_id = ?`), userID).Scan(&total)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		s.rebind(`SELECT board_id, title, writer, created_at FROM bookmarks
		 WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?`),
		userID, size, page*size,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.BookmarkSummary{}
	for rows.Next() {
		var item models.BookmarkSummary
		if err := rows.Scan(&item.BoardID, &item.Title, &item.Writer, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &models.BookmarkPage{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}
