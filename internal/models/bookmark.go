package models

import (
	"time"
)

// Bookmark is a reference from a user to a board post they saved.
type Bookmark struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	BoardID   int64     `json:"board_id" db:"board_id"`
	Title     string    `json:"title" db:"title"`
	Writer    string    `json:"writer" db:"writer"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BookmarkSummary is the read projection returned when listing bookmarks.
type BookmarkSummary struct {
	BoardID   int64     `json:"board_id"`
	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkPage is one page of bookmark summaries.
type BookmarkPage struct {
	Items      []BookmarkSummary `json:"items"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}
