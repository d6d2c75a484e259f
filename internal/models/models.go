package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxUsernameLength is the longest name the users table accepts.
const MaxUsernameLength = 30

type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Password string    `json:"-"` // bcrypt hash
}

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the session can still authenticate a request at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

type Post struct {
	ID       uuid.UUID `json:"id"`
	AuthorID uuid.UUID `json:"author_id"`
	Author   *User     `json:"author,omitempty"`
	Created  time.Time `json:"created"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Comments []Comment `json:"comments,omitempty"`
}

func (p *Post) OwnerID() uuid.UUID { return p.AuthorID }

type Comment struct {
	ID           uuid.UUID `json:"id"`
	ParentPostID uuid.UUID `json:"parent_post_id"`
	AuthorID     uuid.UUID `json:"author_id"`
	Author       *User     `json:"author,omitempty"`
	Created      time.Time `json:"created"`
	Text         string    `json:"text"`
}

func (c *Comment) OwnerID() uuid.UUID { return c.AuthorID }
