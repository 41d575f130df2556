package models

import "time"

// Group represents a study group students belong to. Every member owns
// exactly one Rating row for the group.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GroupMember links a student to a group. JoinedAt drives the
// insertion-order tie break during rank resolution.
type GroupMember struct {
	ID       string    `db:"id" json:"id"`
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// GroupFilter scopes group listing queries.
type GroupFilter struct {
	TeacherID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
}
