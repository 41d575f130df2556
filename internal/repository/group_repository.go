package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

// GroupRepository persists groups and their memberships.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	const query = `INSERT INTO groups (id, name, description, teacher_id, active, created_at, updated_at)
        VALUES (:id, :name, :description, :teacher_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// FindByID returns a group by identifier.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, description, teacher_id, active, created_at, updated_at FROM groups WHERE id = $1 LIMIT 1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}

// List returns groups matching the filter.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	query := `SELECT id, name, description, teacher_id, active, created_at, updated_at FROM groups WHERE 1=1`
	var args []interface{}
	if filter.TeacherID != "" {
		query += fmt.Sprintf(" AND teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query += " ORDER BY created_at DESC"
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// AddMember enrolls a student in a group. Re-adding an existing member
// is a no-op.
func (r *GroupRepository) AddMember(ctx context.Context, member *models.GroupMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO group_members (id, group_id, user_id, joined_at)
        VALUES (:id, :group_id, :user_id, :joined_at)
        ON CONFLICT (group_id, user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, groupID, userID); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ListMembers returns the group roster in join order.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	const query = `SELECT id, group_id, user_id, joined_at FROM group_members WHERE group_id = $1 ORDER BY joined_at ASC, id ASC`
	var members []models.GroupMember
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}
