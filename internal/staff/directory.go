// Package staff resolves the set of staff members that receive fan-out work.
package staff

import (
	"context"
	"fmt"

	"inquiryflow/internal/domain"

	"gorm.io/gorm"
)

// Member is one recipient of tasks and activity items
type Member struct {
	Username string
	Email    string
	Name     string
	Role     domain.Role
}

// Resolver returns the current staff set. Fan-out depends on this interface.
type Resolver interface {
	Resolve(ctx context.Context) ([]Member, error)
}

// Directory reads staff members from the users table
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a directory over db
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Resolve returns every active user with a staff or admin role, ordered by username.
// Volunteers and inactive accounts are excluded.
func (d *Directory) Resolve(ctx context.Context) ([]Member, error) {
	var users []domain.User
	err := d.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("is_staff = ? OR is_admin = ?", true, true).
		Where("role <> ?", domain.RoleVolunteer).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staff: %w", err)
	}

	members := make([]Member, 0, len(users))
	for i := range users {
		u := &users[i]
		members = append(members, Member{
			Username: u.Username,
			Email:    u.Email,
			Name:     u.DisplayName(),
			Role:     u.Role,
		})
	}
	return members, nil
}

// Static is a fixed staff set
type Static []Member

// Resolve returns the fixed set
func (s Static) Resolve(context.Context) ([]Member, error) {
	return s, nil
}
