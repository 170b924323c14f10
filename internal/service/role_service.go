package service

import (
	"context"

	"github.com/ndemidenko/pressroom/internal/models"
	"github.com/ndemidenko/pressroom/internal/repo"
)

// RoleService answers hierarchical permission questions by role name
// against the ordered hierarchy. Role ids are never compared.
type RoleService struct {
	Users *repo.UserRepo
}

// HasRole reports whether the user's role sits at or above minimum in
// the hierarchy. An unknown or soft-deleted user answers false.
func (s *RoleService) HasRole(ctx context.Context, userID uint, minimum string) bool {
	user, err := s.Users.FindOneByID(ctx, userID, false)
	if err != nil {
		return false
	}
	for _, name := range models.RoleHierarchy() {
		if name == user.Role.Name {
			return true
		}
		if name == minimum {
			return false
		}
	}
	return false
}

func (s *RoleService) IsAdmin(ctx context.Context, userID uint) bool {
	return s.HasRole(ctx, userID, models.RoleAdmin)
}

func (s *RoleService) IsEditor(ctx context.Context, userID uint) bool {
	return s.HasRole(ctx, userID, models.RoleEditor)
}

func (s *RoleService) IsAuthor(ctx context.Context, userID uint) bool {
	return s.HasRole(ctx, userID, models.RoleAuthor)
}
