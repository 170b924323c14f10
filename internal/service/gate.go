package service

import (
	"context"

	"github.com/ndemidenko/pressroom/internal/apperr"
	"github.com/ndemidenko/pressroom/internal/models"
)

// Gate evaluates role preconditions before a repository call is made.
// A denial short-circuits: the caller must not touch the repository.
type Gate struct {
	Roles *RoleService
}

func (g *Gate) RequireAdmin(ctx context.Context, userID uint) error {
	return g.require(ctx, userID, models.RoleAdmin)
}

func (g *Gate) RequireEditor(ctx context.Context, userID uint) error {
	return g.require(ctx, userID, models.RoleEditor)
}

func (g *Gate) RequireAuthor(ctx context.Context, userID uint) error {
	return g.require(ctx, userID, models.RoleAuthor)
}

func (g *Gate) require(ctx context.Context, userID uint, minimum string) error {
	if !g.Roles.HasRole(ctx, userID, minimum) {
		return apperr.ErrForbidden
	}
	return nil
}
