package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/apperr"
	"github.com/ndemidenko/pressroom/internal/models"
)

type RoleRepo struct {
	DB *gorm.DB
}

func (r *RoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}
