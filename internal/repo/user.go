package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/apperr"
	"github.com/ndemidenko/pressroom/internal/hash"
	"github.com/ndemidenko/pressroom/internal/models"
)

type UserRepo struct {
	DB         *gorm.DB
	BcryptCost int
}

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	// RoleID 0 means the lowest-privilege role.
	RoleID uint
}

type UserFilter struct {
	// Query matches first name, last name or email, case-insensitively.
	Query string
}

var userSortColumns = map[string]string{
	"id":         "id",
	"first_name": "first_name",
	"last_name":  "last_name",
	"email":      "email",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var userUpdateColumns = map[string]string{
	"first_name":           "first_name",
	"last_name":            "last_name",
	"email":                "email",
	"password":             "password_hash",
	"role_id":              "role_id",
	"token_blacklist_date": "token_blacklist_date",
}

func (r *UserRepo) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if strings.TrimSpace(in.FirstName) == "" ||
		strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		in.Password == "" {
		return nil, fmt.Errorf("%w: first name, last name, email and password are required", apperr.ErrInvalidPayload)
	}

	roleID := in.RoleID
	if roleID == 0 {
		roles := RoleRepo{DB: r.DB}
		role, err := roles.FindByName(ctx, models.DefaultRoleName())
		if err != nil {
			return nil, fmt.Errorf("resolve default role: %w", err)
		}
		roleID = role.ID
	}

	passwordHash, err := hash.HashPassword(in.Password, r.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        normalizeEmail(in.Email),
		PasswordHash: passwordHash,
		RoleID:       roleID,
	}
	if err := r.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, translateConflict(err, "email")
	}

	return r.FindOneByID(ctx, user.ID, false)
}

func (r *UserRepo) FindOneByID(ctx context.Context, id uint, includeDeleted bool) (*models.User, error) {
	var user models.User
	err := scope(ctx, r.DB, includeDeleted).
		Preload("Role").
		First(&user, "users.id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail looks the user up by normalized email among non-deleted
// rows. It backs the login flow.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Preload("Role").
		Where("email = ?", normalizeEmail(email)).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Search(ctx context.Context, filter UserFilter, opts SearchOptions) ([]models.User, int64, error) {
	tx := scope(ctx, r.DB, opts.IncludeDeleted).Model(&models.User{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		tx = tx.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR email LIKE ?",
			pattern, pattern, pattern,
		)
	}

	tx, total, err := paginate(tx, opts, userSortColumns)
	if err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := tx.Preload("Role").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) Update(ctx context.Context, id uint, fields map[string]any) error {
	if email, ok, err := stringField(fields, "email"); err != nil {
		return err
	} else if ok {
		fields["email"] = normalizeEmail(email)
	}

	if password, ok, err := stringField(fields, "password"); err != nil {
		return err
	} else if ok {
		passwordHash, err := hash.HashPassword(password, r.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fields["password"] = passwordHash
	}

	updates, err := buildUpdates(fields, userUpdateColumns, time.Now().UTC())
	if err != nil {
		return err
	}

	result := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return translateConflict(result.Error, "email")
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNoRecordsUpdated
	}
	return nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNoRecordsUpdated
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
