package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/apperr"
	"github.com/ndemidenko/pressroom/internal/events"
	"github.com/ndemidenko/pressroom/internal/models"
)

type CategoryRepo struct {
	DB     *gorm.DB
	Events events.Publisher
	Log    *slog.Logger
}

type CreateCategoryInput struct {
	Name        string
	Description *string
}

type CategoryFilter struct {
	Query string
}

var categorySortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var categoryUpdateColumns = map[string]string{
	"name":        "name",
	"description": "description",
}

func (r *CategoryRepo) Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrInvalidPayload)
	}

	category := models.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if err := r.DB.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, translateConflict(err, "name")
	}

	r.publish(ctx, "category_created", &category)
	return &category, nil
}

func (r *CategoryRepo) FindOneByID(ctx context.Context, id uint, includeDeleted bool) (*models.Category, error) {
	var category models.Category
	err := scope(ctx, r.DB, includeDeleted).First(&category, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepo) Search(ctx context.Context, filter CategoryFilter, opts SearchOptions) ([]models.Category, int64, error) {
	tx := scope(ctx, r.DB, opts.IncludeDeleted).Model(&models.Category{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		tx = tx.Where("LOWER(name) LIKE ?", likePattern(q))
	}

	tx, total, err := paginate(tx, opts, categorySortColumns)
	if err != nil {
		return nil, 0, err
	}

	var categories []models.Category
	if err := tx.Find(&categories).Error; err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *CategoryRepo) Update(ctx context.Context, id uint, fields map[string]any) error {
	if name, ok, err := stringField(fields, "name"); err != nil {
		return err
	} else if ok {
		fields["name"] = strings.TrimSpace(name)
	}

	updates, err := buildUpdates(fields, categoryUpdateColumns, time.Now().UTC())
	if err != nil {
		return err
	}

	result := r.DB.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return translateConflict(result.Error, "name")
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNoRecordsUpdated
	}

	r.publish(ctx, "category_updated", &models.Category{ID: id})
	return nil
}

func (r *CategoryRepo) SoftDelete(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.Category{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNoRecordsUpdated
	}

	r.publish(ctx, "category_deleted", &models.Category{ID: id})
	return nil
}

func (r *CategoryRepo) publish(ctx context.Context, eventType string, category *models.Category) {
	if r.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	event := map[string]any{
		"type":       eventType,
		"categoryID": category.ID,
		"name":       category.Name,
	}
	if err := r.Events.PublishEvent(ctx, "category_events", fmt.Sprint(category.ID), event); err != nil {
		r.logger().ErrorContext(ctx, "kafka publish failed", "error", err, "event", eventType)
	}
}

func (r *CategoryRepo) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
