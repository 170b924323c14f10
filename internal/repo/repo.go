// Package repo implements the entity repositories over GORM: dynamic
// filtered search, partial updates, soft delete and uniqueness
// translation for users, categories and posts.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/apperr"
)

// SearchOptions are shared by every repository Search call. The zero
// value means: exclude soft-deleted rows, no limit, no offset, order by
// id ascending.
type SearchOptions struct {
	IncludeDeleted bool
	Limit          *int
	Offset         *int
	// OrderBy is a whitelisted sort key, optionally prefixed with "-"
	// for descending order. Unknown keys are rejected, they never reach
	// the query text.
	OrderBy string
}

func orderClause(orderBy string, allowed map[string]string) (string, error) {
	if orderBy == "" {
		return "id", nil
	}
	key := orderBy
	desc := false
	if strings.HasPrefix(key, "-") {
		key = key[1:]
		desc = true
	}
	column, ok := allowed[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown sort key %q", apperr.ErrInvalidPayload, key)
	}
	if desc {
		return column + " DESC", nil
	}
	return column, nil
}

// paginate runs the count-then-page sequence: total is computed from
// the filter predicate before limit and offset apply, and the limit and
// offset clauses are omitted entirely when not provided.
func paginate(tx *gorm.DB, opts SearchOptions, allowed map[string]string) (*gorm.DB, int64, error) {
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, err := orderClause(opts.OrderBy, allowed)
	if err != nil {
		return nil, 0, err
	}
	tx = tx.Order(order)

	if opts.Limit != nil {
		tx = tx.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		tx = tx.Offset(*opts.Offset)
	}
	return tx, total, nil
}

// buildUpdates maps a partial-update payload onto column assignments.
// Field names outside the allowed set are rejected rather than
// interpolated, and updated_at is always bumped.
func buildUpdates(fields map[string]any, allowed map[string]string, now time.Time) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, apperr.ErrInvalidPayload
	}
	updates := make(map[string]any, len(fields)+1)
	for name, value := range fields {
		column, ok := allowed[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", apperr.ErrInvalidPayload, name)
		}
		updates[column] = value
	}
	updates["updated_at"] = now
	return updates, nil
}

func stringField(fields map[string]any, name string) (string, bool, error) {
	raw, ok := fields[name]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false, fmt.Errorf("%w: field %q must be a non-empty string", apperr.ErrInvalidPayload, name)
	}
	return s, true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The sqlite driver used in tests does not translate its errors.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func translateConflict(err error, field string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return &apperr.Conflict{Field: field}
	}
	return err
}

func likePattern(query string) string {
	return "%" + strings.ToLower(query) + "%"
}

func scope(ctx context.Context, db *gorm.DB, includeDeleted bool) *gorm.DB {
	tx := db.WithContext(ctx)
	if includeDeleted {
		tx = tx.Unscoped()
	}
	return tx
}
