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
	"github.com/ndemidenko/pressroom/internal/search"
)

// maxTextMatches bounds the id set fetched from the text index for one
// search call.
const maxTextMatches = 1000

type PostRepo struct {
	DB     *gorm.DB
	Events events.Publisher
	Index  *search.PostIndex
	Log    *slog.Logger
}

type CreatePostInput struct {
	AuthorID    uint
	Title       string
	Description string
	Content     string
	CategoryID  uint
	Slug        string
	Template    string
	Published   bool
	Tags        []string
}

type PostFilter struct {
	// Query matches title, description and content.
	Query      string
	Template   string
	CategoryID *uint
	AuthorID   *uint
	Published  *bool
}

var postSortColumns = map[string]string{
	"id":         "id",
	"title":      "title",
	"slug":       "slug",
	"published":  "published",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var postUpdateColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"content":     "content",
	"category_id": "category_id",
	"slug":        "slug",
	"template":    "template",
	"published":   "published",
}

func (r *PostRepo) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.AuthorID == 0 || in.CategoryID == 0 ||
		strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Content) == "" ||
		strings.TrimSpace(in.Slug) == "" {
		return nil, fmt.Errorf("%w: author, category, title, content and slug are required", apperr.ErrInvalidPayload)
	}

	template := strings.TrimSpace(in.Template)
	if template == "" {
		template = "default"
	}

	post := models.Post{
		AuthorID:    in.AuthorID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Content:     in.Content,
		CategoryID:  in.CategoryID,
		Slug:        normalizeSlug(in.Slug),
		Template:    template,
		Published:   in.Published,
	}

	// Post row and its tag set commit together.
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return translateConflict(err, "slug")
		}
		return insertTags(tx, post.ID, normalizeTags(in.Tags))
	})
	if err != nil {
		return nil, err
	}

	created, err := r.FindOneByID(ctx, post.ID, false)
	if err != nil {
		return nil, err
	}

	r.indexPost(ctx, created)
	r.publish(ctx, "post_created", created.ID, created.Slug)
	return created, nil
}

func (r *PostRepo) FindOneByID(ctx context.Context, id uint, includeDeleted bool) (*models.Post, error) {
	var post models.Post
	err := scope(ctx, r.DB, includeDeleted).
		Preload("Author").
		Preload("Author.Role").
		Preload("Category").
		Preload("Tags").
		First(&post, "posts.id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *PostRepo) Search(ctx context.Context, filter PostFilter, opts SearchOptions) ([]models.Post, int64, error) {
	tx := scope(ctx, r.DB, opts.IncludeDeleted).Model(&models.Post{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		matched, done, err := r.textPredicate(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		if done {
			return []models.Post{}, 0, nil
		}
		tx = matched(tx)
	}
	if filter.Template != "" {
		tx = tx.Where("template = ?", filter.Template)
	}
	if filter.CategoryID != nil {
		tx = tx.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.AuthorID != nil {
		tx = tx.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.Published != nil {
		tx = tx.Where("published = ?", *filter.Published)
	}

	tx, total, err := paginate(tx, opts, postSortColumns)
	if err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	if err := tx.
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// textPredicate resolves the free-text query either through the
// Elasticsearch index (id lookup, ordering stays with SQL) or, when no
// index is configured or the lookup fails, through a portable LIKE
// predicate. done reports that the index matched nothing.
func (r *PostRepo) textPredicate(ctx context.Context, q string) (func(*gorm.DB) *gorm.DB, bool, error) {
	if r.Index != nil {
		ids, err := r.Index.MatchIDs(ctx, q, maxTextMatches)
		if err == nil {
			if len(ids) == 0 {
				return nil, true, nil
			}
			return func(tx *gorm.DB) *gorm.DB {
				return tx.Where("id IN ?", ids)
			}, false, nil
		}
		r.logger().WarnContext(ctx, "text index lookup failed, falling back to LIKE", "error", err)
	}

	pattern := likePattern(q)
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(content) LIKE ?",
			pattern, pattern, pattern,
		)
	}, false, nil
}

func (r *PostRepo) Update(ctx context.Context, id uint, fields map[string]any) error {
	tags, hasTags, err := tagsField(fields)
	if err != nil {
		return err
	}

	if slug, ok, err := stringField(fields, "slug"); err != nil {
		return err
	} else if ok {
		fields["slug"] = normalizeSlug(slug)
	}

	var updates map[string]any
	if len(fields) == 0 && hasTags {
		updates = map[string]any{"updated_at": time.Now().UTC()}
	} else {
		updates, err = buildUpdates(fields, postUpdateColumns, time.Now().UTC())
		if err != nil {
			return err
		}
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Post{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return translateConflict(result.Error, "slug")
		}
		if result.RowsAffected == 0 {
			return apperr.ErrNoRecordsUpdated
		}
		if hasTags {
			return replaceTags(tx, id, tags)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if post, err := r.FindOneByID(ctx, id, false); err == nil {
		r.indexPost(ctx, post)
	}
	r.publish(ctx, "post_updated", id, "")
	return nil
}

func (r *PostRepo) SoftDelete(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNoRecordsUpdated
	}

	r.deleteFromIndex(ctx, id)
	r.publish(ctx, "post_deleted", id, "")
	return nil
}

func insertTags(tx *gorm.DB, postID uint, tags []string) error {
	for _, name := range tags {
		var tag models.PostTag
		if err := tx.
			Where(models.PostTag{PostID: postID, Name: name}).
			FirstOrCreate(&tag).Error; err != nil {
			return fmt.Errorf("insert tag %q: %w", name, err)
		}
	}
	return nil
}

// replaceTags makes the stored tag set equal to tags: rows outside the
// new set are removed, missing ones inserted.
func replaceTags(tx *gorm.DB, postID uint, tags []string) error {
	del := tx.Where("post_id = ?", postID)
	if len(tags) > 0 {
		del = del.Where("name NOT IN ?", tags)
	}
	if err := del.Delete(&models.PostTag{}).Error; err != nil {
		return fmt.Errorf("remove tags: %w", err)
	}
	return insertTags(tx, postID, tags)
}

func tagsField(fields map[string]any) ([]string, bool, error) {
	raw, ok := fields["tags"]
	if !ok {
		return nil, false, nil
	}
	delete(fields, "tags")

	tags, ok := raw.([]string)
	if !ok {
		return nil, false, fmt.Errorf("%w: field \"tags\" must be a list of strings", apperr.ErrInvalidPayload)
	}
	return normalizeTags(tags), true, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func (r *PostRepo) indexPost(ctx context.Context, post *models.Post) {
	if r.Index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Index.IndexPost(ctx, post); err != nil {
		r.logger().ErrorContext(ctx, "post indexing failed", "error", err, "postID", post.ID)
	}
}

func (r *PostRepo) deleteFromIndex(ctx context.Context, id uint) {
	if r.Index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Index.DeletePost(ctx, id); err != nil {
		r.logger().ErrorContext(ctx, "post index delete failed", "error", err, "postID", id)
	}
}

func (r *PostRepo) publish(ctx context.Context, eventType string, id uint, slug string) {
	if r.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	event := map[string]any{
		"type":   eventType,
		"postID": id,
	}
	if slug != "" {
		event["slug"] = slug
	}
	if err := r.Events.PublishEvent(ctx, "post_events", fmt.Sprint(id), event); err != nil {
		r.logger().ErrorContext(ctx, "kafka publish failed", "error", err, "event", eventType)
	}
}

func (r *PostRepo) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
