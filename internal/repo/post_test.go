package repo

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndemidenko/pressroom/internal/apperr"
	"github.com/ndemidenko/pressroom/internal/models"
)

type postEnv struct {
	Posts      *PostRepo
	AuthorID   uint
	CategoryID uint
}

type capturePublisher struct {
	topics []string
	types  []string
}

func (p *capturePublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.topics = append(p.topics, topic)
	if m, ok := event.(map[string]any); ok {
		if typ, ok := m["type"].(string); ok {
			p.types = append(p.types, typ)
		}
	}
	return nil
}

func newPostEnv(t *testing.T) *postEnv {
	t.Helper()
	gdb := initTestDB(t)

	users := &UserRepo{DB: gdb, BcryptCost: bcrypt.MinCost}
	author, err := users.Create(context.Background(), CreateUserInput{
		FirstName: "Post",
		LastName:  "Author",
		Email:     "author@example.com",
		Password:  "longenough1",
	})
	require.NoError(t, err)

	categories := &CategoryRepo{DB: gdb}
	category, err := categories.Create(context.Background(), CreateCategoryInput{Name: "Essays"})
	require.NoError(t, err)

	return &postEnv{
		Posts:      &PostRepo{DB: gdb},
		AuthorID:   author.ID,
		CategoryID: category.ID,
	}
}

func (e *postEnv) create(t *testing.T, slug string, mutate func(*CreatePostInput)) *models.Post {
	t.Helper()
	in := CreatePostInput{
		AuthorID:    e.AuthorID,
		Title:       "A title",
		Description: "A description",
		Content:     "Body text",
		CategoryID:  e.CategoryID,
		Slug:        slug,
	}
	if mutate != nil {
		mutate(&in)
	}
	post, err := e.Posts.Create(context.Background(), in)
	require.NoError(t, err)
	return post
}

func tagNames(tags []models.PostTag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	sort.Strings(names)
	return names
}

func TestCreatePostDefaultsAndTags(t *testing.T) {
	env := newPostEnv(t)

	post := env.create(t, "My-First-Post", func(in *CreatePostInput) {
		in.Tags = []string{"go", "cms", "go", "  "}
	})

	require.Equal(t, "my-first-post", post.Slug)
	require.Equal(t, "default", post.Template)
	require.False(t, post.Published)
	require.Equal(t, []string{"cms", "go"}, tagNames(post.Tags))
	require.Equal(t, "author@example.com", post.Author.Email)
	require.Equal(t, "Essays", post.Category.Name)
}

func TestCreatePostMissingFields(t *testing.T) {
	env := newPostEnv(t)

	_, err := env.Posts.Create(context.Background(), CreatePostInput{
		AuthorID:   env.AuthorID,
		CategoryID: env.CategoryID,
		Title:      "No content or slug",
	})
	require.ErrorIs(t, err, apperr.ErrInvalidPayload)
}

func TestPostSlugConflictDiffersOnlyByCase(t *testing.T) {
	env := newPostEnv(t)
	env.create(t, "unique-slug", nil)

	_, err := env.Posts.Create(context.Background(), CreatePostInput{
		AuthorID:   env.AuthorID,
		CategoryID: env.CategoryID,
		Title:      "Second",
		Content:    "Body",
		Slug:       "UNIQUE-SLUG",
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	var conflict *apperr.Conflict
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "slug", conflict.Field)
}

func TestPostSearchFiltersAndPagination(t *testing.T) {
	env := newPostEnv(t)
	for i := 0; i < 5; i++ {
		env.create(t, fmt.Sprintf("published-%d", i), func(in *CreatePostInput) {
			in.Published = true
			in.Content = "searchable body"
		})
	}
	env.create(t, "draft-post", func(in *CreatePostInput) {
		in.Template = "landing"
	})

	posts, total, err := env.Posts.Search(context.Background(),
		PostFilter{Published: boolPtr(true)},
		SearchOptions{Limit: intPtr(2), Offset: intPtr(0)},
	)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.EqualValues(t, 5, total)

	posts, total, err = env.Posts.Search(context.Background(),
		PostFilter{Template: "landing"}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.EqualValues(t, 1, total)
	require.Equal(t, "draft-post", posts[0].Slug)

	// Free-text over content without a configured index uses LIKE.
	_, total, err = env.Posts.Search(context.Background(),
		PostFilter{Query: "SEARCHABLE"}, SearchOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)

	_, total, err = env.Posts.Search(context.Background(),
		PostFilter{AuthorID: uintPtr(env.AuthorID), CategoryID: uintPtr(env.CategoryID)},
		SearchOptions{},
	)
	require.NoError(t, err)
	require.EqualValues(t, 6, total)
}

func TestPostUpdateReplacesTags(t *testing.T) {
	env := newPostEnv(t)
	post := env.create(t, "tagged", func(in *CreatePostInput) {
		in.Tags = []string{"old", "keep"}
	})

	err := env.Posts.Update(context.Background(), post.ID, map[string]any{
		"title": "Updated title",
		"tags":  []string{"keep", "new"},
	})
	require.NoError(t, err)

	updated, err := env.Posts.FindOneByID(context.Background(), post.ID, false)
	require.NoError(t, err)
	require.Equal(t, "Updated title", updated.Title)
	require.Equal(t, []string{"keep", "new"}, tagNames(updated.Tags))

	// Omitting tags leaves the set untouched.
	require.NoError(t, env.Posts.Update(context.Background(), post.ID, map[string]any{
		"published": true,
	}))
	unchanged, err := env.Posts.FindOneByID(context.Background(), post.ID, false)
	require.NoError(t, err)
	require.Equal(t, []string{"keep", "new"}, tagNames(unchanged.Tags))
}

func TestPostUpdateErrors(t *testing.T) {
	env := newPostEnv(t)
	post := env.create(t, "erroneous", nil)

	require.ErrorIs(t, env.Posts.Update(context.Background(), post.ID, map[string]any{}), apperr.ErrInvalidPayload)
	require.ErrorIs(t, env.Posts.Update(context.Background(), post.ID, map[string]any{"author_id": 1}), apperr.ErrInvalidPayload)
	require.ErrorIs(t, env.Posts.Update(context.Background(), 9999, map[string]any{"title": "X"}), apperr.ErrNoRecordsUpdated)
}

func TestPostSoftDeleteVisibility(t *testing.T) {
	env := newPostEnv(t)
	post := env.create(t, "vanishing", nil)

	require.NoError(t, env.Posts.SoftDelete(context.Background(), post.ID))

	_, err := env.Posts.FindOneByID(context.Background(), post.ID, false)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	deleted, err := env.Posts.FindOneByID(context.Background(), post.ID, true)
	require.NoError(t, err)
	require.True(t, deleted.DeletedAt.Valid)
}

func TestPostEventsPublished(t *testing.T) {
	env := newPostEnv(t)
	pub := &capturePublisher{}
	env.Posts.Events = pub

	post := env.create(t, "observed", nil)
	require.NoError(t, env.Posts.Update(context.Background(), post.ID, map[string]any{"title": "Seen"}))
	require.NoError(t, env.Posts.SoftDelete(context.Background(), post.ID))

	require.Equal(t, []string{"post_created", "post_updated", "post_deleted"}, pub.types)
	for _, topic := range pub.topics {
		require.Equal(t, "post_events", topic)
	}
}
