// Package search keeps an Elasticsearch mirror of posts and resolves
// free-text queries to post ids. It is a lookup index only: result
// ordering is decided by the SQL layer, never by relevance scores.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/ndemidenko/pressroom/internal/config"
	"github.com/ndemidenko/pressroom/internal/models"
)

const DefaultPostIndex = "posts"

func NewClient(cfg *config.Config) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.ES_URL},
		Username:  cfg.ES_USER,
		Password:  cfg.ES_PASSWORD,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return client, nil
}

type PostIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewPostIndex(es *elasticsearch.Client) *PostIndex {
	return &PostIndex{ES: es, Index: DefaultPostIndex}
}

type postDocument struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

func (i *PostIndex) IndexPost(ctx context.Context, post *models.Post) error {
	doc := postDocument{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Content:     post.Content,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode post document: %w", err)
	}

	res, err := i.ES.Index(
		i.Index,
		&buf,
		i.ES.Index.WithDocumentID(strconv.FormatUint(uint64(post.ID), 10)),
		i.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index post: %s", res.Status())
	}
	return nil
}

func (i *PostIndex) DeletePost(ctx context.Context, id uint) error {
	res, err := i.ES.Delete(
		i.Index,
		strconv.FormatUint(uint64(id), 10),
		i.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete post document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete post document: %s", res.Status())
	}
	return nil
}

// MatchIDs returns the ids of posts whose title, description or content
// match the query. The match runs in filter context, so no relevance
// score is produced or consumed.
func (i *PostIndex) MatchIDs(ctx context.Context, query string, max int) ([]uint, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title", "description", "content"},
					},
				},
			},
		},
		"size":    max,
		"_source": []string{"id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search posts: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source postDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	ids := make([]uint, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		ids[n] = hit.Source.ID
	}
	return ids, nil
}
