package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	osx "github.com/dmitrymomot/quill/pkg/opensearch"
)

// SearchIndexer keeps a full-text index of posts. Search returns matching
// post ids, best match first, and the total number of hits.
type SearchIndexer interface {
	Index(ctx context.Context, p Post) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, offset, limit int) ([]int64, int, error)
}

// PostIndexMapping is the index body used by EnsureIndex.
const PostIndexMapping = `{
  "mappings": {
    "properties": {
      "title":      {"type": "text"},
      "slug":       {"type": "keyword"},
      "body":       {"type": "text"},
      "author_id":  {"type": "long"},
      "created_at": {"type": "date"}
    }
  }
}`

// OpenSearchIndexer indexes posts in an OpenSearch index.
type OpenSearchIndexer struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchIndexer creates the index if needed.
func NewOpenSearchIndexer(ctx context.Context, client *opensearch.Client, index string) (*OpenSearchIndexer, error) {
	if err := osx.EnsureIndex(ctx, client, index, PostIndexMapping); err != nil {
		return nil, err
	}
	return &OpenSearchIndexer{client: client, index: index}, nil
}

type postDocument struct {
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Body      string    `json:"body"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (x *OpenSearchIndexer) Index(ctx context.Context, p Post) error {
	body, err := json.Marshal(postDocument{
		Title:     p.Title,
		Slug:      p.Slug,
		Body:      p.Body,
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("blog: encode post document: %w", err)
	}

	res, err := x.client.Index(x.index, bytes.NewReader(body),
		x.client.Index.WithDocumentID(strconv.FormatInt(p.ID, 10)),
		x.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.Join(ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrSearchFailed, fmt.Errorf("index post %d: %s", p.ID, res.Status()))
	}
	return nil
}

func (x *OpenSearchIndexer) Remove(ctx context.Context, id int64) error {
	res, err := x.client.Delete(x.index, strconv.FormatInt(id, 10), x.client.Delete.WithContext(ctx))
	if err != nil {
		return errors.Join(ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return errors.Join(ErrSearchFailed, fmt.Errorf("remove post %d: %s", id, res.Status()))
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func (x *OpenSearchIndexer) Search(ctx context.Context, query string, offset, limit int) ([]int64, int, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "body"},
			},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("blog: encode search query: %w", err)
	}

	opts := []func(*opensearchapi.SearchRequest){
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
		x.client.Search.WithFrom(offset),
		x.client.Search.WithContext(ctx),
	}
	if limit > 0 {
		opts = append(opts, x.client.Search.WithSize(limit))
	}

	res, err := x.client.Search(opts...)
	if err != nil {
		return nil, 0, errors.Join(ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, errors.Join(ErrSearchFailed, fmt.Errorf("search posts: %s", res.Status()))
	}

	var out searchResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 10<<20)).Decode(&out); err != nil {
		return nil, 0, errors.Join(ErrSearchFailed, err)
	}

	ids := make([]int64, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, out.Hits.Total.Value, nil
}
