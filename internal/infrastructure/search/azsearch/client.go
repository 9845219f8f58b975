package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

const apiVersion = "2024-07-01"

// Client talks to an Azure AI Search index over its REST API. One index holds
// one chunk per document row, with an optional content vector for hybrid
// queries.
type Client struct {
	endpoint   string
	apiKey     string
	index      string
	httpClient *http.Client
}

func New(endpoint, apiKey, index string) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "azsearch", errors.New("search endpoint and api key are required"))
	}
	if strings.TrimSpace(index) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "azsearch", errors.New("search index name is required"))
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		index:      index,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type indexField struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Filterable          bool   `json:"filterable"`
	Sortable            bool   `json:"sortable"`
	Analyzer            string `json:"analyzer,omitempty"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfileName,omitempty"`
}

type indexDefinition struct {
	Name         string       `json:"name"`
	Fields       []indexField `json:"fields"`
	VectorSearch struct {
		Algorithms []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"algorithms"`
		Profiles []struct {
			Name      string `json:"name"`
			Algorithm string `json:"algorithm"`
		} `json:"profiles"`
	} `json:"vectorSearch"`
}

const (
	vectorDimensions = 1536
	vectorProfile    = "default-vector-profile"
	vectorAlgorithm  = "default-hnsw"
)

// EnsureIndex creates the search index or updates it in place when the schema
// drifted. Safe to call on every startup.
func (c *Client) EnsureIndex(ctx context.Context) error {
	def := indexDefinition{
		Name: c.index,
		Fields: []indexField{
			{Name: "id", Type: "Edm.String", Key: true, Filterable: true},
			{Name: "document_id", Type: "Edm.String", Filterable: true},
			{Name: "filename", Type: "Edm.String", Searchable: true, Filterable: true, Sortable: true},
			{Name: "content", Type: "Edm.String", Searchable: true, Analyzer: "standard.lucene"},
			{Name: "chunk_index", Type: "Edm.Int32", Filterable: true, Sortable: true},
			{Name: "page_number", Type: "Edm.Int32", Filterable: true, Sortable: true},
			{Name: "section", Type: "Edm.String", Searchable: true, Filterable: true},
			{Name: "file_type", Type: "Edm.String", Filterable: true},
			{
				Name:                "content_vector",
				Type:                "Collection(Edm.Single)",
				Searchable:          true,
				Dimensions:          vectorDimensions,
				VectorSearchProfile: vectorProfile,
			},
		},
	}
	def.VectorSearch.Algorithms = []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}{{Name: vectorAlgorithm, Kind: "hnsw"}}
	def.VectorSearch.Profiles = []struct {
		Name      string `json:"name"`
		Algorithm string `json:"algorithm"`
	}{{Name: vectorProfile, Algorithm: vectorAlgorithm}}

	return c.send(ctx, http.MethodPut, "", def, nil, "ensure_index")
}

type indexDocument struct {
	Action        string    `json:"@search.action"`
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	Filename      string    `json:"filename"`
	Content       string    `json:"content"`
	ChunkIndex    int       `json:"chunk_index"`
	PageNumber    int       `json:"page_number"`
	Section       string    `json:"section"`
	FileType      string    `json:"file_type"`
	ContentVector []float32 `json:"content_vector,omitempty"`
}

func (c *Client) IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(vectors) > 0 && len(vectors) != len(chunks) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}

	batch := make([]indexDocument, 0, len(chunks))
	for i, chunk := range chunks {
		row := indexDocument{
			Action:     "mergeOrUpload",
			ID:         fmt.Sprintf("%s-%d", doc.ID, i),
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Content:    chunk,
			ChunkIndex: i,
			FileType:   doc.FileType,
		}
		if len(vectors) > 0 {
			row.ContentVector = vectors[i]
		}
		batch = append(batch, row)
	}

	var response struct {
		Value []struct {
			Key    string `json:"key"`
			Status bool   `json:"status"`
		} `json:"value"`
	}
	if err := c.post(ctx, "/docs/index", map[string]any{"value": batch}, &response, "index"); err != nil {
		return err
	}
	for _, r := range response.Value {
		if !r.Status {
			return fmt.Errorf("azsearch index: document %s rejected", r.Key)
		}
	}
	return nil
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchRequest struct {
	Search        string        `json:"search"`
	Top           int           `json:"top"`
	VectorQueries []vectorQuery `json:"vectorQueries,omitempty"`
}

type searchRow struct {
	Score      float64 `json:"@search.score"`
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	PageNumber int     `json:"page_number"`
	Section    string  `json:"section"`
	FileType   string  `json:"file_type"`
}

// HybridSearch combines the lexical query with a vector query over the same
// index so either signal can surface a candidate.
func (c *Client) HybridSearch(ctx context.Context, query string, vector []float32, limit int) ([]domain.SearchHit, error) {
	request := searchRequest{
		Search: query,
		Top:    limit,
		VectorQueries: []vectorQuery{{
			Kind:   "vector",
			Vector: vector,
			Fields: "content_vector",
			K:      limit,
		}},
	}
	return c.search(ctx, request, "hybrid_search")
}

func (c *Client) TextSearch(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	return c.search(ctx, searchRequest{Search: query, Top: limit}, "text_search")
}

func (c *Client) search(ctx context.Context, request searchRequest, operation string) ([]domain.SearchHit, error) {
	var response struct {
		Value []searchRow `json:"value"`
	}
	if err := c.post(ctx, "/docs/search", request, &response, operation); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(response.Value))
	for _, row := range response.Value {
		hits = append(hits, domain.SearchHit{
			Document: domain.SearchDocument{
				ID:         row.ID,
				DocumentID: row.DocumentID,
				Filename:   row.Filename,
				Content:    row.Content,
				ChunkIndex: row.ChunkIndex,
				PageNumber: row.PageNumber,
				Section:    row.Section,
				FileType:   row.FileType,
			},
			Score: row.Score,
		})
	}
	return hits, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any, operation string) error {
	return c.send(ctx, http.MethodPost, path, payload, out, operation)
}

func (c *Client) send(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	url := fmt.Sprintf("%s/indexes/%s%s?api-version=%s", c.endpoint, c.index, path, apiVersion)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("azsearch %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.WrapError(domain.ErrConfiguration, operation, fmt.Errorf("azsearch status: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("azsearch %s status: %s", operation, resp.Status)
		}
		return fmt.Errorf("azsearch %s status: %s: %s", operation, resp.Status, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
