package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

// SearchUseCase is the raw search passthrough behind /v1/search. No ranking
// heuristics apply here; callers get the search engine's own ordering.
type SearchUseCase struct {
	search ports.SearchIndex
}

func NewSearchUseCase(search ports.SearchIndex) *SearchUseCase {
	return &SearchUseCase{search: search}
}

func (uc *SearchUseCase) Search(ctx context.Context, query string, top int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}
	if top <= 0 {
		top = defaultTopK
	}

	hits, err := uc.search.TextSearch(ctx, query, top)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return hits, nil
}
