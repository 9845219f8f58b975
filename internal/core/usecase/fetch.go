package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

// CandidateFetcher fans a question out to every applicable retrieval strategy
// and merges the results. Each strategy's failure is isolated from the others;
// an error is returned only when every launched strategy failed.
type CandidateFetcher struct {
	embedder ports.Embedder
	search   ports.SearchIndex

	candidateCap int
	entityCap    int
}

func NewCandidateFetcher(embedder ports.Embedder, search ports.SearchIndex, candidateCap, entityCap int) *CandidateFetcher {
	if candidateCap <= 0 {
		candidateCap = 40
	}
	if entityCap <= 0 {
		entityCap = 10
	}
	return &CandidateFetcher{
		embedder:     embedder,
		search:       search,
		candidateCap: candidateCap,
		entityCap:    entityCap,
	}
}

type strategyResult struct {
	hits []domain.SearchHit
	err  error
}

// Fetch returns a deduplicated candidate list gathered from hybrid search
// (falling back to text search), plus an auxiliary entity-term search. The
// candidate cap is deliberately wider than the final selection so the ranker
// has room to work.
func (f *CandidateFetcher) Fetch(ctx context.Context, question string) ([]domain.SearchHit, error) {
	vector, err := f.embedder.EmbedQuery(ctx, question)
	if err != nil {
		// Vector-aware search is skipped entirely; lexical search still runs.
		slog.Warn("query embedding failed, degrading to text search", "error", err)
		vector = nil
	}

	var (
		wg      sync.WaitGroup
		primary strategyResult
		entity  strategyResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		primary = f.primarySearch(ctx, question, vector)
	}()

	terms := extractEntityTerms(question)
	if len(terms) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entity = f.entitySearch(ctx, terms)
		}()
	}

	wg.Wait()

	// Hybrid results are flattened first so first-occurrence-wins dedup keeps
	// the highest-priority source's copy.
	merged := make([]domain.SearchHit, 0, len(primary.hits)+len(entity.hits))
	merged = append(merged, primary.hits...)
	merged = append(merged, entity.hits...)
	merged = DedupHits(merged)

	if len(merged) == 0 && primary.err != nil {
		return nil, fmt.Errorf("all retrieval strategies failed: %w", primary.err)
	}
	return merged, nil
}

func (f *CandidateFetcher) primarySearch(ctx context.Context, question string, vector []float32) strategyResult {
	if len(vector) > 0 {
		hits, err := f.search.HybridSearch(ctx, question, vector, f.candidateCap)
		if err == nil {
			return strategyResult{hits: hits}
		}
		slog.Warn("hybrid search failed, falling back to text search", "error", err)
	}

	hits, err := f.search.TextSearch(ctx, question, f.candidateCap)
	if err != nil {
		return strategyResult{err: err}
	}
	return strategyResult{hits: hits}
}

func (f *CandidateFetcher) entitySearch(ctx context.Context, terms []string) strategyResult {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+term+`"`)
	}

	hits, err := f.search.TextSearch(ctx, strings.Join(quoted, " OR "), f.entityCap)
	if err != nil {
		// Auxiliary pass: a failure degrades to no extra candidates.
		slog.Warn("entity search failed", "error", err)
		return strategyResult{}
	}
	return strategyResult{hits: hits}
}

// DedupHits removes duplicates by document identity key, keeping the first
// occurrence. Idempotent: dedup(dedup(x)) == dedup(x).
func DedupHits(hits []domain.SearchHit) []domain.SearchHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		key := hit.Document.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, hit)
	}
	return out
}

var parentheticalPattern = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9-]+)\s*\(([^)]{1,40})\)`)

// Known short names that lexical scoring under-weights; a mention expands to
// the exact indexed phrase.
var acronymExpansions = map[string]string{
	"nor": "NOR (Platform)",
}

// extractEntityTerms pulls capitalized tokens and parenthetical phrases out of
// the question so proper nouns get a dedicated quoted-phrase search pass.
func extractEntityTerms(question string) []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0, 4)
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		terms = append(terms, term)
	}

	for _, m := range parentheticalPattern.FindAllStringSubmatch(question, -1) {
		add(m[1] + " (" + m[2] + ")")
	}

	for _, field := range strings.Fields(question) {
		token := strings.Trim(field, `.,!?;:"'()`)
		if len(token) < 2 || !isCapitalizedToken(token) {
			continue
		}
		if _, skip := stopwords[strings.ToLower(token)]; skip {
			continue
		}
		add(token)
	}

	for trigger, phrase := range acronymExpansions {
		if containsWord(strings.ToLower(question), trigger) {
			add(phrase)
		}
	}

	return terms
}

func isCapitalizedToken(token string) bool {
	first := rune(token[0])
	if first < 'A' || first > 'Z' {
		return false
	}
	for _, r := range token[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

func containsWord(haystack, word string) bool {
	for _, token := range splitAlphaNumLower(haystack) {
		if token == word {
			return true
		}
	}
	return false
}
