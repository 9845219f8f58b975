package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

const relevanceSystemPrompt = `You are a precise relevance classifier for a retrieval-augmented system.
Return strict JSON matching this schema:
{"results":[{"docId":number,"decision":"RELEVANT"|"NOT_RELEVANT","score":number,"reason":string}]}
Rules:
- "score" is in [0,1] and reflects how likely the document helps answer the question.
- Keep "reason" short (at most 12 words).
- Do not include any fields besides "results".`

type RelevanceOptions struct {
	BatchSize      int
	Concurrency    int
	MinKeepScore   float64
	MaxCharsPerDoc int
}

func (o RelevanceOptions) normalize() RelevanceOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 4
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 3
	}
	if o.MinKeepScore <= 0 {
		o.MinKeepScore = 0.5
	}
	if o.MaxCharsPerDoc <= 0 {
		o.MaxCharsPerDoc = 1000
	}
	return o
}

// RelevanceFilter is an optional LLM pass between fetching and ranking that
// drops candidates the model judges unhelpful. Failures never abort the
// pipeline: a failed batch passes its documents through unfiltered.
type RelevanceFilter struct {
	model ports.ChatModel
	opts  RelevanceOptions
}

func NewRelevanceFilter(model ports.ChatModel, opts RelevanceOptions) *RelevanceFilter {
	return &RelevanceFilter{model: model, opts: opts.normalize()}
}

type relevanceVerdict struct {
	decided bool
	keep    bool
	score   float64
}

// Filter classifies candidates in concurrent batches and keeps the ones judged
// relevant, re-ordered by blended search-plus-LLM score. Documents from failed
// or incomplete batches are kept as-is.
func (f *RelevanceFilter) Filter(ctx context.Context, question string, hits []domain.SearchHit) []domain.SearchHit {
	if len(hits) == 0 || f.model == nil {
		return hits
	}

	type item struct {
		docID    int
		text     string
		filename string
	}
	items := make([]item, 0, len(hits))
	for i, hit := range hits {
		text := truncateText(collapseWhitespace(hit.Document.Content), f.opts.MaxCharsPerDoc)
		if text == "" {
			continue
		}
		items = append(items, item{docID: i, text: text, filename: hit.Document.Filename})
	}
	if len(items) == 0 {
		return hits
	}

	verdicts := make([]relevanceVerdict, len(hits))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, f.opts.Concurrency)
	)
	for start := 0; start < len(items); start += f.opts.BatchSize {
		end := start + f.opts.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var b strings.Builder
			fmt.Fprintf(&b, "Question: %q\n\nClassify each document for relevance.\n\nDocuments:\n", question)
			for _, it := range batch {
				fmt.Fprintf(&b, "- docId: %d, filename: %s\n  text: %q\n\n", it.docID, it.filename, it.text)
			}

			raw, err := f.model.CompleteJSON(ctx, relevanceSystemPrompt, b.String())
			if err != nil {
				slog.Warn("relevance batch failed, passing documents through", "error", err)
				return
			}

			var parsed struct {
				Results []struct {
					DocID    int     `json:"docId"`
					Decision string  `json:"decision"`
					Score    float64 `json:"score"`
				} `json:"results"`
			}
			if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
				slog.Warn("relevance batch returned malformed json", "error", err)
				return
			}

			mu.Lock()
			for _, r := range parsed.Results {
				if r.DocID < 0 || r.DocID >= len(verdicts) {
					continue
				}
				score := r.Score
				if score < 0 {
					score = 0
				}
				if score > 1 {
					score = 1
				}
				verdicts[r.DocID] = relevanceVerdict{
					decided: true,
					keep:    strings.EqualFold(r.Decision, "RELEVANT") && score >= f.opts.MinKeepScore,
					score:   score,
				}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	type scored struct {
		hit   domain.SearchHit
		blend float64
	}
	kept := make([]scored, 0, len(hits))
	for i, hit := range hits {
		v := verdicts[i]
		if v.decided && !v.keep {
			continue
		}
		kept = append(kept, scored{hit: hit, blend: hit.Score + v.score})
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].blend > kept[b].blend
	})

	out := make([]domain.SearchHit, 0, len(kept))
	for _, s := range kept {
		out = append(out, s.hit)
	}
	return out
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
