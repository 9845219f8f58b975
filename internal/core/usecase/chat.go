package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

const (
	defaultSessionID = "default"
	defaultTopK      = 5
	maxTopK          = 8

	noContextResponse = "I couldn't find any relevant information in the uploaded documents to answer your question."
)

// ChatUseCase runs the full question-answering pipeline: intent routing,
// candidate fan-out, relevance filtering, heuristic ranking, snippet
// construction, prompt composition, and the session history update.
type ChatUseCase struct {
	classifier *IntentClassifier
	fetcher    *CandidateFetcher
	relevance  *RelevanceFilter // nil disables the LLM relevance pass
	ranker     *DocumentRanker
	composer   *AnswerComposer
	sessions   ports.ConversationStore

	snippetOpts SnippetOptions
}

func NewChatUseCase(
	classifier *IntentClassifier,
	fetcher *CandidateFetcher,
	relevance *RelevanceFilter,
	ranker *DocumentRanker,
	composer *AnswerComposer,
	sessions ports.ConversationStore,
	snippetOpts SnippetOptions,
) *ChatUseCase {
	return &ChatUseCase{
		classifier:  classifier,
		fetcher:     fetcher,
		relevance:   relevance,
		ranker:      ranker,
		composer:    composer,
		sessions:    sessions,
		snippetOpts: snippetOpts.normalize(),
	}
}

// Ask answers one question. top bounds the snippet budget (1..8, default 5);
// sessionID keys the rolling history and defaults to "default".
func (uc *ChatUseCase) Ask(ctx context.Context, question string, top int, sessionID string) (*domain.ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}
	if top <= 0 {
		top = defaultTopK
	}
	if top > maxTopK {
		top = maxTopK
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = defaultSessionID
	}

	intent, canned := uc.classifier.Classify(question)
	if intent != domain.IntentDocumentQuestion {
		uc.recordTurns(sessionID, question, canned)
		return &domain.ChatAnswer{
			Question:  question,
			Response:  canned,
			SessionID: sessionID,
			Sources:   []domain.Source{},
			Intent:    intent,
		}, nil
	}

	hits, err := uc.fetcher.Fetch(ctx, question)
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return nil, err
		}
		// Transport failure degrades to a conversational no-context answer.
		slog.Error("candidate fetch failed", "error", err, "session_id", sessionID)
		uc.recordTurns(sessionID, question, noContextResponse)
		return uc.noContextAnswer(question, sessionID), nil
	}
	if len(hits) == 0 {
		uc.recordTurns(sessionID, question, noContextResponse)
		return uc.noContextAnswer(question, sessionID), nil
	}
	searchResults := len(hits)

	if uc.relevance != nil {
		hits = uc.relevance.Filter(ctx, question, hits)
	}

	ranked := uc.ranker.Rank(question, hits)

	opts := uc.snippetOpts
	if top < opts.MaxSnippets {
		opts.MaxSnippets = top
	}
	snippets := NewSnippetBuilder(opts).Build(question, ranked)
	if len(snippets) == 0 {
		uc.recordTurns(sessionID, question, noContextResponse)
		answer := uc.noContextAnswer(question, sessionID)
		answer.SearchResults = searchResults
		return answer, nil
	}

	history := uc.sessions.History(sessionID)
	response, grounded := uc.composer.Compose(ctx, question, snippets, history)

	sources := make([]domain.Source, 0, len(snippets))
	if grounded {
		for _, s := range snippets {
			sources = append(sources, domain.Source{
				ID:       s.ID,
				Filename: s.Filename,
				Page:     s.Page,
				Section:  s.Section,
				Preview:  sourcePreview(s.Text),
			})
		}
	}

	uc.recordTurns(sessionID, question, response)

	return &domain.ChatAnswer{
		Question:      question,
		Response:      response,
		SessionID:     sessionID,
		Sources:       sources,
		SearchResults: searchResults,
		Intent:        domain.IntentDocumentQuestion,
	}, nil
}

func (uc *ChatUseCase) noContextAnswer(question, sessionID string) *domain.ChatAnswer {
	return &domain.ChatAnswer{
		Question:  question,
		Response:  noContextResponse,
		SessionID: sessionID,
		Sources:   []domain.Source{},
		Intent:    domain.IntentDocumentQuestion,
	}
}

func (uc *ChatUseCase) recordTurns(sessionID, question, response string) {
	now := time.Now().UTC()
	uc.sessions.Append(sessionID,
		domain.ConversationTurn{Role: domain.RoleUser, Content: question, Timestamp: now},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: response, Timestamp: now},
	)
}

func sourcePreview(text string) string {
	const previewChars = 200
	preview := collapseWhitespace(text)
	if len(preview) <= previewChars {
		return preview
	}
	return truncateText(preview, previewChars) + "..."
}
