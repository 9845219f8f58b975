package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

const answerSystemPrompt = `You are an internal knowledge assistant. Answer strictly from the provided snippets.
Rules:
- Use only facts found in the snippets. Do not use outside knowledge.
- Cite every factual claim with the snippet id in the form [#N].
- Prefer short bullet points over paragraphs.
- If the snippets do not contain enough information, say so explicitly instead of guessing.`

const apologyResponse = "I'm sorry, I ran into a problem while generating the answer. Please try again in a moment."

// Hedging phrases in the model output downgrade the answer to non-grounded so
// the caller can suppress citations. A heuristic safety net, not a guarantee.
var hedgingPhrases = []string{
	"need more information",
	"please provide",
	"not enough information",
	"insufficient context",
	"couldn't find",
	"could not find",
	"unable to determine",
	"don't have enough",
	"do not have enough",
}

type ComposerOptions struct {
	HistoryTurns     int
	HistoryTurnChars int
	MaxTokens        int
	Temperature      float64
	Timeout          time.Duration
}

func (o ComposerOptions) normalize() ComposerOptions {
	if o.HistoryTurns <= 0 {
		o.HistoryTurns = 6
	}
	if o.HistoryTurnChars <= 0 {
		o.HistoryTurnChars = 300
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 500
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.3
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// AnswerComposer assembles the final prompt from snippets, extracted endpoint
// pairs, and recent history, and delegates to the language-model collaborator.
type AnswerComposer struct {
	model ports.ChatModel
	opts  ComposerOptions
}

func NewAnswerComposer(model ports.ChatModel, opts ComposerOptions) *AnswerComposer {
	return &AnswerComposer{model: model, opts: opts.normalize()}
}

// Compose returns the assistant text and whether the answer should be treated
// as grounded in the snippets. A failed model call is recoverable: it yields
// an apology string, never an error.
func (c *AnswerComposer) Compose(
	ctx context.Context,
	question string,
	snippets []domain.Snippet,
	history []domain.ConversationTurn,
) (string, bool) {
	userPrompt := c.buildUserPrompt(question, snippets, history)

	answer, err := c.model.CompleteChat(ctx, answerSystemPrompt, userPrompt, c.opts.MaxTokens, c.opts.Temperature, c.opts.Timeout)
	if err != nil {
		slog.Error("chat completion failed", "error", err)
		return apologyResponse, false
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return apologyResponse, false
	}
	return answer, !isHedging(answer)
}

func (c *AnswerComposer) buildUserPrompt(question string, snippets []domain.Snippet, history []domain.ConversationTurn) string {
	var b strings.Builder

	if pairs := extractEndpointPairs(snippets); len(pairs) > 0 {
		b.WriteString("Known service endpoints extracted from the snippets:\n")
		for _, p := range pairs {
			b.WriteString("- ")
			b.WriteString(p.Name)
			b.WriteString(": ")
			b.WriteString(p.Endpoint)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Snippets:\n")
	for _, s := range snippets {
		b.WriteString(formatSnippetHeader(s))
		b.WriteString("\n")
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}

	if block := c.historyBlock(history); block != "" {
		b.WriteString("Recent conversation:\n")
		b.WriteString(block)
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func formatSnippetHeader(s domain.Snippet) string {
	header := fmt.Sprintf("[#%d] (%s", s.ID, s.Filename)
	if s.Page > 0 {
		header += fmt.Sprintf(" p%d", s.Page)
	}
	if s.Section != "" {
		header += " §" + s.Section
	}
	return header + ")"
}

func (c *AnswerComposer) historyBlock(history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > c.opts.HistoryTurns {
		history = history[len(history)-c.opts.HistoryTurns:]
	}

	var b strings.Builder
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(truncateText(collapseWhitespace(turn.Content), c.opts.HistoryTurnChars))
		b.WriteString("\n")
	}
	return b.String()
}

func isHedging(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

type endpointPair struct {
	Name     string
	Endpoint string
}

// extractEndpointPairs finds "service name -> endpoint" pairings in snippet
// text: a name-like line immediately followed, within a few lines, by a URL,
// an IPv4 literal, or a bare hostname.
func extractEndpointPairs(snippets []domain.Snippet) []endpointPair {
	const window = 5

	seen := make(map[string]struct{})
	pairs := make([]endpointPair, 0, 4)

	for _, s := range snippets {
		lines := nonBlankLines(s.Text)
		for i, line := range lines {
			if !namePattern.MatchString(line) {
				continue
			}
			for j := 1; j <= window && i+j < len(lines); j++ {
				next := lines[i+j]
				endpoint := ""
				if m := urlPattern.FindString(next); m != "" {
					endpoint = m
				} else if m := ipPattern.FindString(next); m != "" {
					endpoint = m
				} else if m := hostPattern.FindString(next); m != "" {
					endpoint = m
				}
				if endpoint != "" {
					key := strings.ToLower(line + "|" + endpoint)
					if _, dup := seen[key]; !dup {
						seen[key] = struct{}{}
						pairs = append(pairs, endpointPair{Name: line, Endpoint: endpoint})
					}
					break
				}
				if namePattern.MatchString(next) {
					break
				}
			}
		}
	}
	return pairs
}
