package usecase

import (
	"sort"
	"strings"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

type SnippetOptions struct {
	MaxSnippets        int
	MaxCharsPerSnippet int
	MinChars           int
	PerDocCap          int
	// FlattenMode replaces round-robin diversity selection with a global
	// top-sort of the capped groups. Alternate policy, not the default.
	FlattenMode bool
}

func (o SnippetOptions) normalize() SnippetOptions {
	if o.MaxSnippets <= 0 {
		o.MaxSnippets = 8
	}
	if o.MaxCharsPerSnippet <= 0 {
		o.MaxCharsPerSnippet = 1000
	}
	if o.MinChars <= 0 {
		o.MinChars = 120
	}
	if o.PerDocCap <= 0 {
		o.PerDocCap = 3
	}
	return o
}

// SnippetBuilder converts ranked documents into a bounded, deduplicated,
// source-diverse set of citable text snippets.
type SnippetBuilder struct {
	opts SnippetOptions
}

func NewSnippetBuilder(opts SnippetOptions) *SnippetBuilder {
	return &SnippetBuilder{opts: opts.normalize()}
}

// Build produces at most MaxSnippets snippets with stable 1-based ids. For
// URL-flavored questions that would otherwise come back empty, one micro
// snippet is injected from any candidate line adjacent to a URL or IP, so
// URL-seeking questions never return empty-handed when a URL exists anywhere
// in the pool.
func (b *SnippetBuilder) Build(question string, ranked []domain.ScoredCandidate) []domain.Snippet {
	urlFlavored := isURLFlavored(question)

	minChars := b.opts.MinChars
	if urlFlavored && minChars > 40 {
		minChars = 40
	}

	kept := b.filterAndDedup(ranked, minChars)
	groups := groupByFilename(kept, b.opts.PerDocCap)

	var selected []domain.Snippet
	if b.opts.FlattenMode {
		selected = flattenSelect(groups, b.opts.MaxSnippets)
	} else {
		selected = roundRobinSelect(groups, b.opts.MaxSnippets)
	}

	if len(selected) == 0 && urlFlavored {
		if s, ok := injectEndpointSnippet(ranked); ok {
			selected = append(selected, s)
		}
	}

	for i := range selected {
		selected[i].ID = i + 1
	}
	return selected
}

func (b *SnippetBuilder) filterAndDedup(ranked []domain.ScoredCandidate, minChars int) []domain.Snippet {
	// Hash collision keeps the copy with the higher source score.
	byHash := make(map[uint64]domain.Snippet, len(ranked))
	order := make([]uint64, 0, len(ranked))

	for _, c := range ranked {
		doc := c.Hit.Document
		text := truncateText(strings.TrimSpace(doc.Content), b.opts.MaxCharsPerSnippet)
		if text == "" {
			continue
		}
		// URL- or IP-bearing snippets are exempt from the length filter: short
		// reference cards are exactly what endpoint questions need.
		if len(text) < minChars && !containsURL(text) && !containsIP(text) {
			continue
		}

		s := domain.Snippet{
			Filename: doc.Filename,
			Page:     doc.PageNumber,
			Section:  doc.Section,
			Text:     text,
			Score:    c.Hit.Score,
		}

		h := snippetHash(text)
		existing, dup := byHash[h]
		if !dup {
			byHash[h] = s
			order = append(order, h)
			continue
		}
		if s.Score > existing.Score {
			byHash[h] = s
		}
	}

	out := make([]domain.Snippet, 0, len(order))
	for _, h := range order {
		out = append(out, byHash[h])
	}
	return out
}

type snippetGroup struct {
	filename string
	items    []domain.Snippet
}

func groupByFilename(snippets []domain.Snippet, perDocCap int) []snippetGroup {
	index := make(map[string]int)
	groups := make([]snippetGroup, 0, len(snippets))
	for _, s := range snippets {
		i, ok := index[s.Filename]
		if !ok {
			i = len(groups)
			index[s.Filename] = i
			groups = append(groups, snippetGroup{filename: s.Filename})
		}
		groups[i].items = append(groups[i].items, s)
	}

	for i := range groups {
		items := groups[i].items
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].Score > items[b].Score
		})
		if len(items) > perDocCap {
			groups[i].items = items[:perDocCap]
		}
	}
	return groups
}

// roundRobinSelect takes one snippet per document per round so no single
// document floods the final set.
func roundRobinSelect(groups []snippetGroup, maxSnippets int) []domain.Snippet {
	out := make([]domain.Snippet, 0, maxSnippets)
	for round := 0; len(out) < maxSnippets; round++ {
		progressed := false
		for _, g := range groups {
			if round >= len(g.items) {
				continue
			}
			out = append(out, g.items[round])
			progressed = true
			if len(out) == maxSnippets {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

func flattenSelect(groups []snippetGroup, maxSnippets int) []domain.Snippet {
	out := make([]domain.Snippet, 0, maxSnippets)
	for _, g := range groups {
		out = append(out, g.items...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	if len(out) > maxSnippets {
		out = out[:maxSnippets]
	}
	return out
}

// injectEndpointSnippet scans the pre-filter candidate pool for a name-like
// line with a URL, IPv4 literal, or bare hostname within the next few lines
// and builds one micro snippet from that window.
func injectEndpointSnippet(ranked []domain.ScoredCandidate) (domain.Snippet, bool) {
	const window = 5

	for _, c := range ranked {
		doc := c.Hit.Document
		lines := nonBlankLines(doc.Content)
		for i, line := range lines {
			if !namePattern.MatchString(line) {
				continue
			}
			for j := 1; j <= window && i+j < len(lines); j++ {
				next := lines[i+j]
				if containsURL(next) || containsIP(next) || containsHost(next) {
					return domain.Snippet{
						Filename: doc.Filename,
						Page:     doc.PageNumber,
						Section:  doc.Section,
						Text:     line + "\n" + next,
						Score:    injectedSnippetScore,
					}, true
				}
				if namePattern.MatchString(next) {
					break
				}
			}
		}
	}
	return domain.Snippet{}, false
}

// Injected endpoint snippets outrank anything the search engine scored.
const injectedSnippetScore = 1000.0

func snippetHash(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h = h*31 + uint64(s[i])
	}
	return h
}
