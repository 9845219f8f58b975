package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

// RankerOptions are the tuning knobs of the rescoring funnel. Zero values fall
// back to the defaults the heuristics were calibrated with.
type RankerOptions struct {
	TrackerPenalty     float64
	AuthoritativeBoost float64
	TopRankedCount     int
	FinalCount         int
}

func (o RankerOptions) normalize() RankerOptions {
	if o.TrackerPenalty <= 0 {
		o.TrackerPenalty = 0.05
	}
	if o.AuthoritativeBoost <= 0 {
		o.AuthoritativeBoost = 5.0
	}
	if o.TopRankedCount <= 0 {
		o.TopRankedCount = 20
	}
	if o.FinalCount <= 0 {
		o.FinalCount = 12
	}
	return o
}

// DocumentRanker reorders deduplicated search hits with domain heuristics and
// preserves must-keep documents ahead of truncation. It never silently drops a
// document that textually contains the question, as long as that document also
// clears the top-ranked bar.
type DocumentRanker struct {
	opts RankerOptions
}

func NewDocumentRanker(opts RankerOptions) *DocumentRanker {
	return &DocumentRanker{opts: opts.normalize()}
}

// Issue-tracker exports are recognized by their browse-URL signature
// (host/browse/KEY-123). Ticket content is usually noise next to authoritative
// policy or reference documents, so it is suppressed structurally instead of
// trusting relevance scoring to bury it.
var trackerPattern = regexp.MustCompile(`(?i)\b[a-z0-9.-]+\.[a-z]{2,}/browse/[A-Z][A-Z0-9]{1,9}-\d+\b`)

// ClassifySource tags where a chunk's text came from for scoring purposes.
func ClassifySource(filename, content string) domain.SourceKind {
	if trackerPattern.MatchString(filename) || trackerPattern.MatchString(content) {
		return domain.SourceTracker
	}
	if filename == "" && content == "" {
		return domain.SourceUnknown
	}
	return domain.SourceAuthoritative
}

// Exact-match special cases: reference pages whose titles rarely share tokens
// with the questions that need them.
var mustKeepSubstrings = []string{
	"application list",
	"nor (platform)",
}

// Rank runs the per-candidate scoring pipeline and the selection funnel.
// Preservation happens before truncation: must-keep and URL-flagged documents
// that also rank inside the top-ranked set are unioned ahead of the base
// selection. An exact match buried below the top-ranked cutoff is not force
// included; unlimited preservation could flood the prompt.
func (r *DocumentRanker) Rank(question string, hits []domain.SearchHit) []domain.ScoredCandidate {
	if len(hits) == 0 {
		return nil
	}

	urlFlavored := isURLFlavored(question)
	tokens := questionTokens(question)

	candidates := make([]domain.ScoredCandidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, r.score(hit, tokens, urlFlavored))
	}
	sortCandidates(candidates)

	topRanked := candidates
	if len(topRanked) > r.opts.TopRankedCount {
		topRanked = topRanked[:r.opts.TopRankedCount]
	}
	base := candidates
	if len(base) > r.opts.FinalCount {
		base = base[:r.opts.FinalCount]
	}

	final := make([]domain.ScoredCandidate, 0, len(base)+len(topRanked))
	if urlFlavored {
		for _, c := range topRanked {
			if c.HasURL || c.HasIP || c.IsCompactRecord {
				final = append(final, c)
			}
		}
	}
	for _, c := range topRanked {
		if c.HasExactMatch {
			final = append(final, c)
		}
	}
	final = append(final, base...)

	return dedupCandidates(final)
}

func (r *DocumentRanker) score(hit domain.SearchHit, tokens []string, urlFlavored bool) domain.ScoredCandidate {
	doc := hit.Document
	content := doc.Content
	filename := doc.Filename

	c := domain.ScoredCandidate{Hit: hit}
	c.HasURL = containsURL(content)
	c.HasIP = containsIP(content)
	c.IsPenalizedSource = ClassifySource(filename, content) == domain.SourceTracker
	c.HasExactMatch = hasExactMatch(tokens, content, filename)
	if urlFlavored && (c.HasURL || c.HasIP) && len(nonBlankLines(content)) <= 8 {
		// Short reference-card chunks that a word-count heuristic would discard.
		c.IsCompactRecord = true
	}

	adjusted := hit.Score
	if c.IsPenalizedSource {
		adjusted *= r.opts.TrackerPenalty
	} else {
		adjusted *= r.opts.AuthoritativeBoost
	}
	adjusted *= contentQualityMultiplier(content)
	adjusted *= fileTypeMultiplier(doc)

	c.AdjustedScore = adjusted
	return c
}

// contentQualityMultiplier rewards substantive prose over link-farm or
// navigation-heavy chunks.
func contentQualityMultiplier(content string) float64 {
	words := len(strings.Fields(content))
	noise := len(urlPattern.FindAllString(content, -1)) + len(downloadPattern.FindAllString(content, -1))
	if noise < 1 {
		noise = 1
	}

	quality := float64(words) / float64(noise)
	if looksLikePolicy(content) {
		quality *= 2.0
	}
	return quality
}

// fileTypeMultiplier encodes the empirical authority ranking of source
// formats: PDFs and Word documents over wiki exports.
func fileTypeMultiplier(doc domain.SearchDocument) float64 {
	fileType := strings.ToLower(doc.FileType)
	if fileType == "" {
		if i := strings.LastIndex(doc.Filename, "."); i >= 0 {
			fileType = strings.ToLower(doc.Filename[i+1:])
		}
	}

	switch fileType {
	case "pdf":
		return 2.0
	case "doc", "docx":
		return 1.8
	case "htm", "html":
		return 0.7
	}
	if strings.Contains(strings.ToLower(doc.Filename), "wiki") {
		return 0.7
	}
	return 1.0
}

func hasExactMatch(tokens []string, content, filename string) bool {
	lowerContent := strings.ToLower(content)
	lowerFilename := strings.ToLower(filename)
	for _, token := range tokens {
		if strings.Contains(lowerContent, token) || strings.Contains(lowerFilename, token) {
			return true
		}
	}
	for _, sub := range mustKeepSubstrings {
		if strings.Contains(lowerContent, sub) || strings.Contains(lowerFilename, sub) {
			return true
		}
	}
	return false
}

func sortCandidates(candidates []domain.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.AdjustedScore != b.AdjustedScore {
			return a.AdjustedScore > b.AdjustedScore
		}
		if a.Hit.Document.ID != b.Hit.Document.ID {
			return a.Hit.Document.ID < b.Hit.Document.ID
		}
		if a.Hit.Document.ChunkIndex != b.Hit.Document.ChunkIndex {
			return a.Hit.Document.ChunkIndex < b.Hit.Document.ChunkIndex
		}
		return a.Hit.Document.Filename < b.Hit.Document.Filename
	})
}

func dedupCandidates(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Hit.Document.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
