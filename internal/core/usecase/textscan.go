package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// Shared line/token heuristics used by the ranker, snippet builder, and
// composer. The URL/IP/name patterns mirror what the indexed reference
// documents actually look like (application lists, endpoint cards).

var (
	urlPattern  = regexp.MustCompile(`(?i)\bhttps?://[^\s)]+`)
	ipPattern   = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`)
	hostPattern = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9.-]*\.[a-z]{2,}\b`)
	namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9() /_.-]{2,80}$`)

	// Questions asking where something lives rather than what it says.
	urlIntentPattern = regexp.MustCompile(`(?i)\b(url|urls|link|links|endpoint|endpoints|address|addresses|ip|ips|host|hostname|server)\b`)

	downloadPattern = regexp.MustCompile(`(?i)\b(download|attachment|attached file)\b`)

	policyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*\d+\.\s+\S`),
		regexp.MustCompile(`(?i)\bentitled to \d+`),
		regexp.MustCompile(`(?i)\beffective date\b`),
		regexp.MustCompile(`(?i)\bsection \d+(\.\d+)?\b`),
	}
)

func containsURL(s string) bool { return urlPattern.MatchString(s) }

func containsIP(s string) bool { return ipPattern.MatchString(s) }

func containsHost(s string) bool { return hostPattern.MatchString(s) }

func isURLFlavored(question string) bool { return urlIntentPattern.MatchString(question) }

func looksLikePolicy(text string) bool {
	for _, p := range policyPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(strings.TrimSpace(line), "\r")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"get": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "many": {},
	"much": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "the": {},
	"to": {}, "we": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {}, "you": {},
}

func questionTokens(question string) []string {
	tokens := splitAlphaNumLower(question)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		out = append(out, token)
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

func truncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
