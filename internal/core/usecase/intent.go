package usecase

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

// IntentRules is the data-driven routing table for the intent classifier.
// Order matters: greetings are checked before meta and blocklist patterns so
// a short greeting is never misrouted.
type IntentRules struct {
	Greetings        []string `yaml:"greetings"`
	GreetingResponse string   `yaml:"greeting_response"`

	MetaPatterns []string `yaml:"meta_patterns"`
	MetaResponse string   `yaml:"meta_response"`

	BlockPatterns      []string `yaml:"block_patterns"`
	OutOfScopeResponse string   `yaml:"out_of_scope_response"`

	UnclearResponse string `yaml:"unclear_response"`
}

func DefaultIntentRules() IntentRules {
	return IntentRules{
		Greetings: []string{
			"hello", "hi", "hey", "good morning", "good afternoon",
			"good evening", "thanks", "thank you", "thx", "bye", "goodbye",
		},
		GreetingResponse: "Hello! Ask me anything about the documents in the knowledge base and I'll find the answer for you.",

		MetaPatterns: []string{
			`(?i)^(what|who)\s+(can|do|are)\s+you\b`,
			`(?i)\bwhat can you do\b`,
			`(?i)\bwho are you\b`,
			`(?i)\bhow do you work\b`,
			`(?i)^(help|what is this)[\s?!.]*$`,
		},
		MetaResponse: "I answer questions about the uploaded internal documents: policies, applications, procedures, and reference pages. Ask me something like \"what is the vacation policy?\".",

		BlockPatterns: []string{
			`(?i)\b(fuck|shit|asshole|bitch)\b`,
			`(?i)\b(kill myself|suicide|self[- ]harm|hurt myself)\b`,
			`(?i)\b(share|give|tell|send)\b.{0,40}\b(password|credential|api key|secret)s?\b`,
			`(?i)\b(weather|horoscope|lottery|sports score)s?\b`,
		},
		OutOfScopeResponse: "I can only help with questions about the internal document library, so I can't answer that.",

		UnclearResponse: "Could you give me a bit more detail? A very short query is hard to search for.",
	}
}

// LoadIntentRules reads rule overrides from a YAML file. Empty fields fall
// back to the defaults so a partial override file is valid.
func LoadIntentRules(path string) (IntentRules, error) {
	rules := DefaultIntentRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read intent rules: %w", err)
	}

	var overrides IntentRules
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return rules, fmt.Errorf("parse intent rules: %w", err)
	}

	if len(overrides.Greetings) > 0 {
		rules.Greetings = overrides.Greetings
	}
	if overrides.GreetingResponse != "" {
		rules.GreetingResponse = overrides.GreetingResponse
	}
	if len(overrides.MetaPatterns) > 0 {
		rules.MetaPatterns = overrides.MetaPatterns
	}
	if overrides.MetaResponse != "" {
		rules.MetaResponse = overrides.MetaResponse
	}
	if len(overrides.BlockPatterns) > 0 {
		rules.BlockPatterns = overrides.BlockPatterns
	}
	if overrides.OutOfScopeResponse != "" {
		rules.OutOfScopeResponse = overrides.OutOfScopeResponse
	}
	if overrides.UnclearResponse != "" {
		rules.UnclearResponse = overrides.UnclearResponse
	}
	return rules, nil
}

// IntentClassifier routes a question before any retrieval happens.
type IntentClassifier struct {
	rules     IntentRules
	greetings map[string]struct{}
	meta      []*regexp.Regexp
	block     []*regexp.Regexp
}

func NewIntentClassifier(rules IntentRules) (*IntentClassifier, error) {
	greetings := make(map[string]struct{}, len(rules.Greetings))
	for _, g := range rules.Greetings {
		greetings[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
	}

	meta, err := compilePatterns(rules.MetaPatterns)
	if err != nil {
		return nil, fmt.Errorf("meta patterns: %w", err)
	}
	block, err := compilePatterns(rules.BlockPatterns)
	if err != nil {
		return nil, fmt.Errorf("block patterns: %w", err)
	}

	return &IntentClassifier{
		rules:     rules,
		greetings: greetings,
		meta:      meta,
		block:     block,
	}, nil
}

// Classify returns the routed intent and, for everything except document
// questions, a canned response that bypasses retrieval entirely.
func (c *IntentClassifier) Classify(question string) (domain.Intent, string) {
	trimmed := strings.TrimSpace(question)
	normalized := strings.ToLower(strings.TrimRight(trimmed, "!?. "))

	if _, ok := c.greetings[normalized]; ok {
		return domain.IntentGreeting, c.rules.GreetingResponse
	}
	for _, p := range c.meta {
		if p.MatchString(trimmed) {
			return domain.IntentMetaQuestion, c.rules.MetaResponse
		}
	}
	for _, p := range c.block {
		if p.MatchString(trimmed) {
			return domain.IntentOutOfScope, c.rules.OutOfScopeResponse
		}
	}
	if len([]rune(trimmed)) < 3 {
		return domain.IntentMetaQuestion, c.rules.UnclearResponse
	}
	return domain.IntentDocumentQuestion, ""
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		p, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", raw, err)
		}
		out = append(out, p)
	}
	return out, nil
}
