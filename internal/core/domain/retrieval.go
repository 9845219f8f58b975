package domain

// SearchHit is one scored chunk returned by the search collaborator. Score is
// source-defined (lexical or vector similarity) and only meaningful as a
// relative ordering signal within one result list.
type SearchHit struct {
	Document SearchDocument `json:"document"`
	Score    float64        `json:"score"`
}

// SearchDocument is the indexed chunk payload as stored in the search service.
type SearchDocument struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id,omitempty"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
	PageNumber int    `json:"page_number,omitempty"`
	Section    string `json:"section,omitempty"`
	FileType   string `json:"file_type,omitempty"`
}

// IdentityKey is the cross-source deduplication key: the indexed id when
// present, otherwise filename plus the first 100 content characters. It must
// be stable across retrieval strategies for cross-source dedup to work.
func (d SearchDocument) IdentityKey() string {
	if d.ID != "" {
		return d.ID
	}
	content := d.Content
	if len(content) > 100 {
		content = content[:100]
	}
	return d.Filename + "|" + content
}

// ScoredCandidate is a SearchHit with derived ranking flags. Flags are computed
// once per candidate and immutable afterwards.
type ScoredCandidate struct {
	Hit SearchHit

	HasURL            bool
	HasIP             bool
	IsPenalizedSource bool
	HasExactMatch     bool
	IsCompactRecord   bool
	AdjustedScore     float64
}

// Snippet is the unit of citation. ID is 1-based, stable within one response,
// and is the only token the language model may reference.
type Snippet struct {
	ID       int     `json:"id"`
	Filename string  `json:"filename"`
	Page     int     `json:"page,omitempty"`
	Section  string  `json:"section,omitempty"`
	Text     string  `json:"text"`
	Score    float64 `json:"-"`
}

// Source is the citation entry surfaced to the API caller.
type Source struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
	Page     int    `json:"page,omitempty"`
	Section  string `json:"section,omitempty"`
	Preview  string `json:"preview"`
}

// ChatAnswer is the assembled result of one question/answer cycle.
type ChatAnswer struct {
	Question      string   `json:"question"`
	Response      string   `json:"response"`
	SessionID     string   `json:"session_id"`
	Sources       []Source `json:"sources"`
	SearchResults int      `json:"search_results"`
	Intent        Intent   `json:"intent"`
}
