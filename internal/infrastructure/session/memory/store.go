package memory

import (
	"sync"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

// Store is the process-local conversation history: sessionId to a bounded,
// ordered turn list. Oldest turns are evicted first once the cap is exceeded.
// History is ephemeral by design; nothing survives a restart.
type Store struct {
	cap int

	mu       sync.Mutex
	sessions map[string][]domain.ConversationTurn
}

func New(turnCap int) *Store {
	if turnCap <= 0 {
		turnCap = 10
	}
	return &Store{
		cap:      turnCap,
		sessions: make(map[string][]domain.ConversationTurn),
	}
}

// History returns a copy of the session's turns, oldest first.
func (s *Store) History(sessionID string) []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Append adds turns to the session and evicts from the front until the
// sequence is back within the cap. FIFO truncation, not LRU.
func (s *Store) Append(sessionID string, turns ...domain.ConversationTurn) {
	if len(turns) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := append(s.sessions[sessionID], turns...)
	if overflow := len(updated) - s.cap; overflow > 0 {
		updated = append([]domain.ConversationTurn(nil), updated[overflow:]...)
	}
	s.sessions[sessionID] = updated
}
