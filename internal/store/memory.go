package store

import (
	"sync"

	"github.com/BTreeMap/VoicePipe/internal/models"
)

// InMemoryStore keeps turns in process memory. It backs tests and the
// "memoryless" mode where no database is configured; history survives only
// as long as the process.
type InMemoryStore struct {
	mu     sync.Mutex
	nextID int64
	turns  map[string][]models.Turn
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]models.Turn)}
}

func (s *InMemoryStore) AddTurn(turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	turn.ID = s.nextID
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	return nil
}

func (s *InMemoryStore) RecentTurns(userID string, limit int) ([]models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.turns[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	// Copy so callers never observe later appends.
	out := make([]models.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (s *InMemoryStore) DeleteTurns(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, userID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
