package application

import (
	"sync"

	"github.com/bnema/tale-cli/internal/domain"
)

// SessionStore is the single source of truth for Adventure state. Every
// component computes a new Adventure value and hands it back through Upsert
// or Update; nothing mutates a stored value in place, so references held by
// in-flight async work never go stale mid-read.
type SessionStore struct {
	mu       sync.RWMutex
	order    []domain.SessionID
	byID     map[domain.SessionID]domain.Adventure
	selected domain.SessionID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: map[domain.SessionID]domain.Adventure{}}
}

// Upsert replaces the adventure with a matching id or appends it. This is
// the insertion path; async updaters go through Update instead so a deleted
// session cannot be resurrected by a late poll result.
func (s *SessionStore) Upsert(adventure domain.Adventure) {
	if adventure.SessionID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[adventure.SessionID]; !ok {
		s.order = append(s.order, adventure.SessionID)
	}
	s.byID[adventure.SessionID] = adventure.Clone()
}

// Update applies fn to the current value of the session and stores the
// result. It returns domain.ErrAdventureNotFound for absent ids; an error
// from fn aborts without storing. The returned Adventure is the stored
// post-update value.
func (s *SessionStore) Update(id domain.SessionID, fn func(domain.Adventure) (domain.Adventure, error)) (domain.Adventure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return domain.Adventure{}, domain.ErrAdventureNotFound
	}

	next, err := fn(current.Clone())
	if err != nil {
		return domain.Adventure{}, err
	}
	next.SessionID = id
	s.byID[id] = next.Clone()

	return next, nil
}

// Remove deletes the session; removal is immediate and irrevocable. If it
// was selected, the selection becomes empty.
func (s *SessionStore) Remove(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return
	}

	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
	}
}

func (s *SessionStore) Get(id domain.SessionID) (domain.Adventure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adventure, ok := s.byID[id]
	if !ok {
		return domain.Adventure{}, false
	}
	return adventure.Clone(), true
}

// List returns the adventures in insertion order.
func (s *SessionStore) List() []domain.Adventure {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adventures := make([]domain.Adventure, 0, len(s.order))
	for _, id := range s.order {
		adventures = append(adventures, s.byID[id].Clone())
	}
	return adventures
}

func (s *SessionStore) Select(id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return domain.ErrAdventureNotFound
	}
	s.selected = id
	return nil
}

func (s *SessionStore) Selected() (domain.Adventure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == "" {
		return domain.Adventure{}, false
	}
	adventure, ok := s.byID[s.selected]
	if !ok {
		return domain.Adventure{}, false
	}
	return adventure.Clone(), true
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}
