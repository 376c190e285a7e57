// Package session keeps each browser's uploaded dataset in memory, bounded
// by a TTL and a maximum number of sessions.
package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
)

// Session is a snapshot of a stored entry. Dataset is owned by the store
// and must be treated as read-only.
type Session struct {
	ID         string
	FileName   string
	Dataset    *models.Dataset
	CreatedAt  time.Time
	LastAccess time.Time
}

type entry struct {
	session   Session
	expiresAt time.Time
}

// Store is an LRU map of sessions with sliding expiry.
type Store struct {
	mu            sync.Mutex
	ttl           time.Duration
	maxSessions   int
	sweepInterval time.Duration
	items         map[string]*list.Element
	lru           *list.List
	logger        *slog.Logger
	now           func() time.Time
}

func NewStore(cfg config.SessionConfig, logger *slog.Logger) *Store {
	return &Store{
		ttl:           cfg.TTL,
		maxSessions:   cfg.MaxSessions,
		sweepInterval: cfg.SweepInterval,
		items:         make(map[string]*list.Element),
		lru:           list.New(),
		logger:        logger,
		now:           time.Now,
	}
}

// Put stores a private copy of ds under a new session ID. The session named
// by previousID, if any, is discarded.
func (s *Store) Put(previousID string, ds *models.Dataset, fileName string) Session {
	owned := ds.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[previousID]; ok {
		s.removeElement(elem)
	}

	now := s.now()
	e := &entry{
		session: Session{
			ID:         uuid.NewString(),
			FileName:   fileName,
			Dataset:    owned,
			CreatedAt:  now,
			LastAccess: now,
		},
		expiresAt: now.Add(s.ttl),
	}
	s.items[e.session.ID] = s.lru.PushFront(e)

	for s.maxSessions > 0 && s.lru.Len() > s.maxSessions {
		oldest := s.lru.Back()
		evicted := oldest.Value.(*entry).session
		s.removeElement(oldest)
		s.logger.Info("session evicted",
			"session_id", evicted.ID,
			"file", evicted.FileName,
			"reason", "capacity",
		)
	}

	return e.session
}

// Get returns the session and extends its expiry.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return Session{}, false
	}

	e := elem.Value.(*entry)
	now := s.now()
	if now.After(e.expiresAt) {
		s.removeElement(elem)
		return Session{}, false
	}

	e.session.LastAccess = now
	e.expiresAt = now.Add(s.ttl)
	s.lru.MoveToFront(elem)
	return e.session, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[id]; ok {
		s.removeElement(elem)
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	// Least recently used entries are at the back and expire first.
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry).expiresAt) {
			s.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Start runs the expiry janitor until ctx is done.
func (s *Store) Start(ctx context.Context) {
	if s.sweepInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

func (s *Store) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"sessions":     len(s.items),
		"max_sessions": s.maxSessions,
		"ttl":          s.ttl.String(),
	}
}

func (s *Store) removeElement(elem *list.Element) {
	delete(s.items, elem.Value.(*entry).session.ID)
	s.lru.Remove(elem)
}
