package store

import (
	"sync"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/types"
)

// MemoryProgressStore is the redis-less ProgressStore: a mutex-guarded
// map with a timer per terminal record to honor the retention window.
type MemoryProgressStore struct {
	mu      sync.RWMutex
	records map[int64]*types.ProgressRecord
	timers  map[int64]*time.Timer
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{
		records: make(map[int64]*types.ProgressRecord),
		timers:  make(map[int64]*time.Timer),
	}
}

func (s *MemoryProgressStore) Set(userID int64, rec *types.ProgressRecord) error {
	cp := *rec
	s.mu.Lock()
	s.stopTimerLocked(userID)
	s.records[userID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryProgressStore) Get(userID int64) (*types.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryProgressStore) SetTerminal(userID int64, rec *types.ProgressRecord, retention time.Duration) error {
	if retention <= 0 {
		retention = time.Second
	}
	cp := *rec
	s.mu.Lock()
	s.stopTimerLocked(userID)
	s.records[userID] = &cp
	s.timers[userID] = time.AfterFunc(retention, func() {
		_ = s.Delete(userID)
	})
	s.mu.Unlock()
	return nil
}

func (s *MemoryProgressStore) Delete(userID int64) error {
	s.mu.Lock()
	s.stopTimerLocked(userID)
	delete(s.records, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryProgressStore) stopTimerLocked(userID int64) {
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
}
