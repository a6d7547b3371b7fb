package db

import (
	"context"
	"sync"
)

// MemorySlots is a process-local SlotStore. Read and write failures can be
// injected to exercise the degraded paths of callers.
type MemorySlots struct {
	mu       sync.Mutex
	slots    map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

var _ SlotStore = (*MemorySlots)(nil)

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string][]byte)}
}

// FailReads makes every Get return err until called again with nil
func (s *MemorySlots) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailWrites makes every Put and Delete return err until called again with nil
func (s *MemorySlots) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Writes reports how many successful Put and Delete calls were made
func (s *MemorySlots) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemorySlots) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	v, ok := s.slots[name]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemorySlots) Put(_ context.Context, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.slots[name] = append([]byte(nil), value...)
	s.writes++
	return nil
}

func (s *MemorySlots) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.slots, name)
	s.writes++
	return nil
}

func (s *MemorySlots) Close() error { return nil }
