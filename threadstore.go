package agentrun

import (
	"context"
	"errors"
	"sync"
)

// ErrThreadAlreadySet is returned by MemoryThreadStore when a second, different
// thread id is stored.
var ErrThreadAlreadySet = errors.New("conversation thread already set")

// ThreadStore holds the conversation handle (remote thread id) of one
// Controller. Get reports ok=false until Set has been called. Implementations
// backed by external storage let a conversation outlive the process.
type ThreadStore interface {
	Get(ctx context.Context) (threadID string, ok bool, err error)
	Set(ctx context.Context, threadID string) error
}

// MemoryThreadStore keeps the handle in memory for the lifetime of the value.
// The handle is set once; storing another id fails with ErrThreadAlreadySet.
type MemoryThreadStore struct {
	mu       sync.Mutex
	threadID string
}

// NewMemoryThreadStore returns an empty MemoryThreadStore.
func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{}
}

// Get returns the stored thread id.
func (s *MemoryThreadStore) Get(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID, s.threadID != "", nil
}

// Set stores threadID once.
func (s *MemoryThreadStore) Set(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadID != "" && s.threadID != threadID {
		return ErrThreadAlreadySet
	}
	s.threadID = threadID
	return nil
}

var _ ThreadStore = (*MemoryThreadStore)(nil)
