package store

import (
	"context"
	"sync"

	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
)

// MemoryProfileStore keeps the encoded profile in memory. It round-trips
// through JSON so it behaves like the persistent stores.
type MemoryProfileStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{}
}

func (s *MemoryProfileStore) Load(ctx context.Context) (*types.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, apperror.ErrProfileNotFound
	}
	return decode(s.data)
}

func (s *MemoryProfileStore) Save(ctx context.Context, profile types.UserProfile) error {
	data, err := encode(profile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryProfileStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

// SetRaw stores data as is, bypassing encoding.
func (s *MemoryProfileStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}
