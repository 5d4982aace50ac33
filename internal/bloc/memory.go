package bloc

import (
	"context"
	"sort"
	"sync"

	"bloc-editor/internal/errors"
)

// MemoryStore keeps blocs in process. It backs tests, the blocctl demo and
// engines running without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	blocs map[string]Bloc
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blocs: make(map[string]Bloc)}
}

func (s *MemoryStore) CreateBloc(ctx context.Context, bloc *Bloc) (string, error) {
	prepare(bloc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocs[bloc.ID]; ok {
		return "", errors.Conflict("Bloc already exists", nil)
	}
	s.blocs[bloc.ID] = *bloc
	return bloc.ID, nil
}

func (s *MemoryStore) UpdateBloc(ctx context.Context, bloc *Bloc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocs[bloc.ID]
	if !ok {
		return false, nil
	}
	b.Position = bloc.Position
	b.Content = bloc.Content
	b.Checksum = Checksum(bloc.Content)
	b.BlocType = bloc.BlocType
	b.UpdatedAt = bloc.UpdatedAt
	s.blocs[bloc.ID] = b
	return true, nil
}

func (s *MemoryStore) UpdateBlocContent(ctx context.Context, id, content string, updatedAt int64) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocs[id]
	if !ok {
		return StatusError, errors.NotFound("Bloc not found", nil)
	}
	checksum := Checksum(content)
	if b.Checksum == checksum {
		return StatusNoChange, nil
	}
	b.Content = content
	b.Checksum = checksum
	b.UpdatedAt = updatedAt
	s.blocs[id] = b
	return StatusSuccess, nil
}

func (s *MemoryStore) UpdateBlocPosition(ctx context.Context, id, position string, updatedAt int64) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocs[id]
	if !ok {
		return StatusError, errors.NotFound("Bloc not found", nil)
	}
	if b.Position == position {
		return StatusNoChange, nil
	}
	b.Position = position
	b.UpdatedAt = updatedAt
	s.blocs[id] = b
	return StatusSuccess, nil
}

func (s *MemoryStore) UpdateBlocPageID(ctx context.Context, id, pageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocs[id]
	if !ok {
		return false, nil
	}
	b.PageID = pageID
	s.blocs[id] = b
	return true, nil
}

func (s *MemoryStore) DeleteBloc(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocs[id]; !ok {
		return false, nil
	}
	delete(s.blocs, id)
	return true, nil
}

func (s *MemoryStore) DeleteBlocByPageID(ctx context.Context, pageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := false
	for id, b := range s.blocs {
		if b.PageID == pageID {
			delete(s.blocs, id)
			deleted = true
		}
	}
	return deleted, nil
}

func (s *MemoryStore) GetChecksum(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocs[id]
	if !ok {
		return "", errors.NotFound("Bloc not found", nil)
	}
	return b.Checksum, nil
}

func (s *MemoryStore) GetBlocByID(ctx context.Context, id string) (*Bloc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocs[id]
	if !ok {
		return nil, errors.NotFound("Bloc not found", nil)
	}
	return &b, nil
}

func (s *MemoryStore) GetBlocsByPageID(ctx context.Context, pageID string) ([]Bloc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blocs := []Bloc{}
	for _, b := range s.blocs {
		if b.PageID == pageID {
			blocs = append(blocs, b)
		}
	}
	sort.Slice(blocs, func(i, j int) bool {
		if blocs[i].Position != blocs[j].Position {
			return blocs[i].Position < blocs[j].Position
		}
		return blocs[i].ID < blocs[j].ID
	})
	return blocs, nil
}
