package bloc

import (
	"context"
	"fmt"
	"time"

	"bloc-editor/redis"

	"github.com/rs/zerolog"
)

// DefaultService is a Store caching page listings in redis. Every write
// bumps the version of the affected page so stale listings are never read.
type DefaultService struct {
	store Store
	cache *redis.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

var _ Store = (*DefaultService)(nil)

func NewService(store Store, cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *DefaultService {
	return &DefaultService{
		store: store,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "bloc-service").Logger(),
	}
}

func pageVersionKey(pageID string) string {
	return fmt.Sprintf("page:%s:blocs:version", pageID)
}

func blocPageKey(id string) string {
	return fmt.Sprintf("bloc:%s:page", id)
}

// invalidate makes the next listing of pageID go to the store.
func (s *DefaultService) invalidate(ctx context.Context, pageID string) {
	if pageID == "" {
		return
	}
	s.cache.IncrementVersion(ctx, pageVersionKey(pageID))
}

// pageOf returns the page holding id, from the cache when possible.
func (s *DefaultService) pageOf(ctx context.Context, id string) string {
	var pageID string
	if found, _ := s.cache.Get(ctx, blocPageKey(id), &pageID); found {
		return pageID
	}
	b, err := s.store.GetBlocByID(ctx, id)
	if err != nil {
		return ""
	}
	s.rememberPage(ctx, id, b.PageID)
	return b.PageID
}

func (s *DefaultService) rememberPage(ctx context.Context, id, pageID string) {
	if err := s.cache.Set(ctx, blocPageKey(id), pageID, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("bloc_id", id).Msg("cache bloc page")
	}
}

func (s *DefaultService) CreateBloc(ctx context.Context, bloc *Bloc) (string, error) {
	id, err := s.store.CreateBloc(ctx, bloc)
	if err != nil {
		return "", err
	}
	s.rememberPage(ctx, id, bloc.PageID)
	s.invalidate(ctx, bloc.PageID)
	return id, nil
}

func (s *DefaultService) UpdateBloc(ctx context.Context, bloc *Bloc) (bool, error) {
	ok, err := s.store.UpdateBloc(ctx, bloc)
	if ok {
		s.invalidate(ctx, s.pageOf(ctx, bloc.ID))
	}
	return ok, err
}

func (s *DefaultService) UpdateBlocContent(ctx context.Context, id, content string, updatedAt int64) (Status, error) {
	status, err := s.store.UpdateBlocContent(ctx, id, content, updatedAt)
	if status == StatusSuccess {
		s.invalidate(ctx, s.pageOf(ctx, id))
	}
	return status, err
}

func (s *DefaultService) UpdateBlocPosition(ctx context.Context, id, position string, updatedAt int64) (Status, error) {
	status, err := s.store.UpdateBlocPosition(ctx, id, position, updatedAt)
	if status == StatusSuccess {
		s.invalidate(ctx, s.pageOf(ctx, id))
	}
	return status, err
}

func (s *DefaultService) UpdateBlocPageID(ctx context.Context, id, pageID string) (bool, error) {
	previous := s.pageOf(ctx, id)
	ok, err := s.store.UpdateBlocPageID(ctx, id, pageID)
	if ok {
		s.invalidate(ctx, previous)
		s.invalidate(ctx, pageID)
		s.rememberPage(ctx, id, pageID)
	}
	return ok, err
}

func (s *DefaultService) DeleteBloc(ctx context.Context, id string) (bool, error) {
	pageID := s.pageOf(ctx, id)
	ok, err := s.store.DeleteBloc(ctx, id)
	if ok {
		s.invalidate(ctx, pageID)
		s.cache.Delete(ctx, blocPageKey(id))
	}
	return ok, err
}

func (s *DefaultService) DeleteBlocByPageID(ctx context.Context, pageID string) (bool, error) {
	ok, err := s.store.DeleteBlocByPageID(ctx, pageID)
	if ok {
		s.invalidate(ctx, pageID)
	}
	return ok, err
}

func (s *DefaultService) GetChecksum(ctx context.Context, id string) (string, error) {
	return s.store.GetChecksum(ctx, id)
}

func (s *DefaultService) GetBlocByID(ctx context.Context, id string) (*Bloc, error) {
	return s.store.GetBlocByID(ctx, id)
}

func (s *DefaultService) GetBlocsByPageID(ctx context.Context, pageID string) ([]Bloc, error) {
	// Get the current data version for this page
	v := s.cache.GetVersion(ctx, pageVersionKey(pageID))
	cacheKey := fmt.Sprintf("blocs:page:%s:v:%d", pageID, v)

	var blocs []Bloc
	// get data from cache
	if found, _ := s.cache.Get(ctx, cacheKey, &blocs); found {
		return blocs, nil
	}

	blocs, err := s.store.GetBlocsByPageID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	// set value to cache
	if err := s.cache.Set(ctx, cacheKey, blocs, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("page_id", pageID).Msg("cache page blocs")
	}
	return blocs, nil
}
