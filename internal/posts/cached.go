package posts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RecentTTL bounds how stale a cached style reference can get.
const RecentTTL = 10 * time.Minute

// Cache is the subset of cache.Cache used here.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore serves RecentPosts from Redis and invalidates on writes. Cache
// failures are logged and fall through to the underlying repository.
type CachedStore struct {
	Repository
	cache Cache
	log   zerolog.Logger
}

func NewCachedStore(repo Repository, cache Cache, log zerolog.Logger) *CachedStore {
	return &CachedStore{
		Repository: repo,
		cache:      cache,
		log:        log.With().Str("component", "posts").Logger(),
	}
}

// RecentKey is the cache key holding a user's style reference posts.
func RecentKey(userID string) string {
	return "posts:recent:" + userID
}

func (s *CachedStore) RecentPosts(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit > 0 && limit != RecentLimit {
		return s.Repository.RecentPosts(ctx, userID, limit)
	}

	key := RecentKey(userID)
	var cached []string
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("recent posts cache read failed")
	} else if found {
		return cached, nil
	}

	recent, err := s.Repository.RecentPosts(ctx, userID, RecentLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []string{}
	}

	if err := s.cache.Set(ctx, key, recent, RecentTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("recent posts cache write failed")
	}
	return recent, nil
}

func (s *CachedStore) SavePost(ctx context.Context, userID, title, content string) (uuid.UUID, error) {
	id, err := s.Repository.SavePost(ctx, userID, title, content)
	if err != nil {
		return uuid.Nil, err
	}
	s.invalidate(ctx, userID)
	return id, nil
}

func (s *CachedStore) UpdatePostContent(ctx context.Context, userID string, id uuid.UUID, content string) error {
	if err := s.Repository.UpdatePostContent(ctx, userID, id, content); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, RecentKey(userID)); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("recent posts cache invalidation failed")
	}
}
