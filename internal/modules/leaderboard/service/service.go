package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bayanika.app/backend/internal/modules/leaderboard/dto"
	"bayanika.app/backend/internal/modules/leaderboard/repository"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLimit = 100
	cacheKey     = "leaderboard:top"
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	// InvalidateCache drops the cached ranking; called after any point
	// change so the board never lags more than one request behind.
	InvalidateCache(ctx context.Context)
}

type leaderboardService struct {
	repo        repository.LeaderboardRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewLeaderboardService(repo repository.LeaderboardRepository, redisClient *redis.Client, cacheTTL time.Duration) LeaderboardService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &leaderboardService{
		repo:        repo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	if cached := s.readCache(ctx); cached != nil {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	users, err := s.repo.TopUsers(ctx, DefaultLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entries = append(entries, dto.LeaderboardEntry{
			Rank:            i + 1,
			UserID:          user.ID,
			FirstName:       user.FirstName,
			LastName:        user.LastName,
			Username:        user.Username,
			BayanihanPoints: user.BayanihanPoints,
			Level:           user.Level,
		})
	}

	s.writeCache(ctx, entries)

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *leaderboardService) InvalidateCache(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, cacheKey).Err(); err != nil {
		log.Printf("failed to invalidate leaderboard cache: %v", err)
	}
}

func (s *leaderboardService) readCache(ctx context.Context) []dto.LeaderboardEntry {
	if s.redisClient == nil {
		return nil
	}

	payload, err := s.redisClient.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil
	}

	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil
	}
	return entries
}

func (s *leaderboardService) writeCache(ctx context.Context, entries []dto.LeaderboardEntry) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
		log.Printf("failed to cache leaderboard: %v", err)
	}
}
