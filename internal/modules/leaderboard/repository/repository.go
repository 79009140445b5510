package repository

import (
	"context"

	"bayanika.app/backend/internal/entity"
	"gorm.io/gorm"
)

type LeaderboardRepository interface {
	// TopUsers returns users ranked by all-time BP, highest first.
	TopUsers(ctx context.Context, limit int) ([]*entity.User, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) TopUsers(ctx context.Context, limit int) ([]*entity.User, error) {
	var users []*entity.User
	if err := r.db.WithContext(ctx).
		Order("bayanihan_points DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
