package repository

import (
	"context"

	"bayanika.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RewardRepository interface {
	Create(ctx context.Context, reward *entity.Reward) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reward, error)
	FindAll(ctx context.Context, onlyAvailable bool) ([]*entity.Reward, error)
	Save(ctx context.Context, reward *entity.Reward) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ClaimOne decrements stock and bumps the claimed counter in a single
	// conditional UPDATE. is_available flips to false in the same statement
	// exactly when stock reaches zero. Returns false when stock was already
	// exhausted.
	ClaimOne(ctx context.Context, id uuid.UUID) (bool, error)
}

type rewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) Create(ctx context.Context, reward *entity.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *rewardRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reward, error) {
	var reward entity.Reward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *rewardRepository) FindAll(ctx context.Context, onlyAvailable bool) ([]*entity.Reward, error) {
	var rewards []*entity.Reward
	query := r.db.WithContext(ctx)
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Order("points_cost ASC").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *rewardRepository) Save(ctx context.Context, reward *entity.Reward) error {
	return r.db.WithContext(ctx).Save(reward).Error
}

func (r *rewardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Reward{}, "id = ?", id).Error
}

func (r *rewardRepository) ClaimOne(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Reward{}).
		Where("id = ? AND stock > 0", id).
		Updates(map[string]interface{}{
			"stock":        gorm.Expr("stock - 1"),
			"claimed":      gorm.Expr("claimed + 1"),
			"is_available": gorm.Expr("stock - 1 > 0"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
