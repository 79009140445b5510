package repository

import (
	"context"

	"bayanika.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeRepository interface {
	Create(ctx context.Context, badge *entity.Badge) error
	FindAll(ctx context.Context) ([]*entity.Badge, error)
	FindOwnedBadgeIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserBadge, error)
	Award(ctx context.Context, userID, badgeID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) Create(ctx context.Context, badge *entity.Badge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}

func (r *badgeRepository) FindAll(ctx context.Context) ([]*entity.Badge, error) {
	var badges []*entity.Badge
	if err := r.db.WithContext(ctx).Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *badgeRepository) FindOwnedBadgeIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []entity.UserBadge
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	owned := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		owned[row.BadgeID] = true
	}
	return owned, nil
}

func (r *badgeRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserBadge, error) {
	var rows []*entity.UserBadge
	if err := r.db.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *badgeRepository) Award(ctx context.Context, userID, badgeID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&entity.UserBadge{
		UserID:  userID,
		BadgeID: badgeID,
	}).Error
}

func (r *badgeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Badge{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
