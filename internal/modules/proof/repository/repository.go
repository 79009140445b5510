package repository

import (
	"context"

	"bayanika.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProofRepository interface {
	Create(ctx context.Context, proof *entity.ProofOfWork) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ProofOfWork, error)
	FindByUserAndActivity(ctx context.Context, userID, activityID uuid.UUID) (*entity.ProofOfWork, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ProofOfWork, error)
	// FindPending lists unverified proofs, newest first, for the admin
	// verification queue.
	FindPending(ctx context.Context) ([]*entity.ProofOfWork, error)
	Save(ctx context.Context, proof *entity.ProofOfWork) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// HasVerified reports whether the user already holds a verified proof for
	// the activity; this is the double-award guard shared by both award paths.
	HasVerified(ctx context.Context, userID, activityID uuid.UUID) (bool, error)
}

type proofRepository struct {
	db *gorm.DB
}

func NewProofRepository(db *gorm.DB) ProofRepository {
	return &proofRepository{db: db}
}

func (r *proofRepository) Create(ctx context.Context, proof *entity.ProofOfWork) error {
	return r.db.WithContext(ctx).Create(proof).Error
}

func (r *proofRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ProofOfWork, error) {
	var proof entity.ProofOfWork
	if err := r.db.WithContext(ctx).First(&proof, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *proofRepository) FindByUserAndActivity(ctx context.Context, userID, activityID uuid.UUID) (*entity.ProofOfWork, error) {
	var proof entity.ProofOfWork
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		First(&proof).Error; err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *proofRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ProofOfWork, error) {
	var proofs []*entity.ProofOfWork
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&proofs).Error; err != nil {
		return nil, err
	}
	return proofs, nil
}

func (r *proofRepository) FindPending(ctx context.Context) ([]*entity.ProofOfWork, error) {
	var proofs []*entity.ProofOfWork
	if err := r.db.WithContext(ctx).
		Where("verified = ?", false).
		Order("created_at DESC").
		Find(&proofs).Error; err != nil {
		return nil, err
	}
	return proofs, nil
}

func (r *proofRepository) Save(ctx context.Context, proof *entity.ProofOfWork) error {
	return r.db.WithContext(ctx).Save(proof).Error
}

func (r *proofRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.ProofOfWork{}, "id = ?", id).Error
}

func (r *proofRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.ProofOfWork{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *proofRepository) HasVerified(ctx context.Context, userID, activityID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.ProofOfWork{}).
		Where("user_id = ? AND activity_id = ? AND verified = ?", userID, activityID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
