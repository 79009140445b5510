package service

import (
	"context"
	"log"

	"bayanika.app/backend/internal/entity"
	badgeRepo "bayanika.app/backend/internal/modules/badge/repository"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	"github.com/google/uuid"
)

// BadgeService scans badge eligibility against a user's current stats. It is
// idempotent: badges already owned are skipped, so a second call with no
// intervening point change earns nothing.
type BadgeService interface {
	EvaluateBadges(ctx context.Context, userID uuid.UUID) ([]*entity.Badge, error)
	GetUserBadges(ctx context.Context, userID uuid.UUID) ([]*entity.UserBadge, error)
	ListBadges(ctx context.Context) ([]*entity.Badge, error)
}

type badgeService struct {
	badges badgeRepo.BadgeRepository
	users  userRepo.UserRepository
	proofs proofRepo.ProofRepository
}

func NewBadgeService(badges badgeRepo.BadgeRepository, users userRepo.UserRepository, proofs proofRepo.ProofRepository) BadgeService {
	return &badgeService{
		badges: badges,
		users:  users,
		proofs: proofs,
	}
}

func (s *badgeService) EvaluateBadges(ctx context.Context, userID uuid.UUID) ([]*entity.Badge, error) {
	user, err := s.users.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	allBadges, err := s.badges.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	owned, err := s.badges.FindOwnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var earned []*entity.Badge
	for _, badge := range allBadges {
		if owned[badge.ID] {
			continue
		}

		eligible := false
		switch badge.Category {
		case entity.BadgeCategoryPoints:
			eligible = user.BayanihanPoints >= badge.BayanihanPointsRequired
		case entity.BadgeCategoryLevel:
			// The threshold field is shared with the points category and read
			// here as a level number.
			eligible = user.Level >= badge.BayanihanPointsRequired
		case entity.BadgeCategoryFirstActivity:
			count, err := s.proofs.CountByUser(ctx, userID)
			if err != nil {
				return nil, err
			}
			eligible = count >= 1
		}

		if !eligible {
			continue
		}

		if err := s.badges.Award(ctx, userID, badge.ID); err != nil {
			log.Printf("failed to award badge %s to user %s: %v", badge.Name, userID, err)
			continue
		}
		earned = append(earned, badge)
	}

	return earned, nil
}

func (s *badgeService) GetUserBadges(ctx context.Context, userID uuid.UUID) ([]*entity.UserBadge, error) {
	return s.badges.FindByUser(ctx, userID)
}

func (s *badgeService) ListBadges(ctx context.Context) ([]*entity.Badge, error) {
	return s.badges.FindAll(ctx)
}
