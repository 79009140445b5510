package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bayanika.app/backend/internal/entity"
	badgeService "bayanika.app/backend/internal/modules/badge/service"
	leaderboardService "bayanika.app/backend/internal/modules/leaderboard/service"
	notifService "bayanika.app/backend/internal/modules/notification/service"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AwardResult reports what a single award call changed. Awarded is false when
// the user already held a verified proof for the activity, in which case no
// points moved and no badges were evaluated.
type AwardResult struct {
	Awarded   bool
	Points    int
	NewBadges []*entity.Badge
}

// GamificationService is the single place Bayanihan Points are credited.
// Both award paths, proof approval and attendance marking, go through Award,
// which makes the verified-proof check the one guard against paying twice
// for the same user and activity.
type GamificationService interface {
	Award(ctx context.Context, userID, activityID uuid.UUID, points int, source string) (*AwardResult, error)
	// Revoke takes back points credited by an Award whose caller failed to
	// persist its verified proof marker. Badges already swept stay earned.
	Revoke(ctx context.Context, userID uuid.UUID, points int) error
}

type gamificationService struct {
	users       userRepo.UserRepository
	proofs      proofRepo.ProofRepository
	badges      badgeService.BadgeService
	notifier    notifService.NotificationService
	leaderboard leaderboardService.LeaderboardService
}

func NewGamificationService(
	users userRepo.UserRepository,
	proofs proofRepo.ProofRepository,
	badges badgeService.BadgeService,
	notifier notifService.NotificationService,
	leaderboard leaderboardService.LeaderboardService,
) GamificationService {
	return &gamificationService{
		users:       users,
		proofs:      proofs,
		badges:      badges,
		notifier:    notifier,
		leaderboard: leaderboard,
	}
}

func (s *gamificationService) Award(ctx context.Context, userID, activityID uuid.UUID, points int, source string) (*AwardResult, error) {
	// Callers invoke Award before flipping their own proof to verified, so a
	// hit here always means some earlier award already paid out.
	alreadyPaid, err := s.proofs.HasVerified(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		return &AwardResult{Awarded: false}, nil
	}

	if err := s.users.AddPoints(ctx, userID, points); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, err
	}

	s.notify(ctx, &entity.Notification{
		UserID:     userID,
		EntityID:   activityID,
		EntityType: "activity",
		Type:       entity.NotificationPointsAwarded,
		Message:    fmt.Sprintf("You earned %d Bayanihan Points for %s.", points, source),
	})

	newBadges, err := s.badges.EvaluateBadges(ctx, userID)
	if err != nil {
		// Points are already credited; a badge sweep failure must not undo
		// the award. The next award retries the sweep.
		log.Printf("badge evaluation failed for user %s: %v", userID, err)
		newBadges = nil
	}
	for _, badge := range newBadges {
		s.notify(ctx, &entity.Notification{
			UserID:     userID,
			EntityID:   badge.ID,
			EntityType: "badge",
			Type:       entity.NotificationBadgeEarned,
			Message:    fmt.Sprintf("You earned the %q badge!", badge.Name),
		})
	}

	s.leaderboard.InvalidateCache(ctx)

	return &AwardResult{
		Awarded:   true,
		Points:    points,
		NewBadges: newBadges,
	}, nil
}

func (s *gamificationService) Revoke(ctx context.Context, userID uuid.UUID, points int) error {
	if err := s.users.AddPoints(ctx, userID, -points); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("user not found")
		}
		return err
	}
	s.leaderboard.InvalidateCache(ctx)
	return nil
}

func (s *gamificationService) notify(ctx context.Context, n *entity.Notification) {
	if err := s.notifier.CreateNotification(ctx, n); err != nil {
		log.Printf("failed to create notification for user %s: %v", n.UserID, err)
	}
}
