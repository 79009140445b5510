package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"bayanika.app/backend/internal/entity"
	leaderboardService "bayanika.app/backend/internal/modules/leaderboard/service"
	notifService "bayanika.app/backend/internal/modules/notification/service"
	"bayanika.app/backend/internal/modules/reward/dto"
	"bayanika.app/backend/internal/modules/reward/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
	"bayanika.app/backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RewardService interface {
	CreateReward(ctx context.Context, req dto.CreateRewardRequest, image io.Reader, imageName string) (*entity.Reward, error)
	GetRewards(ctx context.Context, includeUnavailable bool) ([]*entity.Reward, error)
	GetReward(ctx context.Context, id uuid.UUID) (*entity.Reward, error)
	UpdateReward(ctx context.Context, id uuid.UUID, req dto.UpdateRewardRequest) (*entity.Reward, error)
	DeleteReward(ctx context.Context, id uuid.UUID) error
	// Redeem spends points on a reward. The points debit and the stock
	// decrement are both conditional single-statement updates, so concurrent
	// redemptions can neither overspend a balance nor oversell stock.
	Redeem(ctx context.Context, userID, rewardID uuid.UUID) (*dto.RedeemResponse, error)
}

type rewardService struct {
	repo         repository.RewardRepository
	users        userRepo.UserRepository
	notifier     notifService.NotificationService
	leaderboard  leaderboardService.LeaderboardService
	imageStorage storage.ImageStorage
}

func NewRewardService(
	repo repository.RewardRepository,
	users userRepo.UserRepository,
	notifier notifService.NotificationService,
	leaderboard leaderboardService.LeaderboardService,
	imageStorage storage.ImageStorage,
) RewardService {
	return &rewardService{
		repo:         repo,
		users:        users,
		notifier:     notifier,
		leaderboard:  leaderboard,
		imageStorage: imageStorage,
	}
}

func (s *rewardService) CreateReward(ctx context.Context, req dto.CreateRewardRequest, image io.Reader, imageName string) (*entity.Reward, error) {
	reward := &entity.Reward{
		Name:        req.Name,
		Description: req.Description,
		PointsCost:  req.PointsCost,
		Category:    req.Category,
		Stock:       req.Stock,
		IsAvailable: req.Stock > 0,
	}

	if image != nil && s.imageStorage != nil {
		url, err := s.imageStorage.UploadImage(ctx, image, "rewards", imageName)
		if err != nil {
			return nil, fmt.Errorf("failed to upload reward image: %w", err)
		}
		reward.ImgPath = &url
	}

	if err := s.repo.Create(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *rewardService) GetRewards(ctx context.Context, includeUnavailable bool) ([]*entity.Reward, error) {
	return s.repo.FindAll(ctx, !includeUnavailable)
}

func (s *rewardService) GetReward(ctx context.Context, id uuid.UUID) (*entity.Reward, error) {
	reward, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("reward not found")
		}
		return nil, err
	}
	return reward, nil
}

func (s *rewardService) UpdateReward(ctx context.Context, id uuid.UUID, req dto.UpdateRewardRequest) (*entity.Reward, error) {
	reward, err := s.GetReward(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		reward.Name = *req.Name
	}
	if req.Description != nil {
		reward.Description = *req.Description
	}
	if req.PointsCost != nil {
		reward.PointsCost = *req.PointsCost
	}
	if req.Category != nil {
		reward.Category = *req.Category
	}
	if req.Stock != nil {
		reward.Stock = *req.Stock
		reward.IsAvailable = *req.Stock > 0
	}
	if req.IsAvailable != nil {
		reward.IsAvailable = *req.IsAvailable
	}

	if err := s.repo.Save(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *rewardService) DeleteReward(ctx context.Context, id uuid.UUID) error {
	reward, err := s.GetReward(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if reward.ImgPath != nil && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, *reward.ImgPath); err != nil {
			log.Printf("failed to delete reward image %s: %v", *reward.ImgPath, err)
		}
	}
	return nil
}

func (s *rewardService) Redeem(ctx context.Context, userID, rewardID uuid.UUID) (*dto.RedeemResponse, error) {
	reward, err := s.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.IsAvailable || reward.Stock <= 0 {
		return nil, apperror.Rejected("reward is out of stock")
	}

	debited, err := s.users.DeductPoints(ctx, userID, reward.PointsCost)
	if err != nil {
		return nil, err
	}
	if !debited {
		return nil, apperror.Rejected("insufficient Bayanihan Points")
	}

	claimed, err := s.repo.ClaimOne(ctx, rewardID)
	if err != nil || !claimed {
		// The debit went through but the stock ran out under us. Refund.
		if refundErr := s.users.AddPoints(ctx, userID, reward.PointsCost); refundErr != nil {
			log.Printf("failed to refund %d points to user %s after failed claim of reward %s: %v",
				reward.PointsCost, userID, rewardID, refundErr)
		}
		if err != nil {
			return nil, err
		}
		return nil, apperror.Rejected("reward is out of stock")
	}

	s.leaderboard.InvalidateCache(ctx)

	if err := s.notifier.CreateNotification(ctx, &entity.Notification{
		UserID:     userID,
		EntityID:   reward.ID,
		EntityType: "reward",
		Type:       entity.NotificationRewardClaimed,
		Message:    fmt.Sprintf("You redeemed %q for %d Bayanihan Points.", reward.Name, reward.PointsCost),
	}); err != nil {
		log.Printf("failed to create notification for user %s: %v", userID, err)
	}

	resp := &dto.RedeemResponse{
		RewardName:  reward.Name,
		PointsSpent: reward.PointsCost,
	}
	if user, err := s.users.FindByID(ctx, userID.String()); err == nil {
		resp.RemainingPoints = user.BayanihanPoints
	}
	return resp, nil
}
