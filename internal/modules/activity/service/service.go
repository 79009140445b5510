package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"bayanika.app/backend/internal/entity"
	"bayanika.app/backend/internal/modules/activity/dto"
	"bayanika.app/backend/internal/modules/activity/repository"
	gamification "bayanika.app/backend/internal/modules/gamification/service"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	searchService "bayanika.app/backend/internal/modules/search/service"
	"bayanika.app/backend/pkg/apperror"
	"bayanika.app/backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityService interface {
	CreateActivity(ctx context.Context, req dto.CreateActivityRequest, image io.Reader, imageName string) (*entity.Activity, error)
	GetActivities(ctx context.Context, filter dto.ActivityFilterQuery) ([]dto.ActivityResponse, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*dto.ActivityResponse, error)
	UpdateActivity(ctx context.Context, id uuid.UUID, req dto.UpdateActivityRequest) (*entity.Activity, error)
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	// Join adds the user to the roster. The capacity check and the duplicate
	// check both happen inside the insert, so a full or already-joined
	// activity is reported even under concurrent joins.
	Join(ctx context.Context, activityID, userID uuid.UUID) error
	// MarkAttendance records presence for a participant. Marking present pays
	// the activity's points through the award pipeline unless the user already
	// holds a verified proof for it.
	MarkAttendance(ctx context.Context, activityID, userID uuid.UUID, present bool) (*dto.AttendanceResult, error)
}

type activityService struct {
	repo         repository.ActivityRepository
	proofs       proofRepo.ProofRepository
	awards       gamification.GamificationService
	search       searchService.SearchService
	imageStorage storage.ImageStorage
}

func NewActivityService(
	repo repository.ActivityRepository,
	proofs proofRepo.ProofRepository,
	awards gamification.GamificationService,
	search searchService.SearchService,
	imageStorage storage.ImageStorage,
) ActivityService {
	return &activityService{
		repo:         repo,
		proofs:       proofs,
		awards:       awards,
		search:       search,
		imageStorage: imageStorage,
	}
}

func (s *activityService) CreateActivity(ctx context.Context, req dto.CreateActivityRequest, image io.Reader, imageName string) (*entity.Activity, error) {
	activity := &entity.Activity{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		Category:        req.Category,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		BayanihanPoints: req.BayanihanPoints,
		MaxParticipants: req.MaxParticipants,
		Type:            req.Type,
		Status:          entity.ActivityStatusUpcoming,
	}
	if activity.Type == "" {
		activity.Type = "volunteer"
	}
	if req.BarangayID != nil {
		barangayID, err := uuid.Parse(*req.BarangayID)
		if err != nil {
			return nil, apperror.New(400, "invalid barangay id", apperror.ErrBadRequest)
		}
		activity.BarangayID = &barangayID
	}

	if image != nil && s.imageStorage != nil {
		url, err := s.imageStorage.UploadImage(ctx, image, "activities", imageName)
		if err != nil {
			return nil, fmt.Errorf("failed to upload activity image: %w", err)
		}
		activity.ActivityImg = &url
	}

	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, err
	}

	s.index(activity)

	return activity, nil
}

func (s *activityService) GetActivities(ctx context.Context, filter dto.ActivityFilterQuery) ([]dto.ActivityResponse, error) {
	activities, err := s.repo.FindAll(ctx, repository.ActivityFilter{
		Status:   filter.Status,
		Category: filter.Category,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, dto.ActivityResponse{
			Activity:         activity,
			ParticipantCount: len(activity.Participants),
		})
	}
	return responses, nil
}

func (s *activityService) GetActivity(ctx context.Context, id uuid.UUID) (*dto.ActivityResponse, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("activity not found")
		}
		return nil, err
	}

	return &dto.ActivityResponse{
		Activity:         activity,
		ParticipantCount: len(activity.Participants),
	}, nil
}

func (s *activityService) UpdateActivity(ctx context.Context, id uuid.UUID, req dto.UpdateActivityRequest) (*entity.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("activity not found")
		}
		return nil, err
	}

	if req.Title != nil {
		activity.Title = *req.Title
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Location != nil {
		activity.Location = req.Location
	}
	if req.Category != nil {
		activity.Category = *req.Category
	}
	if req.StartDate != nil {
		activity.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		activity.EndDate = *req.EndDate
	}
	if req.BayanihanPoints != nil {
		activity.BayanihanPoints = *req.BayanihanPoints
	}
	if req.MaxParticipants != nil {
		activity.MaxParticipants = *req.MaxParticipants
	}
	if req.Type != nil {
		activity.Type = *req.Type
	}
	if req.Status != nil {
		activity.Status = *req.Status
	}

	if activity.EndDate.Before(activity.StartDate) {
		return nil, apperror.New(400, "end date must be after start date", apperror.ErrBadRequest)
	}

	if err := s.repo.Save(ctx, activity); err != nil {
		return nil, err
	}

	s.index(activity)

	return activity, nil
}

func (s *activityService) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("activity not found")
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.DeleteActivity(id.String()); err != nil {
			log.Printf("failed to deindex activity %s: %v", id, err)
		}
	}
	if activity.ActivityImg != nil && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, *activity.ActivityImg); err != nil {
			log.Printf("failed to delete activity image %s: %v", *activity.ActivityImg, err)
		}
	}

	return nil
}

func (s *activityService) Join(ctx context.Context, activityID, userID uuid.UUID) error {
	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("activity not found")
		}
		return err
	}

	// The duplicate check runs before the capacity check so a user who
	// already holds a seat on a full roster hears "already joined", not
	// "full". The unique index inside AddParticipant still backstops a
	// concurrent duplicate that slips past this read.
	if _, err := s.repo.FindParticipation(ctx, activityID, userID); err == nil {
		return apperror.Conflict("already joined this activity")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	outcome, err := s.repo.AddParticipant(ctx, activityID, userID, activity.MaxParticipants, time.Now())
	if err != nil {
		return err
	}
	switch outcome {
	case repository.JoinDuplicate:
		return apperror.Conflict("already joined this activity")
	case repository.JoinFull:
		return apperror.Rejected("activity is full")
	}
	return nil
}

func (s *activityService) MarkAttendance(ctx context.Context, activityID, userID uuid.UUID, present bool) (*dto.AttendanceResult, error) {
	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("activity not found")
		}
		return nil, err
	}

	participation, err := s.repo.FindParticipation(ctx, activityID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user has not joined this activity")
		}
		return nil, err
	}

	participation.IsPresent = &present
	if err := s.repo.SaveParticipation(ctx, participation); err != nil {
		return nil, err
	}

	result := &dto.AttendanceResult{Present: present}
	if !present {
		return result, nil
	}

	award, err := s.awards.Award(ctx, userID, activityID, activity.BayanihanPoints, activity.Title)
	if err != nil {
		return nil, err
	}
	if !award.Awarded {
		// A verified proof already paid this pair out. Attendance stays
		// recorded; nothing else moves.
		return result, nil
	}

	if err := s.recordAttendanceProof(ctx, userID, activity); err != nil {
		// Without the verified marker a retry would pay the pair again, so
		// the award is rolled back along with the failure.
		if revokeErr := s.awards.Revoke(ctx, userID, award.Points); revokeErr != nil {
			log.Printf("failed to revoke %d points from user %s after attendance failure on activity %s: %v",
				award.Points, userID, activityID, revokeErr)
		}
		return nil, err
	}

	result.PointsAwarded = award.Points
	for _, badge := range award.NewBadges {
		result.NewBadges = append(result.NewBadges, badge.Name)
	}
	return result, nil
}

// recordAttendanceProof leaves a verified proof row behind so the award guard
// sees this pair as paid. An unverified proof the user already submitted is
// promoted instead of duplicated.
func (s *activityService) recordAttendanceProof(ctx context.Context, userID uuid.UUID, activity *entity.Activity) error {
	now := time.Now()

	existing, err := s.proofs.FindByUserAndActivity(ctx, userID, activity.ID)
	if err == nil {
		existing.Verified = true
		existing.VerifiedAt = &now
		return s.proofs.Save(ctx, existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.proofs.Create(ctx, &entity.ProofOfWork{
		UserID:      userID,
		ActivityID:  activity.ID,
		Description: fmt.Sprintf("Completed: %s", activity.Title),
		Verified:    true,
		VerifiedAt:  &now,
	})
}

func (s *activityService) index(activity *entity.Activity) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexActivity(activity); err != nil {
		log.Printf("failed to index activity %s: %v", activity.ID, err)
	}
}
