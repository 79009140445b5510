package repository

import (
	"context"
	"strings"
	"time"

	"bayanika.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JoinOutcome reports what the capacity-guarded roster insert did.
type JoinOutcome int

const (
	JoinOK JoinOutcome = iota
	JoinDuplicate
	JoinFull
)

type ActivityFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Activity, error)
	FindAll(ctx context.Context, filter ActivityFilter) ([]*entity.Activity, error)
	Save(ctx context.Context, activity *entity.Activity) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AddParticipant appends a roster entry iff the roster is below capacity.
	// The capacity check runs inside the INSERT itself so two concurrent
	// joins cannot both slip under the limit, and the (activity_id, user_id)
	// unique index rejects a duplicate join that races the pre-check.
	AddParticipant(ctx context.Context, activityID, userID uuid.UUID, maxParticipants int, joinedAt time.Time) (JoinOutcome, error)
	FindParticipation(ctx context.Context, activityID, userID uuid.UUID) (*entity.Participation, error)
	SaveParticipation(ctx context.Context, participation *entity.Participation) error
	CountParticipants(ctx context.Context, activityID uuid.UUID) (int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Activity, error) {
	var activity entity.Activity
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&activity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) FindAll(ctx context.Context, filter ActivityFilter) ([]*entity.Activity, error) {
	var activities []*entity.Activity
	query := r.db.WithContext(ctx).Preload("Participants")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("start_date ASC").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepository) Save(ctx context.Context, activity *entity.Activity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Activity{}, "id = ?", id).Error
}

func (r *activityRepository) AddParticipant(ctx context.Context, activityID, userID uuid.UUID, maxParticipants int, joinedAt time.Time) (JoinOutcome, error) {
	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO participations (activity_id, user_id, joined_at)
		 SELECT ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM participations WHERE activity_id = ?) < ?`,
		activityID, userID, joinedAt, activityID, maxParticipants,
	)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return JoinDuplicate, nil
		}
		return JoinFull, res.Error
	}
	if res.RowsAffected == 0 {
		return JoinFull, nil
	}
	return JoinOK, nil
}

func (r *activityRepository) FindParticipation(ctx context.Context, activityID, userID uuid.UUID) (*entity.Participation, error) {
	var participation entity.Participation
	if err := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&participation).Error; err != nil {
		return nil, err
	}
	return &participation, nil
}

func (r *activityRepository) SaveParticipation(ctx context.Context, participation *entity.Participation) error {
	return r.db.WithContext(ctx).Save(participation).Error
}

func (r *activityRepository) CountParticipants(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Participation{}).
		Where("activity_id = ?", activityID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// isUniqueViolation matches the driver-specific duplicate key errors from
// Postgres and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
