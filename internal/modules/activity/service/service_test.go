package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bayanika.app/backend/internal/entity"
	activityRepo "bayanika.app/backend/internal/modules/activity/repository"
	badgeRepo "bayanika.app/backend/internal/modules/badge/repository"
	badgeService "bayanika.app/backend/internal/modules/badge/service"
	gamification "bayanika.app/backend/internal/modules/gamification/service"
	leaderboardRepo "bayanika.app/backend/internal/modules/leaderboard/repository"
	leaderboardService "bayanika.app/backend/internal/modules/leaderboard/service"
	notifRepo "bayanika.app/backend/internal/modules/notification/repository"
	notifService "bayanika.app/backend/internal/modules/notification/service"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Activity{},
		&entity.Participation{},
		&entity.ProofOfWork{},
		&entity.Badge{},
		&entity.UserBadge{},
		&entity.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) ActivityService {
	t.Helper()
	users := userRepo.NewUserRepository(db)
	proofs := proofRepo.NewProofRepository(db)
	badges := badgeRepo.NewBadgeRepository(db)
	notifications := notifRepo.NewNotificationRepository(db)
	leaderboards := leaderboardRepo.NewLeaderboardRepository(db)

	notifier := notifService.NewNotificationService(notifications, nil)
	badgeSvc := badgeService.NewBadgeService(badges, users, proofs)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboards, nil, time.Second)
	awards := gamification.NewGamificationService(users, proofs, badgeSvc, notifier, leaderboardSvc)

	return NewActivityService(activityRepo.NewActivityRepository(db), proofs, awards, nil, nil)
}

func createUser(t *testing.T, db *gorm.DB, username string) *entity.User {
	t.Helper()
	user := &entity.User{
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         entity.RolePublicUser,
		Level:        1,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createActivity(t *testing.T, db *gorm.DB, points, capacity int) *entity.Activity {
	t.Helper()
	activity := &entity.Activity{
		Title:           "Community Clean-Up Drive",
		Description:     "Cleaning up the barangay streets.",
		Category:        "Environment",
		StartDate:       time.Now().Add(24 * time.Hour),
		EndDate:         time.Now().Add(28 * time.Hour),
		BayanihanPoints: points,
		MaxParticipants: capacity,
		Type:            "volunteer",
		Status:          entity.ActivityStatusUpcoming,
	}
	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return activity
}

func TestJoinActivity(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUser(t, db, "juan")
	activity := createActivity(t, db, 50, 10)

	require.NoError(t, svc.Join(ctx, activity.ID, user.ID))

	var count int64
	require.NoError(t, db.Model(&entity.Participation{}).
		Where("activity_id = ?", activity.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestJoinActivityDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUser(t, db, "juan")
	activity := createActivity(t, db, 50, 10)

	require.NoError(t, svc.Join(ctx, activity.ID, user.ID))

	err := svc.Join(ctx, activity.ID, user.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestJoinActivityFull(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	activity := createActivity(t, db, 50, 2)
	for i := 0; i < 2; i++ {
		user := createUser(t, db, fmt.Sprintf("volunteer%d", i))
		require.NoError(t, svc.Join(ctx, activity.ID, user.ID))
	}

	late := createUser(t, db, "latecomer")
	err := svc.Join(ctx, activity.ID, late.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperror.ErrRejected))

	var count int64
	require.NoError(t, db.Model(&entity.Participation{}).
		Where("activity_id = ?", activity.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestJoinAgainOnFullActivityIsConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	activity := createActivity(t, db, 50, 1)
	user := createUser(t, db, "juan")
	require.NoError(t, svc.Join(ctx, activity.ID, user.ID))

	// A seated user re-joining a full roster is a duplicate, not a
	// capacity failure.
	err := svc.Join(ctx, activity.ID, user.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestJoinMissingActivity(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	user := createUser(t, db, "juan")
	err := svc.Join(context.Background(), uuid.New(), user.ID)
	require.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestMarkAttendanceAwardsPoints(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUser(t, db, "juan")
	activity := createActivity(t, db, 75, 10)
	require.NoError(t, svc.Join(ctx, activity.ID, user.ID))

	result, err := svc.MarkAttendance(ctx, activity.ID, user.ID, true)
	require.NoError(t, err)
	require.True(t, result.Present)
	require.Equal(t, 75, result.PointsAwarded)

	var updated entity.User
	require.NoError(t, db.First(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 75, updated.BayanihanPoints)
	require.Equal(t, 1, updated.Level)

	// The award leaves a verified proof behind as the payout marker.
	var proof entity.ProofOfWork
	require.NoError(t, db.Where("user_id = ? AND activity_id = ?", user.ID, activity.ID).
		First(&proof).Error)
	require.True(t, proof.Verified)
}

func TestMarkAttendanceTwicePaysOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUser(t, db, "juan")
	activity := createActivity(t, db, 100, 10)
	require.NoError(t, svc.Join(ctx, activity.ID, user.ID))

	first, err := svc.MarkAttendance(ctx, activity.ID, user.ID, true)
	require.NoError(t, err)
	require.Equal(t, 100, first.PointsAwarded)

	second, err := svc.MarkAttendance(ctx, activity.ID, user.ID, true)
	require.NoError(t, err)
	require.Equal(t, 0, second.PointsAwarded)

	var updated entity.User
	require.NoError(t, db.First(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 100, updated.BayanihanPoints)
}

func TestMarkAttendanceAbsent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUser(t, db, "juan")
	activity := createActivity(t, db, 50, 10)
	require.NoError(t, svc.Join(ctx, activity.ID, user.ID))

	result, err := svc.MarkAttendance(ctx, activity.ID, user.ID, false)
	require.NoError(t, err)
	require.False(t, result.Present)
	require.Equal(t, 0, result.PointsAwarded)

	var updated entity.User
	require.NoError(t, db.First(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 0, updated.BayanihanPoints)

	participation, err := activityRepo.NewActivityRepository(db).FindParticipation(ctx, activity.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, participation.IsPresent)
	require.False(t, *participation.IsPresent)
}

func TestMarkAttendanceWithoutJoin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	user := createUser(t, db, "juan")
	activity := createActivity(t, db, 50, 10)

	_, err := svc.MarkAttendance(context.Background(), activity.ID, user.ID, true)
	require.True(t, errors.Is(err, apperror.ErrNotFound))
}
