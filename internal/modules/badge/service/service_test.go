package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bayanika.app/backend/internal/entity"
	badgeRepo "bayanika.app/backend/internal/modules/badge/repository"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
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
		&entity.ProofOfWork{},
		&entity.Badge{},
		&entity.UserBadge{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) BadgeService {
	t.Helper()
	return NewBadgeService(
		badgeRepo.NewBadgeRepository(db),
		userRepo.NewUserRepository(db),
		proofRepo.NewProofRepository(db),
	)
}

func createUser(t *testing.T, db *gorm.DB, points int) *entity.User {
	t.Helper()
	user := &entity.User{
		FirstName:       "Jose",
		LastName:        "Rizal",
		Username:        fmt.Sprintf("jose%s", uuid.NewString()[:8]),
		Email:           fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PasswordHash:    "x",
		Role:            entity.RolePublicUser,
		BayanihanPoints: points,
		Level:           entity.LevelForPoints(points),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createBadge(t *testing.T, db *gorm.DB, name, category string, threshold int) *entity.Badge {
	t.Helper()
	badge := &entity.Badge{
		Name:                    name,
		Description:             name,
		Category:                category,
		Rarity:                  "common",
		BayanihanPointsRequired: threshold,
	}
	if err := db.Create(badge).Error; err != nil {
		t.Fatalf("create badge: %v", err)
	}
	return badge
}

func TestEvaluatePointsBadges(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	createBadge(t, db, "Helping Hand", entity.BadgeCategoryPoints, 100)
	createBadge(t, db, "Community Pillar", entity.BadgeCategoryPoints, 500)

	user := createUser(t, db, 150)

	earned, err := svc.EvaluateBadges(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.Equal(t, "Helping Hand", earned[0].Name)
}

func TestEvaluateLevelBadge(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	// Level badges read the threshold field as a level number.
	createBadge(t, db, "Rising Star", entity.BadgeCategoryLevel, 3)

	low := createUser(t, db, 1500) // level 2
	earned, err := svc.EvaluateBadges(ctx, low.ID)
	require.NoError(t, err)
	require.Empty(t, earned)

	high := createUser(t, db, 2500) // level 3
	earned, err = svc.EvaluateBadges(ctx, high.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.Equal(t, "Rising Star", earned[0].Name)
}

func TestEvaluateFirstActivityBadge(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	createBadge(t, db, "First Step", entity.BadgeCategoryFirstActivity, 0)
	user := createUser(t, db, 0)

	earned, err := svc.EvaluateBadges(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, earned)

	now := time.Now()
	require.NoError(t, db.Create(&entity.ProofOfWork{
		UserID:      user.ID,
		ActivityID:  uuid.New(),
		Description: "Completed: Community Clean-Up Drive",
		Verified:    true,
		VerifiedAt:  &now,
	}).Error)

	earned, err = svc.EvaluateBadges(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.Equal(t, "First Step", earned[0].Name)
}

func TestEvaluateBadgesIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	createBadge(t, db, "Helping Hand", entity.BadgeCategoryPoints, 100)
	user := createUser(t, db, 150)

	earned, err := svc.EvaluateBadges(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)

	earned, err = svc.EvaluateBadges(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, earned)

	owned, err := svc.GetUserBadges(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.NotNil(t, owned[0].Badge)
	require.Equal(t, "Helping Hand", owned[0].Badge.Name)
}
