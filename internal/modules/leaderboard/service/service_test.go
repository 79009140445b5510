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
	"bayanika.app/backend/internal/modules/leaderboard/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&entity.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createRankedUser(t *testing.T, db *gorm.DB, username string, points int) {
	t.Helper()
	user := &entity.User{
		FirstName:       "Test",
		LastName:        "User",
		Username:        username,
		Email:           username + "@example.com",
		PasswordHash:    "x",
		Role:            entity.RolePublicUser,
		BayanihanPoints: points,
		Level:           entity.LevelForPoints(points),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestGetLeaderboardOrdering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(repository.NewLeaderboardRepository(db), nil, time.Second)
	ctx := context.Background()

	createRankedUser(t, db, "third", 100)
	createRankedUser(t, db, "first", 900)
	createRankedUser(t, db, "second", 500)

	entries, err := svc.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, "first", entries[0].Username)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "second", entries[1].Username)
	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, "third", entries[2].Username)
	require.Equal(t, 3, entries[2].Rank)
}

func TestGetLeaderboardLimit(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(repository.NewLeaderboardRepository(db), nil, time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createRankedUser(t, db, fmt.Sprintf("user%d", i), i*100)
	}

	entries, err := svc.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "user4", entries[0].Username)
}
