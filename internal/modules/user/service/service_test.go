package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bayanika.app/backend/internal/entity"
	badgeRepo "bayanika.app/backend/internal/modules/badge/repository"
	badgeService "bayanika.app/backend/internal/modules/badge/service"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	"bayanika.app/backend/internal/modules/user/dto"
	"bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
)

const testSecret = "test-secret"

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

func newTestService(t *testing.T, db *gorm.DB) UserService {
	t.Helper()
	users := repository.NewUserRepository(db)
	proofs := proofRepo.NewProofRepository(db)
	badges := badgeService.NewBadgeService(badgeRepo.NewBadgeRepository(db), users, proofs)
	return NewUserService(users, proofs, badges, nil, testSecret, time.Hour)
}

func registerInput(username string) dto.RegisterInput {
	return dto.RegisterInput{
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Username:  username,
		Email:     username + "@example.com",
		Password:  "correct horse battery",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerInput("juan"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, entity.RolePublicUser, resp.User.Role)
	require.Equal(t, 1, resp.User.Level)
	require.Empty(t, resp.User.PasswordHash)

	login, err := svc.Login(ctx, dto.LoginInput{
		Email:    "juan@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	// The token subject must resolve back to the user.
	token, err := jwt.ParseWithClaims(login.AccessToken, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)
	require.Equal(t, resp.User.ID.String(), claims.Subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("juan"))
	require.NoError(t, err)

	dup := registerInput("pedro")
	dup.Email = "juan@example.com"
	_, err = svc.Register(ctx, dup)
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("juan"))
	require.NoError(t, err)

	dup := registerInput("juan")
	dup.Email = "other@example.com"
	_, err = svc.Register(ctx, dup)
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("juan"))
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginInput{
		Email:    "juan@example.com",
		Password: "wrong",
	})
	require.True(t, errors.Is(err, apperror.ErrUnauthorized))

	_, err = svc.Login(ctx, dto.LoginInput{
		Email:    "nobody@example.com",
		Password: "wrong",
	})
	require.True(t, errors.Is(err, apperror.ErrUnauthorized))
}

func TestConnectWallet(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerInput("juan"))
	require.NoError(t, err)
	userID := resp.User.ID.String()

	_, err = svc.ConnectWallet(ctx, userID, dto.ConnectWalletInput{WalletAddress: "not-an-address"})
	require.True(t, errors.Is(err, apperror.ErrBadRequest))

	updated, err := svc.ConnectWallet(ctx, userID, dto.ConnectWalletInput{
		WalletAddress: "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.WalletAddress)
	// Stored in checksummed form.
	require.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", *updated.WalletAddress)
}

func TestGetProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerInput("juan"))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, db.Create(&entity.ProofOfWork{
		UserID:      resp.User.ID,
		ActivityID:  uuid.New(),
		Description: "Completed: Medical Mission",
		Verified:    true,
		VerifiedAt:  &now,
	}).Error)

	profile, err := svc.GetProfile(ctx, resp.User.ID.String())
	require.NoError(t, err)
	require.Equal(t, "juan", profile.User.Username)
	require.EqualValues(t, 1, profile.ProofCount)
	require.Empty(t, profile.User.PasswordHash)

	_, err = svc.GetProfile(ctx, uuid.NewString())
	require.True(t, errors.Is(err, apperror.ErrNotFound))
}
