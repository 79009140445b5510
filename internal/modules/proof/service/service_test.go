package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
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
	"bayanika.app/backend/internal/modules/proof/dto"
	"bayanika.app/backend/internal/modules/proof/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
	"bayanika.app/backend/pkg/chain"
)

type fixture struct {
	db     *gorm.DB
	svc    ProofService
	proofs repository.ProofRepository
}

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

func newFixture(t *testing.T, notary chain.Notary) *fixture {
	t.Helper()
	db := setupTestDB(t)

	users := userRepo.NewUserRepository(db)
	activities := activityRepo.NewActivityRepository(db)
	proofs := repository.NewProofRepository(db)
	badges := badgeRepo.NewBadgeRepository(db)
	notifications := notifRepo.NewNotificationRepository(db)
	leaderboards := leaderboardRepo.NewLeaderboardRepository(db)

	notifier := notifService.NewNotificationService(notifications, nil)
	badgeSvc := badgeService.NewBadgeService(badges, users, proofs)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboards, nil, time.Second)
	awards := gamification.NewGamificationService(users, proofs, badgeSvc, notifier, leaderboardSvc)

	return &fixture{
		db:     db,
		svc:    NewProofService(proofs, activities, users, awards, notifier, nil, notary),
		proofs: proofs,
	}
}

func (f *fixture) createUser(t *testing.T, username string) *entity.User {
	t.Helper()
	user := &entity.User{
		FirstName:    "Maria",
		LastName:     "Santos",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         entity.RolePublicUser,
		Level:        1,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (f *fixture) createActivity(t *testing.T, points int) *entity.Activity {
	t.Helper()
	activity := &entity.Activity{
		Title:           "Tree Planting Activity",
		Description:     "Planting trees in the community park.",
		Category:        "Environment",
		StartDate:       time.Now().Add(24 * time.Hour),
		EndDate:         time.Now().Add(28 * time.Hour),
		BayanihanPoints: points,
		MaxParticipants: 50,
		Type:            "volunteer",
		Status:          entity.ActivityStatusUpcoming,
	}
	if err := f.db.Create(activity).Error; err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return activity
}

func (f *fixture) join(t *testing.T, activityID, userID uuid.UUID) {
	t.Helper()
	participation := &entity.Participation{
		ActivityID: activityID,
		UserID:     userID,
		JoinedAt:   time.Now(),
	}
	if err := f.db.Create(participation).Error; err != nil {
		t.Fatalf("join activity: %v", err)
	}
}

func submitRequest() dto.SubmitProofRequest {
	return dto.SubmitProofRequest{Description: "Planted 10 seedlings near the creek."}
}

func TestSubmitProofRequiresJoin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)

	_, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.True(t, errors.Is(err, apperror.ErrRejected))
}

func TestSubmitProofDuplicate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	_, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	_, err = f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestApproveProofAwardsPoints(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 1200)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	resp, err := f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)
	require.Equal(t, 1200, resp.PointsAwarded)
	require.False(t, resp.AlreadyAwarded)
	require.True(t, resp.Proof.Verified)
	require.NotNil(t, resp.Proof.VerifiedAt)

	var updated entity.User
	require.NoError(t, f.db.First(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 1200, updated.BayanihanPoints)
	require.Equal(t, 2, updated.Level)
}

func TestApproveProofTwiceRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	_, err = f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveProof(ctx, proof.ID)
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestAwardGuardIsPerActivity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")

	// An attendance payout already happened for a different activity.
	other := f.createActivity(t, 100)
	f.join(t, other.ID, user.ID)
	now := time.Now()
	require.NoError(t, f.proofs.Create(ctx, &entity.ProofOfWork{
		UserID:      user.ID,
		ActivityID:  other.ID,
		Description: "Completed: Tree Planting Activity",
		Verified:    true,
		VerifiedAt:  &now,
	}))

	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)
	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	// The guard only blocks payouts for the same activity, so this one pays.
	resp, err := f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)
	require.Equal(t, 100, resp.PointsAwarded)
	require.False(t, resp.AlreadyAwarded)
}

func TestApproveProofForDeletedActivity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&entity.Activity{}, "id = ?", activity.ID).Error)

	resp, err := f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)
	require.True(t, resp.Proof.Verified)
	require.Equal(t, 0, resp.PointsAwarded)

	var updated entity.User
	require.NoError(t, f.db.First(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 0, updated.BayanihanPoints)
}

func TestRejectProofAllowsResubmission(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.RejectProof(ctx, proof.ID, "photo is too blurry"))

	_, err = f.proofs.FindByID(ctx, proof.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)
}

func TestRejectVerifiedProofFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	_, err = f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)

	err = f.svc.RejectProof(ctx, proof.ID, "")
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestListPendingResolvesDeletedActivity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	_, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&entity.Activity{}, "id = ?", activity.ID).Error)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.True(t, pending[0].Activity.Deleted)
	require.Equal(t, activity.ID, pending[0].Activity.ID)
	require.Equal(t, "maria", pending[0].User.Username)
}

// flakySaveRepo fails a fixed number of Save calls before delegating.
type flakySaveRepo struct {
	repository.ProofRepository
	failures int
}

func (r *flakySaveRepo) Save(ctx context.Context, proof *entity.ProofOfWork) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("save failed")
	}
	return r.ProofRepository.Save(ctx, proof)
}

func TestApproveProofRetryAfterSaveFailurePaysOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	users := userRepo.NewUserRepository(db)
	activities := activityRepo.NewActivityRepository(db)
	proofs := repository.NewProofRepository(db)
	flaky := &flakySaveRepo{ProofRepository: proofs, failures: 1}
	badges := badgeRepo.NewBadgeRepository(db)
	notifications := notifRepo.NewNotificationRepository(db)
	leaderboards := leaderboardRepo.NewLeaderboardRepository(db)

	notifier := notifService.NewNotificationService(notifications, nil)
	badgeSvc := badgeService.NewBadgeService(badges, users, proofs)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboards, nil, time.Second)
	awards := gamification.NewGamificationService(users, proofs, badgeSvc, notifier, leaderboardSvc)
	svc := NewProofService(flaky, activities, users, awards, notifier, nil, nil)

	f := &fixture{db: db, svc: svc, proofs: proofs}
	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 150)
	f.join(t, activity.ID, user.ID)

	proof, err := svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	// The verified flip fails after the award paid out; the points must come
	// back or a retry would pay the pair twice.
	_, err = svc.ApproveProof(ctx, proof.ID)
	require.Error(t, err)

	var after entity.User
	require.NoError(t, f.db.First(&after, "id = ?", user.ID).Error)
	require.Equal(t, 0, after.BayanihanPoints)

	stored, err := proofs.FindByID(ctx, proof.ID)
	require.NoError(t, err)
	require.False(t, stored.Verified)

	resp, err := svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)
	require.Equal(t, 150, resp.PointsAwarded)
	require.False(t, resp.AlreadyAwarded)

	require.NoError(t, f.db.First(&after, "id = ?", user.ID).Error)
	require.Equal(t, 150, after.BayanihanPoints)
}

type stubNotary struct {
	minted    int
	recipient string
	metadata  []byte
}

func (s *stubNotary) Mint(ctx context.Context, recipient string, metadata []byte) (string, error) {
	s.minted++
	s.recipient = recipient
	s.metadata = metadata
	return "0xdeadbeef", nil
}

func (s *stubNotary) Verify(ctx context.Context, txHash string) (bool, error) {
	return txHash == "0xdeadbeef", nil
}

func TestApproveProofNotarizesWithWallet(t *testing.T) {
	notary := &stubNotary{}
	f := newFixture(t, notary)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	wallet := "0x00000000000000000000000000000000000000aa"
	require.NoError(t, f.db.Model(&entity.User{}).
		Where("id = ?", user.ID).
		Update("wallet_address", wallet).Error)

	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	resp, err := f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)
	require.Equal(t, 1, notary.minted)
	require.Equal(t, wallet, notary.recipient)
	require.NotNil(t, resp.TxHash)
	require.Equal(t, "0xdeadbeef", *resp.TxHash)
}

func TestMintRequiresVerifiedProofAndWallet(t *testing.T) {
	notary := &stubNotary{}
	f := newFixture(t, notary)
	ctx := context.Background()

	user := f.createUser(t, "maria")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, user.ID)

	proof, err := f.svc.SubmitProof(ctx, user.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	_, err = f.svc.Mint(ctx, user.ID, proof.ID, dto.MintRequest{})
	require.True(t, errors.Is(err, apperror.ErrRejected))

	// Without a wallet, approval verifies but does not notarize.
	_, err = f.svc.ApproveProof(ctx, proof.ID)
	require.NoError(t, err)
	require.Equal(t, 0, notary.minted)

	_, err = f.svc.Mint(ctx, user.ID, proof.ID, dto.MintRequest{})
	require.True(t, errors.Is(err, apperror.ErrRejected))

	// Minting to a requested wallet adopts it as the connected wallet and
	// mirrors the hash onto the roster entry.
	wallet := "0x00000000000000000000000000000000000000aa"
	resp, err := f.svc.Mint(ctx, user.ID, proof.ID, dto.MintRequest{WalletAddress: wallet})
	require.NoError(t, err)
	require.Equal(t, "0xdeadbeef", resp.TxHash)
	require.Equal(t, common.HexToAddress(wallet).Hex(), notary.recipient)

	var updated entity.User
	require.NoError(t, f.db.First(&updated, "id = ?", user.ID).Error)
	require.NotNil(t, updated.WalletAddress)
	require.Equal(t, common.HexToAddress(wallet).Hex(), *updated.WalletAddress)

	var participation entity.Participation
	require.NoError(t, f.db.
		Where("activity_id = ? AND user_id = ?", activity.ID, user.ID).
		First(&participation).Error)
	require.NotNil(t, participation.OnChainTxHash)
	require.Equal(t, "0xdeadbeef", *participation.OnChainTxHash)

	// A second mint is refused once the hash is stored.
	_, err = f.svc.Mint(ctx, user.ID, proof.ID, dto.MintRequest{})
	require.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestMintRejectsForeignProof(t *testing.T) {
	notary := &stubNotary{}
	f := newFixture(t, notary)
	ctx := context.Background()

	owner := f.createUser(t, "maria")
	intruder := f.createUser(t, "pedro")
	activity := f.createActivity(t, 100)
	f.join(t, activity.ID, owner.ID)

	proof, err := f.svc.SubmitProof(ctx, owner.ID, activity.ID, submitRequest(), nil)
	require.NoError(t, err)

	_, err = f.svc.Mint(ctx, intruder.ID, proof.ID, dto.MintRequest{})
	require.True(t, errors.Is(err, apperror.ErrForbidden))
}
