package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"bayanika.app/backend/internal/entity"
	activityRepo "bayanika.app/backend/internal/modules/activity/repository"
	gamification "bayanika.app/backend/internal/modules/gamification/service"
	notifService "bayanika.app/backend/internal/modules/notification/service"
	"bayanika.app/backend/internal/modules/proof/dto"
	"bayanika.app/backend/internal/modules/proof/repository"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
	"bayanika.app/backend/pkg/chain"
	"bayanika.app/backend/pkg/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EvidenceFile is one uploaded evidence image.
type EvidenceFile struct {
	Reader   io.Reader
	FileName string
}

type ProofService interface {
	// SubmitProof files a claim for a joined activity. One proof per user per
	// activity; resubmission after rejection is allowed because rejection
	// deletes the row.
	SubmitProof(ctx context.Context, userID, activityID uuid.UUID, req dto.SubmitProofRequest, evidence []EvidenceFile) (*entity.ProofOfWork, error)
	// ApproveProof verifies a proof and pays the activity's points through
	// the award pipeline. If the pair was already paid, the proof is still
	// verified but no points move.
	ApproveProof(ctx context.Context, proofID uuid.UUID) (*dto.ApproveProofResponse, error)
	RejectProof(ctx context.Context, proofID uuid.UUID, reason string) error
	ListPending(ctx context.Context) ([]dto.PendingProofResponse, error)
	GetUserProofs(ctx context.Context, userID uuid.UUID) ([]*entity.ProofOfWork, error)
	// Mint notarizes a verified proof on-chain at the owner's request. The
	// wallet in the request is adopted as the user's connected wallet when
	// they have none yet.
	Mint(ctx context.Context, userID, proofID uuid.UUID, req dto.MintRequest) (*dto.MintResponse, error)
}

type proofService struct {
	proofs       repository.ProofRepository
	activities   activityRepo.ActivityRepository
	users        userRepo.UserRepository
	awards       gamification.GamificationService
	notifier     notifService.NotificationService
	imageStorage storage.ImageStorage
	notary       chain.Notary
}

func NewProofService(
	proofs repository.ProofRepository,
	activities activityRepo.ActivityRepository,
	users userRepo.UserRepository,
	awards gamification.GamificationService,
	notifier notifService.NotificationService,
	imageStorage storage.ImageStorage,
	notary chain.Notary,
) ProofService {
	return &proofService{
		proofs:       proofs,
		activities:   activities,
		users:        users,
		awards:       awards,
		notifier:     notifier,
		imageStorage: imageStorage,
		notary:       notary,
	}
}

func (s *proofService) SubmitProof(ctx context.Context, userID, activityID uuid.UUID, req dto.SubmitProofRequest, evidence []EvidenceFile) (*entity.ProofOfWork, error) {
	if _, err := s.activities.FindByID(ctx, activityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("activity not found")
		}
		return nil, err
	}

	if _, err := s.activities.FindParticipation(ctx, activityID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Rejected("join the activity before submitting proof")
		}
		return nil, err
	}

	if _, err := s.proofs.FindByUserAndActivity(ctx, userID, activityID); err == nil {
		return nil, apperror.Conflict("proof already submitted for this activity")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var evidenceURLs []string
	if s.imageStorage != nil {
		for _, file := range evidence {
			url, err := s.imageStorage.UploadImage(ctx, file.Reader, "evidence", file.FileName)
			if err != nil {
				return nil, fmt.Errorf("failed to upload evidence: %w", err)
			}
			evidenceURLs = append(evidenceURLs, url)
		}
	}

	proof := &entity.ProofOfWork{
		UserID:      userID,
		ActivityID:  activityID,
		Description: req.Description,
		Impact:      req.Impact,
		ProofURL:    req.ProofURL,
		Evidence:    evidenceURLs,
	}

	if err := s.proofs.Create(ctx, proof); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("proof already submitted for this activity")
		}
		return nil, err
	}

	return proof, nil
}

func (s *proofService) ApproveProof(ctx context.Context, proofID uuid.UUID) (*dto.ApproveProofResponse, error) {
	proof, err := s.proofs.FindByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("proof not found")
		}
		return nil, err
	}

	if proof.Verified {
		return nil, apperror.Conflict("proof is already verified")
	}

	resp := &dto.ApproveProofResponse{}

	// The award runs before the proof flips to verified, so the guard only
	// sees payouts that happened through some other path.
	activity, err := s.activities.FindByID(ctx, proof.ActivityID)
	switch {
	case err == nil:
		award, err := s.awards.Award(ctx, proof.UserID, proof.ActivityID, activity.BayanihanPoints, activity.Title)
		if err != nil {
			return nil, err
		}
		if award.Awarded {
			resp.PointsAwarded = award.Points
			for _, badge := range award.NewBadges {
				resp.NewBadges = append(resp.NewBadges, badge.Name)
			}
		} else {
			resp.AlreadyAwarded = true
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// The activity was deleted after submission. The proof is still
		// legitimate work, so it verifies, but there is nothing to pay.
		log.Printf("approving proof %s for deleted activity %s, no points awarded", proofID, proof.ActivityID)
	default:
		return nil, err
	}

	now := time.Now()
	proof.Verified = true
	proof.VerifiedAt = &now
	if err := s.proofs.Save(ctx, proof); err != nil {
		// The proof never became verified, so the award guard would pay again
		// on a retry. Take the points back before surfacing the failure.
		if resp.PointsAwarded > 0 {
			if revokeErr := s.awards.Revoke(ctx, proof.UserID, resp.PointsAwarded); revokeErr != nil {
				log.Printf("failed to revoke %d points from user %s after approve failure on proof %s: %v",
					resp.PointsAwarded, proof.UserID, proofID, revokeErr)
			}
		}
		return nil, err
	}

	s.notarize(ctx, proof, activity)

	s.notify(ctx, &entity.Notification{
		UserID:     proof.UserID,
		EntityID:   proof.ID,
		EntityType: "proof_of_work",
		Type:       entity.NotificationProofApproved,
		Message:    "Your proof of work has been approved.",
	})

	resp.Proof = proof
	resp.TxHash = proof.OnChainTxHash
	return resp, nil
}

func (s *proofService) RejectProof(ctx context.Context, proofID uuid.UUID, reason string) error {
	proof, err := s.proofs.FindByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("proof not found")
		}
		return err
	}

	if proof.Verified {
		return apperror.Conflict("cannot reject a verified proof")
	}

	// Hard delete. The unique index frees up, so the user can resubmit.
	if err := s.proofs.Delete(ctx, proofID); err != nil {
		return err
	}
	log.Printf("proof %s rejected for user %s: %s", proofID, proof.UserID, reason)

	message := "Your proof of work has been rejected. You may submit a new one."
	if reason != "" {
		message = fmt.Sprintf("Your proof of work has been rejected: %s. You may submit a new one.", reason)
	}
	s.notify(ctx, &entity.Notification{
		UserID:     proof.UserID,
		EntityID:   proof.ActivityID,
		EntityType: "activity",
		Type:       entity.NotificationProofRejected,
		Message:    message,
	})

	return nil
}

func (s *proofService) ListPending(ctx context.Context) ([]dto.PendingProofResponse, error) {
	proofs, err := s.proofs.FindPending(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.PendingProofResponse, 0, len(proofs))
	for _, proof := range proofs {
		item := dto.PendingProofResponse{Proof: proof}

		if user, err := s.users.FindByID(ctx, proof.UserID.String()); err == nil {
			item.User = &dto.UserSummary{
				ID:        user.ID,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Username:  user.Username,
			}
		}

		activity, err := s.activities.FindByID(ctx, proof.ActivityID)
		if err == nil {
			item.Activity = &dto.ActivitySummary{
				ID:              activity.ID,
				Title:           activity.Title,
				BayanihanPoints: activity.BayanihanPoints,
				StartDate:       activity.StartDate,
			}
		} else {
			item.Activity = &dto.ActivitySummary{
				ID:      proof.ActivityID,
				Deleted: true,
			}
		}

		responses = append(responses, item)
	}
	return responses, nil
}

func (s *proofService) GetUserProofs(ctx context.Context, userID uuid.UUID) ([]*entity.ProofOfWork, error) {
	return s.proofs.FindByUser(ctx, userID)
}

func (s *proofService) Mint(ctx context.Context, userID, proofID uuid.UUID, req dto.MintRequest) (*dto.MintResponse, error) {
	if s.notary == nil {
		return nil, apperror.Rejected("on-chain notarization is not enabled")
	}

	proof, err := s.proofs.FindByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("proof not found")
		}
		return nil, err
	}
	if proof.UserID != userID {
		return nil, apperror.Forbidden("not your proof")
	}
	if !proof.Verified {
		return nil, apperror.Rejected("proof must be verified before minting")
	}
	if proof.OnChainTxHash != nil {
		return nil, apperror.Conflict("proof is already on-chain")
	}

	user, err := s.users.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	wallet, err := s.resolveWallet(ctx, user, req.WalletAddress)
	if err != nil {
		return nil, err
	}

	var activity *entity.Activity
	if a, err := s.activities.FindByID(ctx, proof.ActivityID); err == nil {
		activity = a
	}

	metadata, err := proofMetadata(proof, activity)
	if err != nil {
		return nil, err
	}

	txHash, err := s.notary.Mint(ctx, wallet, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to mint proof on-chain: %w", err)
	}

	proof.OnChainTxHash = &txHash
	if err := s.proofs.Save(ctx, proof); err != nil {
		// The mint went out; losing the hash locally is worse than a retry
		// loop, so surface it loudly.
		log.Printf("minted proof %s (tx %s) but failed to persist hash: %v", proofID, txHash, err)
		return nil, err
	}

	// Mirror the hash onto the roster entry so the attendance view can link
	// the transaction. Nothing to mirror if the user never joined (the proof
	// predates a roster wipe) or the activity is gone.
	if participation, err := s.activities.FindParticipation(ctx, proof.ActivityID, userID); err == nil {
		participation.OnChainTxHash = &txHash
		if err := s.activities.SaveParticipation(ctx, participation); err != nil {
			log.Printf("failed to mirror tx %s onto participation for proof %s: %v", txHash, proofID, err)
		}
	}

	return &dto.MintResponse{TxHash: txHash}, nil
}

// resolveWallet picks the mint recipient: the requested address when given,
// the connected wallet otherwise. A requested address becomes the user's
// connected wallet if they had none.
func (s *proofService) resolveWallet(ctx context.Context, user *entity.User, requested string) (string, error) {
	if requested != "" {
		if !common.IsHexAddress(requested) {
			return "", apperror.New(400, "invalid wallet address", apperror.ErrBadRequest)
		}
		checksummed := common.HexToAddress(requested).Hex()
		if user.WalletAddress == nil {
			user.WalletAddress = &checksummed
			if err := s.users.Save(ctx, user); err != nil {
				return "", err
			}
		}
		return checksummed, nil
	}
	if user.WalletAddress == nil {
		return "", apperror.Rejected("connect a wallet before minting")
	}
	return *user.WalletAddress, nil
}

// notarize mints approval on-chain when a notary is configured and the user
// has a wallet. Chain failures never block or undo an approval.
func (s *proofService) notarize(ctx context.Context, proof *entity.ProofOfWork, activity *entity.Activity) {
	if s.notary == nil {
		return
	}

	user, err := s.users.FindByID(ctx, proof.UserID.String())
	if err != nil || user.WalletAddress == nil {
		return
	}

	metadata, err := proofMetadata(proof, activity)
	if err != nil {
		log.Printf("failed to build notarization metadata for proof %s: %v", proof.ID, err)
		return
	}

	txHash, err := s.notary.Mint(ctx, *user.WalletAddress, metadata)
	if err != nil {
		log.Printf("failed to notarize proof %s: %v", proof.ID, err)
		return
	}

	proof.OnChainTxHash = &txHash
	if err := s.proofs.Save(ctx, proof); err != nil {
		log.Printf("notarized proof %s (tx %s) but failed to persist hash: %v", proof.ID, txHash, err)
	}
}

func proofMetadata(proof *entity.ProofOfWork, activity *entity.Activity) ([]byte, error) {
	payload := map[string]any{
		"proof_id":    proof.ID.String(),
		"user_id":     proof.UserID.String(),
		"activity_id": proof.ActivityID.String(),
		"description": proof.Description,
	}
	if activity != nil {
		payload["activity_title"] = activity.Title
	}
	if proof.VerifiedAt != nil {
		payload["verified_at"] = proof.VerifiedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

func (s *proofService) notify(ctx context.Context, n *entity.Notification) {
	if err := s.notifier.CreateNotification(ctx, n); err != nil {
		log.Printf("failed to create notification for user %s: %v", n.UserID, err)
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
