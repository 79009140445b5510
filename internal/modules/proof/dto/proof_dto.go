package dto

import (
	"time"

	"bayanika.app/backend/internal/entity"
	"github.com/google/uuid"
)

type SubmitProofRequest struct {
	Description string  `form:"description" json:"description" binding:"required,min=10"`
	Impact      *string `form:"impact" json:"impact"`
	ProofURL    *string `form:"proof_url" json:"proof_url" binding:"omitempty,url"`
}

type RejectProofRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
}

// ActivitySummary carries the activity fields the verification queue shows.
// Deleted is true when the activity no longer exists; the proof survives it.
type ActivitySummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	BayanihanPoints int       `json:"bayanihan_points"`
	StartDate       time.Time `json:"start_date,omitempty"`
	Deleted         bool      `json:"deleted"`
}

type PendingProofResponse struct {
	Proof    *entity.ProofOfWork `json:"proof"`
	User     *UserSummary        `json:"user,omitempty"`
	Activity *ActivitySummary    `json:"activity"`
}

type ApproveProofResponse struct {
	Proof          *entity.ProofOfWork `json:"proof"`
	PointsAwarded  int                 `json:"points_awarded"`
	AlreadyAwarded bool                `json:"already_awarded"`
	NewBadges      []string            `json:"new_badges,omitempty"`
	TxHash         *string             `json:"tx_hash,omitempty"`
}

// MintRequest optionally carries the wallet to mint to. When omitted the
// user's connected wallet is used.
type MintRequest struct {
	WalletAddress string `json:"wallet_address" binding:"omitempty"`
}

type MintResponse struct {
	TxHash string `json:"tx_hash"`
}
