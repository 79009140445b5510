package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProofOfWork is a user-submitted claim of having completed an activity,
// pending admin verification. Rejection hard-deletes the record, so the
// composite unique index doubles as the one-proof-per-pair constraint.
type ProofOfWork struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_proof_user_activity" json:"user_id"`
	ActivityID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_proof_user_activity" json:"activity_id"`
	Description   string     `gorm:"type:text;not null" json:"description"`
	ProofURL      *string    `gorm:"type:text" json:"proof_url,omitempty"`
	Impact        *string    `gorm:"type:text" json:"impact,omitempty"`
	Evidence      []string   `gorm:"serializer:json" json:"evidence,omitempty"`
	OnChainTxHash *string    `gorm:"size:80" json:"on_chain_tx_hash,omitempty"`
	NFTTokenID    *string    `gorm:"size:80" json:"nft_token_id,omitempty"`
	Verified      bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *ProofOfWork) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
