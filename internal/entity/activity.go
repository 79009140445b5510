package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActivityStatusUpcoming  = "upcoming"
	ActivityStatusOngoing   = "ongoing"
	ActivityStatusCompleted = "completed"
)

type Activity struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	ActivityImg     *string    `gorm:"type:text" json:"activity_img,omitempty"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	Location        *string    `gorm:"size:200" json:"location,omitempty"`
	BarangayID      *uuid.UUID `gorm:"type:uuid" json:"barangay_id,omitempty"`
	Category        string     `gorm:"size:50" json:"category"`
	StartDate       time.Time  `gorm:"not null" json:"start_date"`
	EndDate         time.Time  `gorm:"not null" json:"end_date"`
	BayanihanPoints int        `gorm:"not null" json:"bayanihan_points"`
	MaxParticipants int        `gorm:"not null;default:50" json:"max_participants"`
	Type            string     `gorm:"size:50;not null;default:volunteer" json:"type"`
	// Status is advisory: upcoming -> ongoing -> completed. Nothing in the
	// workflow gates on it.
	Status       string          `gorm:"size:20;not null;default:upcoming" json:"status"`
	Participants []Participation `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Participation is one roster entry linking a user to an activity they
// joined. The composite unique index is what makes "at most one entry per
// user per activity" hold even under concurrent joins.
type Participation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_user" json:"activity_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_user" json:"user_id"`
	JoinedAt   time.Time `gorm:"not null" json:"joined_at"`
	// IsPresent is tri-state: nil until attendance is marked.
	IsPresent     *bool   `json:"is_present"`
	ProofOfWork   *string `gorm:"type:text" json:"proof_of_work,omitempty"`
	OnChainTxHash *string `gorm:"size:80" json:"on_chain_tx_hash,omitempty"`
}
