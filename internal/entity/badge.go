package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BadgeCategoryPoints        = "points"
	BadgeCategoryLevel         = "level"
	BadgeCategoryFirstActivity = "first_activity"
)

type Badge struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	ImgPath     *string   `gorm:"type:text" json:"img_path,omitempty"`
	Category    string    `gorm:"size:30;not null" json:"category"`
	Rarity      string    `gorm:"size:20;not null;default:common" json:"rarity"`
	// BayanihanPointsRequired is the threshold for both the points and the
	// level categories; level badges read it as a level number.
	BayanihanPointsRequired int       `gorm:"not null;default:0" json:"bayanihan_points_required"`
	NFTTokenID              *string   `gorm:"size:80" json:"nft_token_id,omitempty"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserBadge records one earned badge. The composite unique index keeps the
// badge set duplicate-free no matter how often the evaluator runs.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`

	Badge *Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}
