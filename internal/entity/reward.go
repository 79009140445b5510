package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Reward struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	ImgPath     *string   `gorm:"type:text" json:"img_path,omitempty"`
	PointsCost  int       `gorm:"not null" json:"points_cost"`
	Category    string    `gorm:"size:50;not null" json:"category"`
	Stock       int       `gorm:"not null" json:"stock"`
	Claimed     int       `gorm:"not null;default:0" json:"claimed"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
