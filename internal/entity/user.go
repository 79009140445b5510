package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RolePublicUser = "public_user"
	RoleBarangay   = "barangay"
	RoleAdmin      = "admin"
)

// PointsPerLevel is the BP span of one level; level is always derived as
// floor(points/PointsPerLevel)+1.
const PointsPerLevel = 1000

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName       string    `gorm:"size:100;not null" json:"first_name"`
	LastName        string    `gorm:"size:100;not null" json:"last_name"`
	Username        string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email           string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	GoogleID        *string   `gorm:"size:100" json:"google_id,omitempty"`
	WalletAddress   *string   `gorm:"size:64" json:"wallet_address,omitempty"`
	Role            string    `gorm:"size:20;not null;default:public_user" json:"role"`
	BarangayID      *uuid.UUID `gorm:"type:uuid" json:"barangay_id,omitempty"`
	BayanihanPoints int       `gorm:"not null;default:0" json:"bayanihan_points"`
	XP              int       `gorm:"not null;default:0" json:"xp"`
	Level           int       `gorm:"not null;default:1" json:"level"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// LevelForPoints derives the level for a BP total. Every site that recomputes
// a user's level goes through here.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}
