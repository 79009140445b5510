package dto

import (
	"time"

	"bayanika.app/backend/internal/entity"
)

type CreateActivityRequest struct {
	Title           string    `form:"title" json:"title" binding:"required,min=3,max=200"`
	Description     string    `form:"description" json:"description" binding:"required"`
	Location        *string   `form:"location" json:"location"`
	BarangayID      *string   `form:"barangay_id" json:"barangay_id" binding:"omitempty,uuid"`
	Category        string    `form:"category" json:"category" binding:"required,max=50"`
	StartDate       time.Time `form:"start_date" json:"start_date" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate         time.Time `form:"end_date" json:"end_date" binding:"required,gtfield=StartDate" time_format:"2006-01-02T15:04:05Z07:00"`
	BayanihanPoints int       `form:"bayanihan_points" json:"bayanihan_points" binding:"required,gt=0"`
	MaxParticipants int       `form:"max_participants" json:"max_participants" binding:"required,gt=0"`
	Type            string    `form:"type" json:"type" binding:"omitempty,oneof=volunteer event"`
}

type UpdateActivityRequest struct {
	Title           *string    `form:"title" json:"title" binding:"omitempty,min=3,max=200"`
	Description     *string    `form:"description" json:"description"`
	Location        *string    `form:"location" json:"location"`
	Category        *string    `form:"category" json:"category" binding:"omitempty,max=50"`
	StartDate       *time.Time `form:"start_date" json:"start_date" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate         *time.Time `form:"end_date" json:"end_date" time_format:"2006-01-02T15:04:05Z07:00"`
	BayanihanPoints *int       `form:"bayanihan_points" json:"bayanihan_points" binding:"omitempty,gt=0"`
	MaxParticipants *int       `form:"max_participants" json:"max_participants" binding:"omitempty,gt=0"`
	Type            *string    `form:"type" json:"type" binding:"omitempty,oneof=volunteer event"`
	Status          *string    `form:"status" json:"status" binding:"omitempty,oneof=upcoming ongoing completed"`
}

type ActivityFilterQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=upcoming ongoing completed"`
	Category string `form:"category"`
	Limit    int    `form:"limit" binding:"omitempty,gt=0,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,gte=0"`
}

type MarkAttendanceRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid"`
	Present *bool  `json:"present" binding:"required"`
}

type ActivityResponse struct {
	*entity.Activity
	ParticipantCount int `json:"participant_count"`
}

type AttendanceResult struct {
	Present       bool     `json:"present"`
	PointsAwarded int      `json:"points_awarded"`
	NewBadges     []string `json:"new_badges,omitempty"`
}
