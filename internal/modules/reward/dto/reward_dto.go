package dto

type CreateRewardRequest struct {
	Name        string `form:"name" json:"name" binding:"required,min=3,max=200"`
	Description string `form:"description" json:"description" binding:"required"`
	PointsCost  int    `form:"points_cost" json:"points_cost" binding:"required,gt=0"`
	Category    string `form:"category" json:"category" binding:"required,max=50"`
	Stock       int    `form:"stock" json:"stock" binding:"required,gte=0"`
}

type UpdateRewardRequest struct {
	Name        *string `form:"name" json:"name" binding:"omitempty,min=3,max=200"`
	Description *string `form:"description" json:"description"`
	PointsCost  *int    `form:"points_cost" json:"points_cost" binding:"omitempty,gt=0"`
	Category    *string `form:"category" json:"category" binding:"omitempty,max=50"`
	Stock       *int    `form:"stock" json:"stock" binding:"omitempty,gte=0"`
	IsAvailable *bool   `form:"is_available" json:"is_available"`
}

type RedeemResponse struct {
	RewardName      string `json:"reward_name"`
	PointsSpent     int    `json:"points_spent"`
	RemainingPoints int    `json:"remaining_points"`
}
