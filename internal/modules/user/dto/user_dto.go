package dto

import "bayanika.app/backend/internal/entity"

type RegisterInput struct {
	FirstName string `json:"first_name" binding:"required,min=2,max=80"`
	LastName  string `json:"last_name" binding:"required,min=2,max=80"`
	Username  string `json:"username" binding:"required,min=3,max=40"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ConnectWalletInput struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *entity.User `json:"user"`
	SearchToken string       `json:"search_token,omitempty"`
}

type ProfileResponse struct {
	User       *entity.User        `json:"user"`
	Badges     []*entity.UserBadge `json:"badges"`
	ProofCount int64               `json:"proof_count"`
}
