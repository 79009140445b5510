package service

import (
	"context"
	"errors"
	"log"
	"time"

	"bayanika.app/backend/internal/entity"
	badgeService "bayanika.app/backend/internal/modules/badge/service"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	searchService "bayanika.app/backend/internal/modules/search/service"
	"bayanika.app/backend/internal/modules/user/dto"
	"bayanika.app/backend/internal/modules/user/repository"
	"bayanika.app/backend/pkg/apperror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	ConnectWallet(ctx context.Context, userID string, input dto.ConnectWalletInput) (*entity.User, error)
}

type userService struct {
	repo     repository.UserRepository
	proofs   proofRepo.ProofRepository
	badges   badgeService.BadgeService
	search   searchService.SearchService
	secret   string
	tokenTTL time.Duration
}

func NewUserService(
	repo repository.UserRepository,
	proofs proofRepo.ProofRepository,
	badges badgeService.BadgeService,
	search searchService.SearchService,
	secret string,
	tokenTTL time.Duration,
) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 168 * time.Hour
	}
	return &userService{
		repo:     repo,
		proofs:   proofs,
		badges:   badges,
		search:   search,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func (s *userService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, apperror.Conflict("username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashed),
		Role:         entity.RolePublicUser,
		Level:        1,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *userService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(401, "invalid credentials", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.New(401, "invalid credentials", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, err
	}

	badges, err := s.badges.GetUserBadges(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	proofCount, err := s.proofs.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""

	return &dto.ProfileResponse{
		User:       user,
		Badges:     badges,
		ProofCount: proofCount,
	}, nil
}

func (s *userService) ConnectWallet(ctx context.Context, userID string, input dto.ConnectWalletInput) (*entity.User, error) {
	if !common.IsHexAddress(input.WalletAddress) {
		return nil, apperror.New(400, "invalid wallet address", apperror.ErrBadRequest)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, err
	}

	// Normalize to the checksummed form so downstream mints always see the
	// same spelling of the address.
	checksummed := common.HexToAddress(input.WalletAddress).Hex()
	user.WalletAddress = &checksummed
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	var searchToken string
	if s.search != nil {
		st, err := s.search.GenerateSearchToken()
		if err != nil {
			log.Printf("Failed to generate search token for user %s: %v", user.Username, err)
		} else {
			searchToken = st
		}
	}

	user.PasswordHash = ""

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
		SearchToken: searchToken,
	}, nil
}

func (s *userService) generateToken(user *entity.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
