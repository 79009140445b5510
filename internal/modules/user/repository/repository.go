package repository

import (
	"context"

	"bayanika.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	Save(ctx context.Context, user *entity.User) error
	// AddPoints atomically credits BP and recomputes the level in the same
	// statement, so concurrent awards cannot observe a stale balance.
	AddPoints(ctx context.Context, userID uuid.UUID, points int) error
	// DeductPoints debits BP only when the balance covers the cost; the level
	// is recomputed in the same statement. Returns false when the balance was
	// insufficient.
	DeductPoints(ctx context.Context, userID uuid.UUID, cost int) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Save(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) AddPoints(ctx context.Context, userID uuid.UUID, points int) error {
	// Integer division keeps level = floor(points/1000)+1 in both Postgres
	// and SQLite.
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"bayanihan_points": gorm.Expr("bayanihan_points + ?", points),
			"level":            gorm.Expr("(bayanihan_points + ?) / ? + 1", points, entity.PointsPerLevel),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) DeductPoints(ctx context.Context, userID uuid.UUID, cost int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ? AND bayanihan_points >= ?", userID, cost).
		Updates(map[string]interface{}{
			"bayanihan_points": gorm.Expr("bayanihan_points - ?", cost),
			"level":            gorm.Expr("(bayanihan_points - ?) / ? + 1", cost, entity.PointsPerLevel),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
