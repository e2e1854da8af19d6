package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/model"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	// GetByLogin 按用户名或邮箱查找
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	ExistsUsername(ctx context.Context, username string, exceptID uint64) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id uint64, fields map[string]interface{}) error
	UpdateRole(ctx context.Context, id uint64, role model.Role) error
	List(ctx context.Context, offset, limit int) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository { return &userRepository{db: tx} }

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", login).
		Or("username = ?", login).
		Order("id").
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) ExistsUsername(ctx context.Context, username string, exceptID uint64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *userRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.User
	err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&cnt).Error
	return cnt, err
}
