package repo

import (
	"context"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateAdminIfNotExists(ctx context.Context, u *models.AdminUser) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", u.Username).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAdminExist
	}
	return nil
}

func (r *GormRepo) AdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var u models.AdminUser
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) ListAdmins(ctx context.Context) ([]models.AdminUser, error) {
	var users []models.AdminUser
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *GormRepo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.AdminUser{}).Count(&n).Error
	return n, err
}

func (r *GormRepo) DeleteAdmin(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.AdminUser{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
