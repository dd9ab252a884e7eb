package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

var (
	ErrOutOfStock = errors.New("out of stock")
	ErrNotShipped = errors.New("order is not shipped")
	ErrAdminExist = errors.New("admin already exist")
)

const LowStockThreshold = 2

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(models.All()...)
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func likePattern(q string) string {
	return "%" + q + "%"
}
