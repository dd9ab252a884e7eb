package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

// EnsureUser creates the user on first contact and refreshes username/full name afterwards.
func (r *GormRepo) EnsureUser(ctx context.Context, id int64, username, fullName string) error {
	u := models.User{ID: id, Username: username, FullName: fullName, Lang: models.LangRU}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "full_name", "updated_at"}),
	}).Create(&u).Error
}

func (r *GormRepo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserLang returns the stored language, ru for unknown users.
func (r *GormRepo) UserLang(ctx context.Context, id int64) models.Lang {
	u, err := r.GetUser(ctx, id)
	if err != nil || u.Lang == "" {
		return models.LangRU
	}
	return u.Lang
}

func (r *GormRepo) SetUserLang(ctx context.Context, id int64, lang models.Lang) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("lang", lang)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.DB.WithContext(ctx).Create(&models.User{ID: id, Lang: lang}).Error
	}
	return nil
}

func (r *GormRepo) SaveLastAddress(ctx context.Context, id int64, city, address string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"last_city": city, "last_address": address})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.DB.WithContext(ctx).Create(&models.User{
			ID: id, Lang: models.LangRU, LastCity: city, LastAddress: address,
		}).Error
	}
	return nil
}

// LastAddress returns the last used city and address; ok is false when none is stored.
func (r *GormRepo) LastAddress(ctx context.Context, id int64) (city, address string, ok bool, err error) {
	u, err := r.GetUser(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return u.LastCity, u.LastAddress, u.LastCity != "", nil
}
