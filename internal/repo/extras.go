package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

// ToggleFavorite adds or removes the product from the user's favourites and reports the new state.
func (r *GormRepo) ToggleFavorite(ctx context.Context, userID int64, productID uint) (bool, error) {
	added := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Create(&models.Favorite{UserID: userID, ProductID: productID}).Error
	})
	return added, err
}

func (r *GormRepo) IsFavorite(ctx context.Context, userID int64, productID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) FavoriteProducts(ctx context.Context, userID int64) ([]models.Product, error) {
	var items []models.Product
	err := r.DB.WithContext(ctx).
		Joins("JOIN favorites ON favorites.product_id = products.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *GormRepo) AddReview(ctx context.Context, review *models.Review) error {
	return r.DB.WithContext(ctx).Create(review).Error
}

// SubscribeStock registers the user for a restock message; repeated calls are no-ops.
func (r *GormRepo) SubscribeStock(ctx context.Context, userID int64, productID uint) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.StockSubscription{UserID: userID, ProductID: productID}).Error
}

// TakeStockSubscribers returns and removes every subscriber of the product.
func (r *GormRepo) TakeStockSubscribers(ctx context.Context, productID uint) ([]int64, error) {
	var ids []int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.StockSubscription{}).
			Where("product_id = ?", productID).
			Order("id ASC").
			Pluck("user_id", &ids).Error; err != nil {
			return err
		}
		return tx.Where("product_id = ?", productID).Delete(&models.StockSubscription{}).Error
	})
	return ids, err
}

func (r *GormRepo) LogAIMessage(ctx context.Context, userID int64, role, content string) error {
	return r.DB.WithContext(ctx).Create(&models.AIMessage{UserID: userID, Role: role, Content: content}).Error
}

// AIHistory returns the latest limit messages in chronological order.
func (r *GormRepo) AIHistory(ctx context.Context, userID int64, limit int) ([]models.AIMessage, error) {
	var msgs []models.AIMessage
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
