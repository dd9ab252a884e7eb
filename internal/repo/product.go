package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
)

type ProductFilter struct {
	Category    models.Category
	StockFilter string // "low" | "out"
	Search      string
	Sort        string
	Offset      int
	Limit       int
}

func productOrder(sort string) string {
	switch sort {
	case "price_asc":
		return "price ASC, title ASC"
	case "price_desc":
		return "price DESC, title ASC"
	case "title_asc":
		return "LOWER(title) ASC, price ASC"
	default:
		return "id ASC"
	}
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	switch f.StockFilter {
	case "low":
		q = q.Where("stock > 0 AND stock <= ?", LowStockThreshold)
	case "out":
		q = q.Where("stock = 0")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(strings.ToLower(s))
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	q = q.Order(productOrder(f.Sort))
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var items []models.Product
	if err := q.Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) (*models.Product, error) {
	if err := r.DB.WithContext(ctx).Create(prod).Error; err != nil {
		return nil, err
	}
	return prod, nil
}

// PatchProduct applies the non-nil fields of req and returns the updated product
// together with the stock it had before the update.
func (r *GormRepo) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, int, error) {
	var prod models.Product
	var prevStock int

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&prod, id).Error; err != nil {
			return err
		}
		prevStock = prod.Stock

		if req.Title != nil {
			prod.Title = *req.Title
		}
		if req.Description != nil {
			prod.Description = *req.Description
		}
		if req.Price != nil {
			prod.Price = *req.Price
		}
		if req.Category != nil {
			prod.Category = models.Category(*req.Category)
		}
		if req.Stock != nil {
			prod.Stock = *req.Stock
		}

		return tx.Save(&prod).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return &prod, prevStock, nil
}

func (r *GormRepo) SetProductMedia(ctx context.Context, id uint, fileID string, video bool) error {
	column := "image_file_id"
	if video {
		column = "video_file_id"
	}
	res := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update(column, fileID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ProductStock(ctx context.Context, id uint) (int, error) {
	var stock int
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Select("stock").Scan(&stock).Error
	return stock, err
}

func (r *GormRepo) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("stock > 0 AND stock <= ?", LowStockThreshold).Count(&n).Error
	return n, err
}

func (r *GormRepo) CountOutOfStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("stock = 0").Count(&n).Error
	return n, err
}

func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Product
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&items).Error
	return items, err
}
