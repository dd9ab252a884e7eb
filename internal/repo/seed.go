package repo

import (
	"context"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

var seedProducts = []models.Product{
	{Title: "ASUS ROG Strix G15", Description: "Ryzen 7, RTX 3060, 16 ГБ, 512 ГБ SSD, 15.6\" 144 Гц", Price: 4500, Category: models.CategoryGaming, Stock: 5},
	{Title: "Lenovo Legion 5", Description: "Ryzen 5, RTX 3050 Ti, 16 ГБ, 512 ГБ SSD, 15.6\" 120 Гц", Price: 4200, Category: models.CategoryGaming, Stock: 5},
	{Title: "Acer Aspire 5", Description: "Core i5, 8 ГБ, 256 ГБ SSD, 15.6\" Full HD", Price: 1800, Category: models.CategoryStudy, Stock: 5},
	{Title: "HP Pavilion 15", Description: "Core i5, 8 ГБ, 512 ГБ SSD, 15.6\" Full HD", Price: 2200, Category: models.CategoryStudy, Stock: 5},
	{Title: "Lenovo ThinkPad E15", Description: "Core i7, 16 ГБ, 512 ГБ SSD, 15.6\" IPS", Price: 3200, Category: models.CategoryWork, Stock: 5},
	{Title: "Dell Vostro 15", Description: "Core i5, 8 ГБ, 512 ГБ SSD, 15.6\" Full HD", Price: 2800, Category: models.CategoryWork, Stock: 5},
}

// SeedProducts fills an empty catalog with the starter assortment and reports how many rows it added.
func (r *GormRepo) SeedProducts(ctx context.Context) (int, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	items := make([]models.Product, len(seedProducts))
	copy(items, seedProducts)
	if err := r.DB.WithContext(ctx).Create(&items).Error; err != nil {
		return 0, err
	}
	return len(items), nil
}
