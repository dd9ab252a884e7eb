package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/notify"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
	"github.com/Skotchmaster/laptop_shop/pkg/mykafka"
)

// Indexer mirrors the catalog into a search engine.
type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	RemoveProduct(ctx context.Context, id uint) error
	SearchIDs(ctx context.Context, query string, limit int) ([]uint, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Notify *notify.Dispatcher
	Events mykafka.Publisher
	// Index is nil when no search engine is configured.
	Index Indexer
}

const MinSearchQuery = 2

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	return p, translate(err, "product")
}

func (s *CatalogService) List(ctx context.Context, f repo.ProductFilter) (int64, []models.Product, error) {
	if f.StockFilter != "" && f.StockFilter != "low" && f.StockFilter != "out" {
		return 0, nil, fmt.Errorf("%w: stock_filter must be low or out", ErrValidation)
	}
	return s.Repo.ListProducts(ctx, f)
}

func (s *CatalogService) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	p, err := s.Repo.CreateProduct(ctx, &models.Product{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    category,
		Stock:       req.Stock,
		ImageFileID: req.ImageFileID,
		VideoFileID: req.VideoFileID,
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, EventProductCreated, p)
	return p, nil
}

// Patch applies the set fields of req. Moving stock from zero to a positive
// value tells every restock subscriber.
func (s *CatalogService) Patch(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, error) {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		req.Title = &t
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	if req.Category != nil {
		if _, err := models.ParseCategory(*req.Category); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	p, prevStock, err := s.Repo.PatchProduct(ctx, req, id)
	if err != nil {
		return nil, translate(err, "product")
	}

	if prevStock == 0 && p.Stock > 0 && s.Notify != nil {
		n := s.Notify.StockAvailable(ctx, p)
		logging.FromContext(ctx).Info("restock_notified", "product_id", p.ID, "subscribers", n)
	}
	s.afterWrite(ctx, EventProductUpdated, p)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return translate(err, "product")
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return translate(err, "product")
	}

	mykafka.Publish(ctx, s.Events, mykafka.TopicProductEvents, productKey(id), ProductEvent(EventProductDeleted, p))
	if s.Index != nil {
		if err := s.Index.RemoveProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_remove_failed", "product_id", id, "error", err)
		}
	}
	return nil
}

// SetMedia stores the chat-platform file reference of the product image or video.
func (s *CatalogService) SetMedia(ctx context.Context, id uint, fileID string, video bool) (*models.Product, error) {
	if err := s.Repo.SetProductMedia(ctx, id, fileID, video); err != nil {
		return nil, translate(err, "product")
	}
	return s.Get(ctx, id)
}

// Search looks products up in the search engine and falls back to a LIKE match
// on title and description when it is missing or failing.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchQuery {
		return nil, fmt.Errorf("%w: query must be at least %d characters", ErrValidation, MinSearchQuery)
	}

	if s.Index != nil {
		ids, err := s.Index.SearchIDs(ctx, query, limit)
		if err == nil {
			return s.productsInOrder(ctx, ids)
		}
		logging.FromContext(ctx).Warn("search_engine_failed", "query", query, "error", err)
	}

	_, items, err := s.Repo.ListProducts(ctx, repo.ProductFilter{Search: query, Sort: "title_asc", Limit: limit})
	return items, err
}

func (s *CatalogService) productsInOrder(ctx context.Context, ids []uint) ([]models.Product, error) {
	found, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Reindex copies the whole catalog into the search engine.
func (s *CatalogService) Reindex(ctx context.Context) error {
	if s.Index == nil {
		return nil
	}
	_, items, err := s.Repo.ListProducts(ctx, repo.ProductFilter{})
	if err != nil {
		return err
	}
	for i := range items {
		if err := s.Index.IndexProduct(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *CatalogService) afterWrite(ctx context.Context, typ string, p *models.Product) {
	mykafka.Publish(ctx, s.Events, mykafka.TopicProductEvents, productKey(p.ID), ProductEvent(typ, p))
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
		}
	}
}
