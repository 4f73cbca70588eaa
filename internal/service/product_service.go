package service

import (
	"context"
	"errors"

	"shop-service/internal/apperr"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductStore is the persistence surface the catalog service needs
type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error)
}

// ProductService handles catalog reads and admin mutations
type ProductService struct {
	store  ProductStore
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store ProductStore) *ProductService {
	return &ProductService{store: store, logger: util.GetLogger()}
}

// ListProductsParams narrows a catalog listing
type ListProductsParams struct {
	Page      int
	Limit     int
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    string
	SortOrder string
}

// Sortable catalog columns, request name to column
var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"createdAt": "created_at",
	"stock":     "stock",
}

// ListProducts returns in-stock products matching the params with
// pagination metadata, which is present even on empty result sets
func (s *ProductService) ListProducts(ctx context.Context, p ListProductsParams) ([]models.Product, models.Pagination, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 10
	}

	sortBy, ok := productSortColumns[p.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if p.SortOrder == "ASC" || p.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	products, count, err := s.store.ListProducts(ctx, store.ProductFilter{
		Search:    p.Search,
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Limit:     p.Limit,
		Offset:    (p.Page - 1) * p.Limit,
	})
	if err != nil {
		return nil, models.Pagination{}, apperr.Internal("failed to list products", err)
	}
	return products, models.NewPagination(p.Page, p.Limit, count), nil
}

// GetProduct retrieves one product
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Product")
		}
		return nil, apperr.Internal("failed to fetch product", err)
	}
	return product, nil
}

// CreateProductInput carries the fields for a new catalog entry
type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    *string
}

// CreateProduct adds a product to the catalog
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	if err := validateProductFields(in.Name, in.Description, in.Price, in.Stock); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, apperr.Internal("failed to create product", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return product, nil
}

// UpdateProductInput carries a partial update; nil fields are unchanged
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    *string
}

// UpdateProduct applies a partial update to a product
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in UpdateProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.ImageURL != nil {
		product.ImageURL = in.ImageURL
	}

	if err := validateProductFields(product.Name, product.Description, product.Price, product.Stock); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Product")
		}
		return nil, apperr.Internal("failed to update product", err)
	}
	return product, nil
}

// DeleteProduct removes a product from the catalog
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return apperr.NotFound("Product")
		}
		return apperr.Internal("failed to delete product", err)
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func validateProductFields(name, description string, price decimal.Decimal, stock int) error {
	if len(name) < 2 || len(name) > 100 {
		return apperr.InvalidArgument("Product name must be between 2 and 100 characters")
	}
	if len(description) > 1000 {
		return apperr.InvalidArgument("Description must be at most 1000 characters")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return apperr.InvalidArgument("Price must be greater than 0")
	}
	if stock < 0 {
		return apperr.InvalidArgument("Stock must not be negative")
	}
	return nil
}
