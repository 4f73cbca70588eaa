package store

import (
	"context"
	"fmt"
	"strings"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ProductFilter narrows and orders a catalog listing. SortBy/SortOrder
// are interpolated into SQL and must come from the service's whitelist.
type ProductFilter struct {
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// CreateProduct inserts a new product and fills in generated fields
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, product, query,
		product.Name, product.Description, product.Price, product.Stock, product.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// UpdateProduct persists the product's mutable fields
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4,
		    image_url = $5, updated_at = NOW()
		WHERE id = $6`,
		product.Name, product.Description, product.Price, product.Stock,
		product.ImageURL, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

// DeleteProduct removes a product from the catalog
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

// ListProducts retrieves in-stock products matching the filter plus the
// total match count for pagination
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	where := []string{"stock > 0"}
	args := []interface{}{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var count int64
	countQuery := "SELECT COUNT(*) FROM products WHERE " + whereClause
	if err := s.db.GetContext(ctx, &count, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	listQuery := fmt.Sprintf(
		"SELECT * FROM products WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		whereClause, f.SortBy, f.SortOrder, len(args)-1, len(args))

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, count, nil
}
