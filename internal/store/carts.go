package store

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/models"

	"github.com/shopspring/decimal"
)

// GetCartByUserID retrieves a user's cart
func (s *Store) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1", userID)
	if err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// GetCartByID retrieves a cart by its ID
func (s *Store) GetCartByID(ctx context.Context, cartID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, "SELECT * FROM carts WHERE id = $1", cartID)
	if err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// CreateCart inserts an empty cart for the user. The unique constraint
// on user_id enforces one cart per user; a concurrent create loses the
// race and reads the winner's row instead.
func (s *Store) CreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, `
		INSERT INTO carts (user_id, total) VALUES ($1, 0)
		RETURNING *`, userID)
	if err != nil {
		if errors.Is(translate(err), ErrDuplicate) {
			return s.GetCartByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &cart, nil
}

// GetCartItem retrieves the cart item for a (cart, product) pair
func (s *Store) GetCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// GetCartItemByID retrieves a cart item scoped to its owner. The
// compound filter keeps other users' items invisible.
func (s *Store) GetCartItemByID(ctx context.Context, itemID, userID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// CreateCartItem inserts a new cart line
func (s *Store) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, user_id, product_id, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, item, query,
		item.CartID, item.UserID, item.ProductID, item.Quantity, item.Subtotal)
	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", translate(err))
	}
	return nil
}

// UpdateCartItem persists a new quantity and subtotal for a cart line
func (s *Store) UpdateCartItem(ctx context.Context, itemID int64, quantity int, subtotal decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $1, subtotal = $2, updated_at = NOW()
		WHERE id = $3`, quantity, subtotal, itemID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
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

// DeleteCartItem removes a cart line scoped to its owner
func (s *Store) DeleteCartItem(ctx context.Context, itemID, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
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

// DeleteCartItems removes every line in the cart
func (s *Store) DeleteCartItems(ctx context.Context, cartID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return err
}

// ListCartItems retrieves all raw cart lines for a cart
func (s *Store) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY id", cartID)
	return items, err
}

// ListCartItemViews retrieves cart lines joined with product details
func (s *Store) ListCartItemViews(ctx context.Context, cartID, userID int64) ([]models.CartItemView, error) {
	views := []models.CartItemView{}
	err := s.db.SelectContext(ctx, &views, `
		SELECT ci.id, ci.product_id, p.name AS product_name,
		       p.price AS product_price, p.image_url AS product_image,
		       ci.quantity, ci.subtotal, p.stock AS stock_available,
		       ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 AND ci.user_id = $2
		ORDER BY ci.id`, cartID, userID)
	return views, err
}

// RecomputeCartTotal resets the cart total to the exact sum of its
// items' subtotals in a single statement, so the derived total can
// never drift from the item rows.
func (s *Store) RecomputeCartTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		UPDATE carts
		SET total = COALESCE(
		        (SELECT SUM(subtotal) FROM cart_items WHERE cart_id = $1), 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING total`, cartID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to recompute cart total: %w", translate(err))
	}
	return total, nil
}
