package store

import (
	"context"
	"fmt"

	"shop-service/internal/apperr"
	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// PlaceOrder converts a cart into an order as a single transaction:
// create the order row, snapshot each cart line into an order item at
// the product's current price, decrement stock with a guarded update,
// clear the cart, reset its total. Any failure rolls everything back.
func (s *Store) PlaceOrder(ctx context.Context, cart *models.Cart, items []models.CartItem, paymentMethod string) (*models.Order, []models.OrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	productIDs := make([]int64, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	// Lock product rows for the duration of the transaction. This is the
	// second read the workflow requires: prices are frozen from it and
	// stock is re-verified against it.
	query, args, err := sqlx.In(
		"SELECT * FROM products WHERE id IN (?) FOR UPDATE", productIDs)
	if err != nil {
		return nil, nil, err
	}
	query = tx.Rebind(query)

	var products []models.Product
	if err := tx.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to lock products: %w", err)
	}

	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, item := range items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, nil, apperr.NotFound("Product")
		}
		if product.Stock < item.Quantity {
			return nil, nil, apperr.InsufficientStock(product.Name, product.Stock, item.Quantity)
		}
	}

	order := &models.Order{
		UserID:        cart.UserID,
		Total:         cart.Total,
		Status:        models.OrderStatusPending,
		PaymentMethod: paymentMethod,
	}
	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (user_id, total, status, payment_method)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.Total, order.Status, order.PaymentMethod)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product := productMap[item.ProductID]
		orderItem := models.OrderItem{
			OrderID:   order.ID,
			UserID:    cart.UserID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		}
		err = tx.GetContext(ctx, &orderItem.ID, `
			INSERT INTO order_items (order_id, user_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			orderItem.OrderID, orderItem.UserID, orderItem.ProductID,
			orderItem.Quantity, orderItem.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create order item: %w", err)
		}
		orderItems = append(orderItems, orderItem)

		// Guarded decrement: the stock >= quantity predicate closes the
		// read-then-write race even when the locked read was stale, so
		// stock can never go negative.
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			item.Quantity, item.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, nil, err
		}
		if n == 0 {
			return nil, nil, apperr.InsufficientStock(product.Name, product.Stock, item.Quantity)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1", cart.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE carts SET total = 0, updated_at = NOW() WHERE id = $1", cart.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to reset cart total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, orderItems, nil
}

// GetOrderByID retrieves an order scoped to its owner
func (s *Store) GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 AND user_id = $2", orderID, userID)
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// ListOrders retrieves a user's orders newest-first, optionally filtered
// by status, plus the total match count for pagination
func (s *Store) ListOrders(ctx context.Context, userID int64, status string, limit, offset int) ([]models.Order, int64, error) {
	where := "user_id = $1"
	args := []interface{}{userID}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int64
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"SELECT * FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, count, nil
}

// ListOrderItemViews retrieves order items joined with product details
func (s *Store) ListOrderItemViews(ctx context.Context, orderID int64) ([]models.OrderItemView, error) {
	views := []models.OrderItemView{}
	err := s.db.SelectContext(ctx, &views, `
		SELECT oi.id, oi.product_id, p.name AS product_name,
		       p.image_url AS product_image, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	return views, err
}

// CancelPendingOrder transitions a pending order to cancelled. The
// status predicate makes the transition safe under concurrent updates;
// ErrNoRows means the order is no longer pending (or not the user's).
func (s *Store) CancelPendingOrder(ctx context.Context, orderID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = $4`,
		models.OrderStatusCancelled, orderID, userID, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
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
