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

// CartStore is the persistence surface the cart service needs
type CartStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	CreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	GetCartItemByID(ctx context.Context, itemID, userID int64) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int, subtotal decimal.Decimal) error
	DeleteCartItem(ctx context.Context, itemID, userID int64) error
	DeleteCartItems(ctx context.Context, cartID int64) error
	ListCartItemViews(ctx context.Context, cartID, userID int64) ([]models.CartItemView, error)
	RecomputeCartTotal(ctx context.Context, cartID int64) (decimal.Decimal, error)
}

// CartService maintains one active cart per user. Every mutation ends by
// recomputing the cart total from the full item set, so the derived
// total never drifts from the items.
type CartService struct {
	store  CartStore
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore) *CartService {
	return &CartService{store: store, logger: util.GetLogger()}
}

// CartView is a cart plus its item list joined with product details
type CartView struct {
	ID        int64                 `json:"id"`
	UserID    int64                 `json:"user_id"`
	Total     decimal.Decimal       `json:"total"`
	Items     []models.CartItemView `json:"items"`
	ItemCount int                   `json:"itemCount"`
}

// GetOrCreateCart returns the user's cart, creating an empty one if absent
func (s *CartService) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrNoRows) {
		return nil, apperr.Internal("failed to fetch cart", err)
	}

	cart, err = s.store.CreateCart(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to create cart", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the user's cart. If the
// product is already in the cart the quantities merge and the subtotal
// is recomputed from the product's current price, not accumulated, so a
// mid-session price change cannot leave a stale component in it.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.InvalidArgument("Quantity must be greater than 0")
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Product")
		}
		return nil, apperr.Internal("failed to fetch product", err)
	}
	if product.Stock < quantity {
		return nil, apperr.InsufficientStock(product.Name, product.Stock, quantity)
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetCartItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		item.Quantity += quantity
		item.Subtotal = product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if err := s.store.UpdateCartItem(ctx, item.ID, item.Quantity, item.Subtotal); err != nil {
			return nil, apperr.Internal("failed to update cart item", err)
		}
	case errors.Is(err, store.ErrNoRows):
		item = &models.CartItem{
			CartID:    cart.ID,
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		}
		if err := s.store.CreateCartItem(ctx, item); err != nil {
			return nil, apperr.Internal("failed to add item to cart", err)
		}
	default:
		return nil, apperr.Internal("failed to fetch cart item", err)
	}

	if _, err := s.store.RecomputeCartTotal(ctx, cart.ID); err != nil {
		return nil, apperr.Internal("failed to recompute cart total", err)
	}

	util.CartOperationsTotal.WithLabelValues("add").Inc()
	return item, nil
}

// UpdateItem sets the quantity of a cart line owned by the user
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.InvalidArgument("Quantity must be greater than 0")
	}

	item, err := s.store.GetCartItemByID(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Cart item")
		}
		return nil, apperr.Internal("failed to fetch cart item", err)
	}

	product, err := s.store.GetProductByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Product")
		}
		return nil, apperr.Internal("failed to fetch product", err)
	}
	if product.Stock < quantity {
		return nil, apperr.InsufficientStock(product.Name, product.Stock, quantity)
	}

	item.Quantity = quantity
	item.Subtotal = product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	if err := s.store.UpdateCartItem(ctx, item.ID, item.Quantity, item.Subtotal); err != nil {
		return nil, apperr.Internal("failed to update cart item", err)
	}

	if _, err := s.store.RecomputeCartTotal(ctx, item.CartID); err != nil {
		return nil, apperr.Internal("failed to recompute cart total", err)
	}

	util.CartOperationsTotal.WithLabelValues("update").Inc()
	return item, nil
}

// RemoveItem deletes a cart line owned by the user
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	item, err := s.store.GetCartItemByID(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return apperr.NotFound("Cart item")
		}
		return apperr.Internal("failed to fetch cart item", err)
	}

	if err := s.store.DeleteCartItem(ctx, itemID, userID); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return apperr.NotFound("Cart item")
		}
		return apperr.Internal("failed to delete cart item", err)
	}

	if _, err := s.store.RecomputeCartTotal(ctx, item.CartID); err != nil {
		return apperr.Internal("failed to recompute cart total", err)
	}

	util.CartOperationsTotal.WithLabelValues("remove").Inc()
	return nil
}

// Clear deletes every line in the user's cart and resets its total
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return apperr.NotFound("Cart")
		}
		return apperr.Internal("failed to fetch cart", err)
	}

	if err := s.store.DeleteCartItems(ctx, cart.ID); err != nil {
		return apperr.Internal("failed to clear cart", err)
	}
	if _, err := s.store.RecomputeCartTotal(ctx, cart.ID); err != nil {
		return apperr.Internal("failed to reset cart total", err)
	}

	util.CartOperationsTotal.WithLabelValues("clear").Inc()
	return nil
}

// GetCart returns the user's cart with its items joined with product
// name, price, image and available stock
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListCartItemViews(ctx, cart.ID, userID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch cart items", err)
	}

	return &CartView{
		ID:        cart.ID,
		UserID:    userID,
		Total:     cart.Total,
		Items:     items,
		ItemCount: len(items),
	}, nil
}
