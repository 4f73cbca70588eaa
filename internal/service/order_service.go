package service

import (
	"context"
	"errors"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderStore is the persistence surface the order service needs.
// PlaceOrder is the atomic unit: it either applies every step of the
// cart-to-order conversion or none of them.
type OrderStore interface {
	GetCartByID(ctx context.Context, cartID int64) (*models.Cart, error)
	ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	PlaceOrder(ctx context.Context, cart *models.Cart, items []models.CartItem, paymentMethod string) (*models.Order, []models.OrderItem, error)
	GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64, status string, limit, offset int) ([]models.Order, int64, error)
	ListOrderItemViews(ctx context.Context, orderID int64) ([]models.OrderItemView, error)
	CancelPendingOrder(ctx context.Context, orderID, userID int64) error
}

// OrderService handles order placement, listing and cancellation
type OrderService struct {
	store  OrderStore
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewOrderService creates a new order service. events may be nil when no
// broker is configured.
func NewOrderService(store OrderStore, events *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// OrderDetail is an order with its item views and item count
type OrderDetail struct {
	Order     models.Order           `json:"order"`
	Items     []models.OrderItemView `json:"items"`
	ItemCount int                    `json:"itemCount"`
}

// PlaceOrder converts the cart into an order. Preconditions are checked
// in a fixed sequence: the cart must exist, belong to the caller and be
// non-empty, and every line must be coverable by current stock. The
// stock check runs twice: here against a snapshot for an early
// user-facing rejection, and again inside the store transaction to
// close the window between the snapshot read and the write.
func (s *OrderService) PlaceOrder(ctx context.Context, userID, cartID int64, paymentMethod string) (*OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if !models.ValidPaymentMethod(paymentMethod) {
		return nil, apperr.InvalidArgument("Payment method must be one of: card, cash, upi, wallet")
	}

	cart, err := s.store.GetCartByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			util.OrdersFailedTotal.WithLabelValues("cart_not_found").Inc()
			return nil, apperr.NotFound("Cart")
		}
		return nil, apperr.Internal("failed to fetch cart", err)
	}
	if cart.UserID != userID {
		util.OrdersFailedTotal.WithLabelValues("unauthorized").Inc()
		return nil, apperr.Unauthorized("Unauthorized")
	}

	items, err := s.store.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch cart items", err)
	}
	if len(items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, apperr.EmptyCart()
	}

	products, err := s.snapshotProducts(ctx, items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	order, orderItems, err := s.store.PlaceOrder(ctx, cart, items, paymentMethod)
	if err != nil {
		if apperr.IsKind(err, apperr.KindInsufficientStock) {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		util.OrdersFailedTotal.WithLabelValues("internal").Inc()
		return nil, apperr.Internal("failed to place order", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("total", order.Total.String()))

	s.publishOrderPlaced(ctx, order, orderItems)

	views := make([]models.OrderItemView, 0, len(orderItems))
	for _, item := range orderItems {
		view := models.OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Price.Mul(decimalFromInt(item.Quantity)),
		}
		if p, ok := products[item.ProductID]; ok {
			view.ProductName = p.Name
			view.ProductImage = p.ImageURL
		}
		views = append(views, view)
	}

	return &OrderDetail{Order: *order, Items: views, ItemCount: len(views)}, nil
}

// snapshotProducts reads every product in the cart and rejects the
// placement early if any line exceeds available stock
func (s *OrderService) snapshotProducts(ctx context.Context, items []models.CartItem) (map[int64]models.Product, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to fetch products", err)
	}

	productMap := make(map[int64]models.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	for _, item := range items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, apperr.NotFound("Product")
		}
		if product.Stock < item.Quantity {
			return nil, apperr.InsufficientStock(product.Name, product.Stock, item.Quantity)
		}
	}
	return productMap, nil
}

// ListOrders returns the user's orders newest-first with their items and
// pagination metadata, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, userID int64, status string, page, limit int) ([]OrderDetail, models.Pagination, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, models.Pagination{}, apperr.InvalidArgument("Invalid order status filter")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	orders, count, err := s.store.ListOrders(ctx, userID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, apperr.Internal("failed to list orders", err)
	}

	details := make([]OrderDetail, 0, len(orders))
	for _, order := range orders {
		items, err := s.orderItemViews(ctx, order.ID)
		if err != nil {
			return nil, models.Pagination{}, err
		}
		details = append(details, OrderDetail{Order: order, Items: items, ItemCount: len(items)})
	}

	return details, models.NewPagination(page, limit, count), nil
}

// GetOrder returns one of the caller's orders with its items
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*OrderDetail, error) {
	order, err := s.store.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Order")
		}
		return nil, apperr.Internal("failed to fetch order", err)
	}

	items, err := s.orderItemViews(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: *order, Items: items, ItemCount: len(items)}, nil
}

// CancelOrder transitions one of the caller's orders from pending to
// cancelled. Any other current status is a domain rejection naming that
// status. Stock is not restored.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, apperr.NotFound("Order")
		}
		return nil, apperr.Internal("failed to fetch order", err)
	}
	if order.Status != models.OrderStatusPending {
		return nil, apperr.CannotCancel(order.Status)
	}

	if err := s.store.CancelPendingOrder(ctx, orderID, userID); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			// Lost a race with a concurrent status change; report the
			// status the order has now.
			current, rerr := s.store.GetOrderByID(ctx, orderID, userID)
			if rerr != nil {
				return nil, apperr.Internal("failed to cancel order", err)
			}
			return nil, apperr.CannotCancel(current.Status)
		}
		return nil, apperr.Internal("failed to cancel order", err)
	}

	order.Status = models.OrderStatusCancelled
	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.Int64("order_id", orderID), zap.Int64("user_id", userID))

	s.publishOrderCancelled(ctx, order)
	return order, nil
}

func (s *OrderService) orderItemViews(ctx context.Context, orderID int64) ([]models.OrderItemView, error) {
	items, err := s.store.ListOrderItemViews(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch order items", err)
	}
	for i := range items {
		items[i].Subtotal = items[i].Price.Mul(decimalFromInt(items[i].Quantity))
	}
	return items, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if s.events == nil {
		return
	}

	eventItems := make([]models.OrderItemEvent, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.NewString(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Items:         eventItems,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func (s *OrderService) publishOrderCancelled(ctx context.Context, order *models.Order) {
	if s.events == nil {
		return
	}

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.NewString(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
	}
	if err := s.events.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
