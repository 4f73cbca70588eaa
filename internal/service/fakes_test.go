package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the sqlx store. Its PlaceOrder
// mirrors the real transaction's all-or-nothing contract: either every
// step lands or no state changes at all.
type fakeStore struct {
	mu sync.Mutex

	users      map[int64]*models.User
	products   map[int64]*models.Product
	carts      map[int64]*models.Cart
	cartItems  map[int64]*models.CartItem
	orders     map[int64]*models.Order
	orderItems map[int64][]models.OrderItem

	nextID int64
	clock  time.Time

	// failPlaceOrder simulates a store failure after the order row would
	// have been written; no mutation survives, like a rolled-back tx.
	failPlaceOrder bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[int64]*models.User),
		products:   make(map[int64]*models.Product),
		carts:      make(map[int64]*models.Cart),
		cartItems:  make(map[int64]*models.CartItem),
		orders:     make(map[int64]*models.Order),
		orderItems: make(map[int64][]models.OrderItem),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) now() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) addProduct(name string, price string, stock int) *models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Product{
		ID:        f.id(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: f.now(),
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) setPrice(productID int64, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[productID].Price = decimal.RequireFromString(price)
}

// --- UserStore ---

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	user.ID = f.id()
	user.CreatedAt = f.now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNoRows
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

// --- ProductStore ---

func (f *fakeStore) CreateProduct(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	product.ID = f.id()
	product.CreatedAt = f.now()
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[product.ID]; !ok {
		return store.ErrNoRows
	}
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return store.ErrNoRows
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) ListProducts(_ context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []models.Product{}
	for _, p := range f.products {
		if p.Stock <= 0 {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	count := int64(len(matched))
	lo := filter.Offset
	if lo > len(matched) {
		lo = len(matched)
	}
	hi := lo + filter.Limit
	if hi > len(matched) {
		hi = len(matched)
	}
	return matched[lo:hi], count, nil
}

// --- CartStore ---

func (f *fakeStore) GetCartByUserID(_ context.Context, userID int64) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNoRows
}

func (f *fakeStore) GetCartByID(_ context.Context, cartID int64) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[cartID]
	if !ok {
		return nil, store.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateCart(_ context.Context, userID int64) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	c := &models.Cart{ID: f.id(), UserID: userID, Total: decimal.Zero, CreatedAt: f.now()}
	f.carts[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetCartItem(_ context.Context, cartID, productID int64) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, store.ErrNoRows
}

func (f *fakeStore) GetCartItemByID(_ context.Context, itemID, userID int64) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.cartItems[itemID]
	if !ok || item.UserID != userID {
		return nil, store.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (f *fakeStore) CreateCartItem(_ context.Context, item *models.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.id()
	item.CreatedAt = f.now()
	cp := *item
	f.cartItems[item.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateCartItem(_ context.Context, itemID int64, quantity int, subtotal decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.cartItems[itemID]
	if !ok {
		return store.ErrNoRows
	}
	item.Quantity = quantity
	item.Subtotal = subtotal
	return nil
}

func (f *fakeStore) DeleteCartItem(_ context.Context, itemID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.cartItems[itemID]
	if !ok || item.UserID != userID {
		return store.ErrNoRows
	}
	delete(f.cartItems, itemID)
	return nil
}

func (f *fakeStore) DeleteCartItems(_ context.Context, cartID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, item := range f.cartItems {
		if item.CartID == cartID {
			delete(f.cartItems, id)
		}
	}
	return nil
}

func (f *fakeStore) ListCartItems(_ context.Context, cartID int64) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cartItemsLocked(cartID), nil
}

func (f *fakeStore) cartItemsLocked(cartID int64) []models.CartItem {
	items := []models.CartItem{}
	for _, item := range f.cartItems {
		if item.CartID == cartID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (f *fakeStore) ListCartItemViews(_ context.Context, cartID, userID int64) ([]models.CartItemView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	views := []models.CartItemView{}
	for _, item := range f.cartItemsLocked(cartID) {
		if item.UserID != userID {
			continue
		}
		p := f.products[item.ProductID]
		views = append(views, models.CartItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    p.Name,
			ProductPrice:   p.Price,
			Quantity:       item.Quantity,
			Subtotal:       item.Subtotal,
			StockAvailable: p.Stock,
			CreatedAt:      item.CreatedAt,
		})
	}
	return views, nil
}

func (f *fakeStore) RecomputeCartTotal(_ context.Context, cartID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[cartID]
	if !ok {
		return decimal.Zero, store.ErrNoRows
	}
	total := decimal.Zero
	for _, item := range f.cartItemsLocked(cartID) {
		total = total.Add(item.Subtotal)
	}
	cart.Total = total
	return total, nil
}

// --- OrderStore ---

func (f *fakeStore) PlaceOrder(_ context.Context, cart *models.Cart, items []models.CartItem, paymentMethod string) (*models.Order, []models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range items {
		p, ok := f.products[item.ProductID]
		if !ok {
			return nil, nil, store.ErrNoRows
		}
		if p.Stock < item.Quantity {
			return nil, nil, insufficientStockErr(p, item.Quantity)
		}
	}

	if f.failPlaceOrder {
		return nil, nil, errors.New("simulated failure after order insert")
	}

	order := &models.Order{
		ID:            f.id(),
		UserID:        cart.UserID,
		Total:         cart.Total,
		Status:        models.OrderStatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     f.now(),
	}
	f.orders[order.ID] = order

	orderItems := []models.OrderItem{}
	for _, item := range items {
		p := f.products[item.ProductID]
		orderItems = append(orderItems, models.OrderItem{
			ID:        f.id(),
			OrderID:   order.ID,
			UserID:    cart.UserID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     p.Price,
		})
		p.Stock -= item.Quantity
	}
	f.orderItems[order.ID] = orderItems

	for id, item := range f.cartItems {
		if item.CartID == cart.ID {
			delete(f.cartItems, id)
		}
	}
	f.carts[cart.ID].Total = decimal.Zero

	cp := *order
	out := make([]models.OrderItem, len(orderItems))
	copy(out, orderItems)
	return &cp, out, nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, orderID, userID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, store.ErrNoRows
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) ListOrders(_ context.Context, userID int64, status string, limit, offset int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []models.Order{}
	for _, o := range f.orders {
		if o.UserID != userID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		matched = append(matched, *o)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	count := int64(len(matched))
	lo := offset
	if lo > len(matched) {
		lo = len(matched)
	}
	hi := lo + limit
	if hi > len(matched) {
		hi = len(matched)
	}
	return matched[lo:hi], count, nil
}

func (f *fakeStore) ListOrderItemViews(_ context.Context, orderID int64) ([]models.OrderItemView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	views := []models.OrderItemView{}
	for _, item := range f.orderItems[orderID] {
		view := models.OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		if p, ok := f.products[item.ProductID]; ok {
			view.ProductName = p.Name
		}
		views = append(views, view)
	}
	return views, nil
}

func (f *fakeStore) CancelPendingOrder(_ context.Context, orderID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.UserID != userID || order.Status != models.OrderStatusPending {
		return store.ErrNoRows
	}
	order.Status = models.OrderStatusCancelled
	return nil
}

// setOrderStatus forces a status for state-machine tests
func (f *fakeStore) setOrderStatus(orderID int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID].Status = status
}

// fakeRevoker is an in-memory TokenRevoker
type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: make(map[string]bool)}
}

func (r *fakeRevoker) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ttl > 0 {
		r.revoked[jti] = true
	}
	return nil
}

func (r *fakeRevoker) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

func insufficientStockErr(p *models.Product, required int) error {
	return apperr.InsufficientStock(p.Name, p.Stock, required)
}
