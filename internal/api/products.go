package api

import (
	"net/http"
	"strconv"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock"`
	ImageURL    *string         `json:"imageUrl"`
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	ImageURL    *string          `json:"imageUrl"`
}

// listProducts handles GET /api/products/
func (h *Handler) listProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	params := service.ListProductsParams{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "DESC"),
	}
	if raw := c.Query("minPrice"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, "minPrice must be a number")
			return
		}
		params.MinPrice = &min
	}
	if raw := c.Query("maxPrice"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, "maxPrice must be a number")
			return
		}
		params.MaxPrice = &max
	}

	products, pagination, err := h.products.ListProducts(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", gin.H{
		"products":   products,
		"pagination": pagination,
	})
}

// getProduct handles GET /api/products/:id
func (h *Handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid product ID")
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"product": product})
}

// createProduct handles POST /api/products/ (admin)
func (h *Handler) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Name, description and price are required")
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Product created", gin.H{"product": product})
}

// updateProduct handles PUT /api/products/:id (admin)
func (h *Handler) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid product ID")
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), id, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Product updated", gin.H{"product": product})
}

// deleteProduct handles DELETE /api/products/:id (admin)
func (h *Handler) deleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid product ID")
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Product deleted", nil)
}
