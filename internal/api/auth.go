package api

import (
	"net/http"

	"shop-service/internal/token"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// setTokenCookie mirrors the bearer token into an httpOnly cookie
func (h *Handler) setTokenCookie(c *gin.Context, tokenString string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", tokenString, int(h.tokenTTL.Seconds()), "/", "", false, true)
}

// register handles POST /api/auth/register
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Name, email and password are required")
		return
	}

	user, tokenString, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setTokenCookie(c, tokenString)
	ok(c, http.StatusCreated, "User created", gin.H{
		"user": gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}

// login handles POST /api/auth/login
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	user, tokenString, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setTokenCookie(c, tokenString)
	ok(c, http.StatusOK, "Login successful", gin.H{
		"user": gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}

// logout handles POST /api/auth/logout
func (h *Handler) logout(c *gin.Context) {
	claims := c.MustGet(ctxClaims).(*token.Claims)
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		h.fail(c, err)
		return
	}

	c.SetCookie("token", "", -1, "/", "", false, true)
	ok(c, http.StatusOK, "Logout successful", nil)
}
