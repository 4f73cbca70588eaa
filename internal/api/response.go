package api

import (
	"net/http"

	"shop-service/internal/apperr"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ok writes a success envelope with extra payload fields merged in
func ok(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"status": "success"}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// fail maps a domain error to its HTTP status and a stable message.
// Internal errors are logged and, outside development, replaced with a
// generic message so store detail never reaches the caller.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindInvalidArgument, apperr.KindInsufficientStock,
		apperr.KindEmptyCart, apperr.KindCannotCancel:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if kind == apperr.KindInternal {
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		if h.env != "development" {
			message = "Something went wrong"
		}
	}

	c.JSON(status, gin.H{"status": "error", "message": message})
}

// badRequest rejects malformed request bodies or parameters
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": message})
}
