package middleware

import (
	"net/http"
	"strings"

	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyContextKey is the gin context key of the Idempotency-Key header
const IdempotencyKeyContextKey = "idempotency_key"

// MaxIdempotencyKeyLength caps the Idempotency-Key header
const MaxIdempotencyKeyLength = 255

// IdempotencyKey validates the optional Idempotency-Key header and exposes it
// to handlers through GetIdempotencyKey.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if len(key) > MaxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}
		if key != "" {
			c.Set(IdempotencyKeyContextKey, key)
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the validated Idempotency-Key, or ""
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(IdempotencyKeyContextKey)
}
