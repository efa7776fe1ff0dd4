package middleware

import (
	"net/http"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client-chosen key of a write request.
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency rejects replays of write requests that carry an
// Idempotency-Key header. A key is scoped to method and route and blocks
// replays for ttl. Keys of failed requests are released so the client can
// retry. Requests without the header pass through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || !isWrite(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > MaxRequestIDLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		ctx := c.Request.Context()
		log := logger.GetGinLogger(c)
		scoped := c.Request.Method + " " + c.FullPath() + " " + key

		fresh, err := store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			log.Error("Idempotency store unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
				dto.ErrCodeUnavailable, "Idempotency check failed", GetRequestID(c)))
			return
		}
		if !fresh {
			log.Info("Duplicate request rejected", zap.String("idempotency_key", key))
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				dto.ErrCodeDuplicateRequest, "Request with this Idempotency-Key was already processed", GetRequestID(c)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(ctx, scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
			}
		}
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
