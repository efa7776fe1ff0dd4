// Package handler exposes the ledger over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessPage sends one page of a list with pagination meta
func SuccessPage[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(page.Items, page.Total, page.Page, page.PageSize, page.TotalPages))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message, middleware.GetRequestID(c)))
}

// HandleError converts an error into the standard error envelope. Domain
// errors keep their code and carry their details; anything else is logged
// and reported as an internal error without leaking the message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Ledger failure", zap.String("code", code), zap.Error(err))
		}

		var detailed shared.DetailedError
		if errors.As(err, &detailed) {
			c.JSON(status, dto.NewErrorResponseWithDetails(code, domainErr.Message, requestID, detailed.Details()))
			return
		}
		c.JSON(status, dto.NewErrorResponse(code, domainErr.Message, requestID))
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

// operator names who performs the request, from the X-User-Name header.
func operator(c *gin.Context) string {
	if op := logger.GetOperator(c.Request.Context()); op != "" {
		return op
	}
	return c.GetHeader(logger.OperatorHeader)
}

// pathUUID parses the named path parameter. On failure it writes a 400 and
// returns false.
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses a validated, possibly empty UUID string.
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// optionalDate parses a validated, possibly empty calendar date.
func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// orderDate returns the requested order date, or zero to let the ledger
// stamp the current time.
func orderDate(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// chain returns mw followed by h in a fresh slice.
func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	return append(append(out, mw...), h)
}
