package dto

import (
	"net/http"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/order"
)

// Transport error codes. Ledger rejections keep the code the domain
// raised (DUPLICATE_BATCH_NUMBER, INSUFFICIENT_STOCK, ...).
const (
	ErrCodeInternal         = "ERR_INTERNAL"
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodeNotFound         = "ERR_NOT_FOUND"
	ErrCodeForbidden        = "ERR_FORBIDDEN"
	ErrCodeAlreadyExists    = "ERR_ALREADY_EXISTS"
	ErrCodeConflict         = "ERR_CONFLICT"
	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited      = "ERR_RATE_LIMITED"
	ErrCodeUnavailable      = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeAlreadyExists:    http.StatusConflict,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeDuplicateRequest: http.StatusConflict,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,

	inventory.CodeDuplicateBatchNumber:      http.StatusConflict,
	inventory.CodeInsufficientStock:         http.StatusUnprocessableEntity,
	inventory.CodeBatchInUse:                http.StatusConflict,
	inventory.CodeMaterialNotFound:          http.StatusNotFound,
	inventory.CodeBinNotFound:               http.StatusNotFound,
	inventory.CodeBatchNotFound:             http.StatusNotFound,
	inventory.CodeTransactionNotFound:       http.StatusNotFound,
	inventory.CodeIncompleteTransactionData: http.StatusInternalServerError,

	order.CodeOrderNotFound:        http.StatusNotFound,
	order.CodeOrderItemNotFound:    http.StatusNotFound,
	order.CodeDuplicateOrderNumber: http.StatusConflict,
	order.CodeInvalidOrderQuantity: http.StatusBadRequest,
	order.CodeEmptyOrder:           http.StatusBadRequest,

	"INVALID_BATCH_NUMBER": http.StatusBadRequest,
	"INVALID_CREATOR":      http.StatusBadRequest,
	"INVALID_MATERIAL":     http.StatusBadRequest,
	"INVALID_ORDER_NUMBER": http.StatusBadRequest,
	"INVALID_UNIT_PRICE":   http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// legacyErrorCodeMapping maps the generic shared domain codes onto
// transport codes.
var legacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeBadRequest,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := legacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
