// Package order models the inbound and outbound documents whose line items
// drive ledger movements.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// Document number prefixes.
const (
	InboundNumberPrefix  = "IN"
	OutboundNumberPrefix = "OUT"
)

// Error codes raised by order documents.
const (
	CodeOrderNotFound        = "ORDER_NOT_FOUND"
	CodeOrderItemNotFound    = "ORDER_ITEM_NOT_FOUND"
	CodeDuplicateOrderNumber = "DUPLICATE_ORDER_NUMBER"
	CodeInvalidOrderQuantity = "INVALID_QUANTITY"
	CodeEmptyOrder           = "EMPTY_ORDER"
)

var (
	ErrOrderNotFound     = shared.NewDomainError(CodeOrderNotFound, "Order not found")
	ErrOrderItemNotFound = shared.NewDomainError(CodeOrderItemNotFound, "Order item not found")
)

// NewOrderNotFoundError reports an unknown order.
func NewOrderNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeOrderNotFound, fmt.Sprintf("Order %s not found", id))
}

// NewOrderItemNotFoundError reports an unknown line item.
func NewOrderItemNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeOrderItemNotFound, fmt.Sprintf("Order item %s not found", id))
}

// NewDuplicateOrderNumberError reports an order number collision.
func NewDuplicateOrderNumberError(number string) *shared.DomainError {
	return shared.NewDomainError(CodeDuplicateOrderNumber, fmt.Sprintf("Order number %s already exists", number))
}

// GenerateOrderNumber builds a document number such as IN-20250101-3F9A1C2B.
func GenerateOrderNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}

// Header holds the fields shared by inbound and outbound orders.
type Header struct {
	shared.BaseEntity
	OrderNumber   string
	OrderDate     time.Time
	Creator       string
	Remark        string
	TotalQuantity int64
}

func newHeader(number, prefix, creator, remark string, orderDate, now time.Time) (Header, error) {
	number = inventory.NormalizeDocumentNumber(number)
	if number == "" {
		number = GenerateOrderNumber(prefix, now)
	}
	if len(number) > inventory.MaxDocumentNumberLength {
		return Header{}, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number is too long")
	}
	if strings.TrimSpace(creator) == "" {
		return Header{}, shared.NewDomainError("INVALID_CREATOR", "Creator cannot be empty")
	}
	if orderDate.IsZero() {
		orderDate = now
	}
	return Header{
		BaseEntity:  shared.NewBaseEntityAt(now),
		OrderNumber: number,
		OrderDate:   orderDate,
		Creator:     creator,
		Remark:      remark,
	}, nil
}

// adjustTotal applies a signed delta to TotalQuantity. The total never drops
// below zero.
func (h *Header) adjustTotal(delta int64, now time.Time) {
	h.TotalQuantity += delta
	if h.TotalQuantity < 0 {
		h.TotalQuantity = 0
	}
	h.Touch(now)
}

func validateQuantity(q int64) error {
	if q <= 0 {
		return shared.NewDomainError(CodeInvalidOrderQuantity, "Quantity must be positive")
	}
	return nil
}
