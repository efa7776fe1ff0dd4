package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// BatchSortFields contains allowed sort fields for batches
var BatchSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"batch_number": true,
	"inbound_date": true,
	"unit_price":   true,
}

// TransactionSortFields contains allowed sort fields for inventory transactions.
// The log is append-mostly, so created_at is not offered; transaction_time is
// the business clock.
var TransactionSortFields = map[string]bool{
	"id":               true,
	"transaction_time": true,
	"quantity_change":  true,
	"change_type":      true,
}
