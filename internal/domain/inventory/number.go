package inventory

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// MaxDocumentNumberLength bounds batch and order numbers.
const MaxDocumentNumberLength = 64

// NormalizeDocumentNumber trims a batch or order number and folds
// full-width characters to their ASCII forms, so numbers typed with an
// East Asian IME compare equal to their half-width spelling.
func NormalizeDocumentNumber(s string) string {
	s = width.Fold.String(s)
	return strings.ToUpper(strings.TrimSpace(s))
}

// BatchNumberPrefix is the per-material, per-day prefix of generated batch
// numbers, e.g. "MAT001-20250101".
func BatchNumberPrefix(materialCode string, day time.Time) string {
	return NormalizeDocumentNumber(materialCode) + "-" + day.Format("20060102")
}

// FormatBatchNumber renders the seq-th batch number of a prefix,
// e.g. "MAT001-20250101001".
func FormatBatchNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}
