package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryBatch(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	materialID := uuid.New()

	t.Run("normalizes number and defaults inbound date", func(t *testing.T) {
		b, err := NewInventoryBatch(NewBatchInput{
			BatchNumber: "  ｍａｔ001-20250101001 ",
			MaterialID:  materialID,
			Unit:        "pcs",
			UnitPrice:   decimal.NewFromInt(10),
			Creator:     "alice",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, "MAT001-20250101001", b.BatchNumber)
		assert.Equal(t, now, b.InboundDate)
		assert.True(t, b.Value(100).Equal(decimal.NewFromInt(1000)))
	})

	tests := []struct {
		name string
		in   NewBatchInput
	}{
		{"empty number", NewBatchInput{BatchNumber: " ", MaterialID: materialID, Creator: "a"}},
		{"no material", NewBatchInput{BatchNumber: "B1", Creator: "a"}},
		{"negative price", NewBatchInput{BatchNumber: "B1", MaterialID: materialID, UnitPrice: decimal.NewFromInt(-1), Creator: "a"}},
		{"no creator", NewBatchInput{BatchNumber: "B1", MaterialID: materialID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInventoryBatch(tt.in, now)
			assert.Error(t, err)
		})
	}
}

func TestInventoryBatch_Apply(t *testing.T) {
	now := time.Now()
	b, err := NewInventoryBatch(NewBatchInput{
		BatchNumber: "B1", MaterialID: uuid.New(), UnitPrice: decimal.NewFromInt(10), Creator: "alice",
	}, now)
	require.NoError(t, err)

	price := decimal.RequireFromString("12.5")
	unit := "box"
	changed, err := b.Apply(BatchFieldUpdate{UnitPrice: &price, Unit: &unit}, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, b.UnitPrice.Equal(price))
	assert.Equal(t, "box", b.Unit)

	other := uuid.New()
	changed, err = b.Apply(BatchFieldUpdate{MaterialID: &other}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, other, b.MaterialID)

	assert.True(t, BatchFieldUpdate{}.IsEmpty())
}

func TestBatchNumberGeneration(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prefix := BatchNumberPrefix("mat001", day)
	assert.Equal(t, "MAT001-20250101", prefix)
	assert.Equal(t, "MAT001-20250101001", FormatBatchNumber(prefix, 1))
	assert.Equal(t, "MAT001-20250101012", FormatBatchNumber(prefix, 12))
}
