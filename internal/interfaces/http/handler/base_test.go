package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handleError(t *testing.T, err error) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	var h BaseHandler
	h.HandleError(c, err)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"shared not found", shared.ErrNotFound, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"wrapped domain error", fmt.Errorf("load: %w", inventory.NewBinNotFoundError(uuid.New())), http.StatusNotFound, inventory.CodeBinNotFound},
		{"duplicate batch", inventory.NewDuplicateBatchNumberError("M-1-20260504-001"), http.StatusConflict, inventory.CodeDuplicateBatchNumber},
		{"broken ledger row", inventory.NewIncompleteTransactionDataError("missing batch"), http.StatusInternalServerError, inventory.CodeIncompleteTransactionData},
		{"infrastructure error", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := handleError(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Empty(t, env.Error.Details)
		})
	}
}

func TestHandleError_HidesInternalMessage(t *testing.T) {
	_, env := handleError(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, "An unexpected error occurred", env.Error.Message)
}

func TestHandleError_Details(t *testing.T) {
	err := fmt.Errorf("issue: %w", &inventory.InsufficientStockError{
		BatchID:     uuid.New(),
		BatchNumber: "B-7",
		Available:   3,
		Requested:   5,
	})

	status, env := handleError(t, err)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, inventory.CodeInsufficientStock, env.Error.Code)
	assert.Equal(t, "Insufficient stock for B-7: available 3, requested 5", env.Error.Message)
	details := decode[inventory.InsufficientStockError](t, env.Error.Details)
	assert.Equal(t, int64(3), details.Available)
}

func TestOperator(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Empty(t, operator(c))

	c.Request.Header.Set("X-User-Name", "erin")
	assert.Equal(t, "erin", operator(c))
}

func TestOptionalParsers(t *testing.T) {
	assert.Nil(t, optionalUUID(""))
	assert.Nil(t, optionalUUID("garbage"))
	id := uuid.New()
	assert.Equal(t, id, *optionalUUID(id.String()))

	assert.Nil(t, optionalDate(""))
	d := optionalDate("2026-02-28")
	require.NotNil(t, d)
	assert.Equal(t, 28, d.Day())
}
