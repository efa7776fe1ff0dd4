package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/erp/warehouse/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

type server struct {
	t        *testing.T
	engine   *gin.Engine
	material uuid.UUID
	bin      uuid.UUID
}

// newServer mounts every ledger route on a fresh sqlite database. writes
// guards the write routes the way the server chains idempotency.
func newServer(t *testing.T, writes ...gin.HandlerFunc) *server {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	movements := appinv.NewMovementService(persistence.NewGormTransactionScope(db, sql.LevelDefault), shared.FixedClock{T: testNow})
	queries := appinv.NewQueryService(
		persistence.NewGormInventoryBatchRepository(db),
		persistence.NewGormInventoryDetailRepository(db),
		persistence.NewGormInventoryTransactionRepository(db),
		persistence.NewGormMaterialRepository(db),
		persistence.NewGormInboundOrderRepository(db),
		persistence.NewGormOutboundOrderRepository(db),
	)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	stock := NewStockHandler(movements, queries).Routes(writes...)
	router.NewRouter(engine).Register(
		NewInboundOrderHandler(movements, queries).Routes(writes...),
		NewOutboundOrderHandler(movements, queries).Routes(writes...),
		stock[0], stock[1],
		NewTransactionHandler(queries).Routes(),
	).Setup()

	return &server{
		t:        t,
		engine:   engine,
		material: testutil.SeedMaterial(t, db, "M-100", "pcs"),
		bin:      testutil.SeedBin(t, db, "B-01"),
	}
}

func (s *server) do(method, target string, body any, user string) (int, envelope) {
	s.t.Helper()
	return s.doKeyed(method, target, body, user, "")
}

// doKeyed sends the request with an Idempotency-Key when key is set.
func (s *server) doKeyed(method, target string, body any, user, key string) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Name", user)
	}
	if key != "" {
		req.Header.Set(middleware.IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Code != http.StatusNoContent {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// receive posts a one-line inbound order and returns the order and batch ids.
func (s *server) receive(number string, qty int64) (uuid.UUID, uuid.UUID) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/inbound-orders", map[string]any{
		"order_number": number,
		"items": []map[string]any{{
			"material_id": s.material.String(),
			"bin_id":      s.bin.String(),
			"quantity":    qty,
			"unit_price":  "2.50",
		}},
	}, "alice")
	require.Equal(s.t, http.StatusCreated, code, string(env.Data))
	res := decode[appinv.InboundOrderResult](s.t, env.Data)
	require.Len(s.t, res.Items, 1)
	return res.Order.ID, res.Items[0].BatchID
}
