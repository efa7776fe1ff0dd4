package handler

import (
	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler serves stock levels, batches and stocktake adjustments.
type StockHandler struct {
	BaseHandler
	movements MovementCommands
	queries   LedgerQueries
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(movements MovementCommands, queries LedgerQueries) *StockHandler {
	return &StockHandler{movements: movements, queries: queries}
}

// Routes returns the stock and batch route groups.
func (h *StockHandler) Routes(writes ...gin.HandlerFunc) []*router.DomainGroup {
	stock := router.NewDomainGroup("stock", "/stock")
	stock.POST("/adjustments", chain(writes, h.Adjust)...)
	stock.GET("/batches/:id", h.GetBatchStock)
	stock.GET("/batches/:id/conservation", h.VerifyConservation)
	stock.GET("/materials/:id", h.GetMaterialStock)

	batches := router.NewDomainGroup("batches", "/batches")
	batches.GET("", h.ListBatches)

	return []*router.DomainGroup{stock, batches}
}

// Adjust sets a batch to its counted quantity and records the difference
// as an ADJUST transaction. A count equal to stock records nothing.
// @ID           adjustStock
// @Summary      Record a stocktake count
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        request body dto.AdjustStockRequest true "Counted quantity"
// @Success      200 {object} dto.Response{data=appinv.AdjustmentResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /stock/adjustments [post]
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.movements.AdjustStock(c.Request.Context(), appinv.AdjustStockInput{
		BatchID:         uuid.MustParse(req.BatchID),
		CountedQuantity: *req.CountedQuantity,
		ReferenceID:     optionalUUID(req.ReferenceID),
		Creator:         operator(c),
		Reason:          req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Transaction == nil {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// GetBatchStock returns a batch with its on-hand quantity and value
// @ID           getBatchStock
// @Summary      Get the stock of a batch
// @Tags         stock
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinv.BatchStockResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /stock/batches/{id} [get]
func (h *StockHandler) GetBatchStock(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	stock, err := h.queries.GetBatchStock(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}

// VerifyConservation checks that a batch's on-hand quantity equals the sum
// of its ledger rows.
// @ID           verifyBatchConservation
// @Summary      Check a batch against its ledger
// @Tags         stock
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinv.ConservationReport}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /stock/batches/{id}/conservation [get]
func (h *StockHandler) VerifyConservation(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	report, err := h.queries.VerifyBatchConservation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetMaterialStock sums a material's stock over all bins and batches
// @ID           getMaterialStock
// @Summary      Get the stock of a material
// @Tags         stock
// @Produce      json
// @Param        id path string true "Material ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinv.MaterialStockResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /stock/materials/{id} [get]
func (h *StockHandler) GetMaterialStock(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	stock, err := h.queries.GetMaterialStock(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}

// ListBatches returns one page of batches
// @ID           listBatches
// @Summary      List batches
// @Tags         batches
// @Produce      json
// @Param        material_id query string false "Filter by material" format(uuid)
// @Param        supplier_id query string false "Filter by supplier" format(uuid)
// @Param        batch_number query string false "Batch number prefix"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]appinv.BatchResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /batches [get]
func (h *StockHandler) ListBatches(c *gin.Context) {
	var q dto.BatchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	filter := inventory.BatchFilter{
		Filter:      pageFilter(q.PageQuery, "created_at"),
		MaterialID:  optionalUUID(q.MaterialID),
		SupplierID:  optionalUUID(q.SupplierID),
		BatchNumber: q.BatchNumber,
	}
	page, err := h.queries.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// pageFilter applies the query's paging over the defaults.
func pageFilter(q dto.PageQuery, orderBy string) shared.Filter {
	f := shared.DefaultFilter()
	f.OrderBy = orderBy
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	if q.OrderDir != "" {
		f.OrderDir = q.OrderDir
	}
	return f.Normalize()
}
