package handler

import (
	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// TransactionHandler serves the inventory transaction log.
type TransactionHandler struct {
	BaseHandler
	queries LedgerQueries
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(queries LedgerQueries) *TransactionHandler {
	return &TransactionHandler{queries: queries}
}

// Routes returns the transaction log route group.
func (h *TransactionHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("inventory-transactions", "/inventory-transactions")
	g.GET("", h.List)
	g.GET("/statistics", h.Statistics)
	g.GET("/:id", h.Get)
	return g
}

func (h *TransactionHandler) bindFilter(c *gin.Context) (inventory.TransactionFilter, bool) {
	var q dto.TransactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindError(c, err)
		return inventory.TransactionFilter{}, false
	}

	f := inventory.DefaultTransactionFilter()
	f.Filter = pageFilter(q.PageQuery, f.OrderBy)
	f.MaterialID = optionalUUID(q.MaterialID)
	f.BatchID = optionalUUID(q.BatchID)
	f.ReferenceID = optionalUUID(q.ReferenceID)
	f.From = q.From
	f.To = q.To
	if q.ChangeType != "" {
		ct := inventory.ChangeType(q.ChangeType)
		f.ChangeType = &ct
	}
	if q.ReferenceType != "" {
		rt := inventory.ReferenceType(q.ReferenceType)
		f.ReferenceType = &rt
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		h.BadRequest(c, "to must not be before from")
		return inventory.TransactionFilter{}, false
	}
	return f, true
}

// List searches the transaction log, newest first
// @ID           listInventoryTransactions
// @Summary      Search the transaction log
// @Tags         inventory-transactions
// @Produce      json
// @Param        material_id query string false "Filter by material" format(uuid)
// @Param        batch_id query string false "Filter by batch" format(uuid)
// @Param        change_type query string false "Change type" Enums(IN, OUT, ADJUST)
// @Param        reference_type query string false "Reference type" Enums(inbound, outbound, stocktake)
// @Param        reference_id query string false "Filter by reference" format(uuid)
// @Param        from query string false "Earliest transaction time" format(date-time)
// @Param        to query string false "Latest transaction time" format(date-time)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]appinv.TransactionResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inventory-transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	page, err := h.queries.FindTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage[appinv.TransactionResponse](c, page)
}

// Statistics sums IN, OUT and ADJUST quantities over the filtered rows.
// Paging parameters are ignored.
// @ID           getInventoryTransactionStatistics
// @Summary      Sum quantities by change type
// @Tags         inventory-transactions
// @Produce      json
// @Param        material_id query string false "Filter by material" format(uuid)
// @Param        batch_id query string false "Filter by batch" format(uuid)
// @Param        from query string false "Earliest transaction time" format(date-time)
// @Param        to query string false "Latest transaction time" format(date-time)
// @Success      200 {object} dto.Response{data=inventory.TransactionStatistics}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inventory-transactions/statistics [get]
func (h *TransactionHandler) Statistics(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	stats, err := h.queries.Statistics(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Get returns one transaction
// @ID           getInventoryTransaction
// @Summary      Get a transaction
// @Tags         inventory-transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinv.TransactionResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inventory-transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	tx, err := h.queries.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}
