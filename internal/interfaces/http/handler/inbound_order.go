package handler

import (
	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InboundOrderHandler handles receiving documents and their lines.
type InboundOrderHandler struct {
	BaseHandler
	movements MovementCommands
	queries   LedgerQueries
}

// NewInboundOrderHandler creates a new InboundOrderHandler
func NewInboundOrderHandler(movements MovementCommands, queries LedgerQueries) *InboundOrderHandler {
	return &InboundOrderHandler{movements: movements, queries: queries}
}

// Routes returns the inbound order route group.
func (h *InboundOrderHandler) Routes(writes ...gin.HandlerFunc) *router.DomainGroup {
	g := router.NewDomainGroup("inbound-orders", "/inbound-orders")
	g.POST("", chain(writes, h.Create)...)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", chain(writes, h.Delete)...)
	g.POST("/:id/items", chain(writes, h.AddItem)...)
	g.PUT("/:id/items/:item_id", chain(writes, h.UpdateItem)...)
	g.DELETE("/:id/items/:item_id", chain(writes, h.DeleteItem)...)
	return g
}

func toInboundItemInput(r dto.InboundItemRequest) appinv.InboundItemInput {
	return appinv.InboundItemInput{
		MaterialID:     uuid.MustParse(r.MaterialID),
		BinID:          optionalUUID(r.BinID),
		BatchNumber:    r.BatchNumber,
		Quantity:       r.Quantity,
		UnitPrice:      r.UnitPrice,
		Unit:           r.Unit,
		ProductionDate: optionalDate(r.ProductionDate),
	}
}

// Create posts a receiving document: every line creates a batch, puts its
// quantity on hand and writes an IN transaction.
// @ID           createInboundOrder
// @Summary      Post an inbound order
// @Tags         inbound-orders
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        request body dto.CreateInboundOrderRequest true "Inbound order"
// @Success      201 {object} dto.Response{data=appinv.InboundOrderResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inbound-orders [post]
func (h *InboundOrderHandler) Create(c *gin.Context) {
	var req dto.CreateInboundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	in := appinv.CreateInboundOrderInput{
		OrderNumber: req.OrderNumber,
		SupplierID:  optionalUUID(req.SupplierID),
		OrderDate:   orderDate(req.OrderDate),
		Creator:     operator(c),
		Remark:      req.Remark,
		Items:       make([]appinv.InboundItemInput, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, toInboundItemInput(it))
	}

	result, err := h.movements.CreateInboundOrder(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get returns an inbound order with its lines
// @ID           getInboundOrder
// @Summary      Get an inbound order
// @Tags         inbound-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinv.InboundOrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inbound-orders/{id} [get]
func (h *InboundOrderHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.queries.GetInboundOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Delete removes an inbound order together with the batches it created.
// Refused with BATCH_IN_USE while any of them has been issued.
// @ID           deleteInboundOrder
// @Summary      Delete an inbound order and its batches
// @Tags         inbound-orders
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inbound-orders/{id} [delete]
func (h *InboundOrderHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.movements.DeleteInboundOrder(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem receives one more line on an existing order
// @ID           addInboundItem
// @Summary      Receive a line on an inbound order
// @Tags         inbound-orders
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body dto.InboundItemRequest true "Inbound line"
// @Success      201 {object} dto.Response{data=appinv.PostedItem}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inbound-orders/{id}/items [post]
func (h *InboundOrderHandler) AddItem(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.InboundItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	posted, err := h.movements.AddInboundItem(c.Request.Context(), id, toInboundItemInput(req), operator(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, posted)
}

// UpdateItem edits a received line. Quantity changes move stock by the
// difference and rewrite the line's transaction.
// @ID           updateInboundItem
// @Summary      Edit a received line
// @Tags         inbound-orders
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body dto.UpdateInboundItemRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=appinv.InboundItemResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inbound-orders/{id}/items/{item_id} [put]
func (h *InboundOrderHandler) UpdateItem(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}
	var req dto.UpdateInboundItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	u := appinv.InboundItemUpdate{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Unit:      req.Unit,
		Operator:  operator(c),
	}
	if req.ProductionDate != nil {
		u.ProductionDate = optionalDate(*req.ProductionDate)
	}
	if req.MaterialID != nil {
		u.MaterialID = optionalUUID(*req.MaterialID)
	}
	if req.BinID != nil {
		u.BinID = optionalUUID(*req.BinID)
	}

	item, err := h.movements.UpdateInboundItem(c.Request.Context(), id, itemID, u)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// DeleteItem removes a received line and its batch
// @ID           deleteInboundItem
// @Summary      Delete a received line and its batch
// @Tags         inbound-orders
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /inbound-orders/{id}/items/{item_id} [delete]
func (h *InboundOrderHandler) DeleteItem(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}
	if err := h.movements.DeleteInboundItem(c.Request.Context(), id, itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
