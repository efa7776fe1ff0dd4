package handler

import (
	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboundOrderHandler handles issuing documents and their lines.
type OutboundOrderHandler struct {
	BaseHandler
	movements MovementCommands
	queries   LedgerQueries
}

// NewOutboundOrderHandler creates a new OutboundOrderHandler
func NewOutboundOrderHandler(movements MovementCommands, queries LedgerQueries) *OutboundOrderHandler {
	return &OutboundOrderHandler{movements: movements, queries: queries}
}

// Routes returns the outbound order route group.
func (h *OutboundOrderHandler) Routes(writes ...gin.HandlerFunc) *router.DomainGroup {
	g := router.NewDomainGroup("outbound-orders", "/outbound-orders")
	g.POST("", chain(writes, h.Create)...)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", chain(writes, h.Delete)...)
	g.POST("/:id/items", chain(writes, h.AddItem)...)
	g.PUT("/:id/items/:item_id", chain(writes, h.UpdateItem)...)
	g.DELETE("/:id/items/:item_id", chain(writes, h.DeleteItem)...)
	return g
}

// Create posts an issuing document. The whole order is refused with
// INSUFFICIENT_STOCK when any batch cannot cover its lines.
// @ID           createOutboundOrder
// @Summary      Post an outbound order
// @Tags         outbound-orders
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        request body dto.CreateOutboundOrderRequest true "Outbound order"
// @Success      201 {object} dto.Response{data=appinv.OutboundOrderResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /outbound-orders [post]
func (h *OutboundOrderHandler) Create(c *gin.Context) {
	var req dto.CreateOutboundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	in := appinv.CreateOutboundOrderInput{
		OrderNumber: req.OrderNumber,
		CustomerID:  optionalUUID(req.CustomerID),
		OrderDate:   orderDate(req.OrderDate),
		Creator:     operator(c),
		Remark:      req.Remark,
		Items:       make([]appinv.OutboundItemInput, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, appinv.OutboundItemInput{
			BatchID:  uuid.MustParse(it.BatchID),
			Quantity: it.Quantity,
		})
	}

	result, err := h.movements.CreateOutboundOrder(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get returns an outbound order with its lines
// @ID           getOutboundOrder
// @Summary      Get an outbound order
// @Tags         outbound-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinv.OutboundOrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /outbound-orders/{id} [get]
func (h *OutboundOrderHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.queries.GetOutboundOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Delete removes an outbound order and returns its quantities to stock
// @ID           deleteOutboundOrder
// @Summary      Delete an outbound order and restore its stock
// @Tags         outbound-orders
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /outbound-orders/{id} [delete]
func (h *OutboundOrderHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.movements.DeleteOutboundOrder(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem issues one more line on an existing order
// @ID           addOutboundItem
// @Summary      Issue a line on an outbound order
// @Tags         outbound-orders
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body dto.OutboundItemRequest true "Outbound line"
// @Success      201 {object} dto.Response{data=appinv.PostedItem}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /outbound-orders/{id}/items [post]
func (h *OutboundOrderHandler) AddItem(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.OutboundItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	posted, err := h.movements.AddOutboundItem(c.Request.Context(), id, appinv.OutboundItemInput{
		BatchID:  uuid.MustParse(req.BatchID),
		Quantity: req.Quantity,
	}, operator(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, posted)
}

// UpdateItem edits an issued line, possibly moving it to another batch
// @ID           updateOutboundItem
// @Summary      Edit an issued line
// @Tags         outbound-orders
// @Accept       json
// @Produce      json
// @Param        X-User-Name header string false "Operator recorded on the movement"
// @Param        Idempotency-Key header string false "Rejects replays of this write with 409"
// @Param        id path string true "Order ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body dto.UpdateOutboundItemRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=appinv.OutboundItemResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /outbound-orders/{id}/items/{item_id} [put]
func (h *OutboundOrderHandler) UpdateItem(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}
	var req dto.UpdateOutboundItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	u := appinv.OutboundItemUpdate{Quantity: req.Quantity, Operator: operator(c)}
	if req.BatchID != nil {
		u.BatchID = optionalUUID(*req.BatchID)
	}

	item, err := h.movements.UpdateOutboundItem(c.Request.Context(), id, itemID, u)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// DeleteItem removes an issued line and returns its quantity to stock
// @ID           deleteOutboundItem
// @Summary      Delete an issued line and restore its stock
// @Tags         outbound-orders
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
// @Router       /outbound-orders/{id}/items/{item_id} [delete]
func (h *OutboundOrderHandler) DeleteItem(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}
	if err := h.movements.DeleteOutboundItem(c.Request.Context(), id, itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
