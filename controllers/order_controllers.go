package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/config"
	"github.com/ucfc/fulfillment-app/kds"
	"github.com/ucfc/fulfillment-app/models"
	"github.com/ucfc/fulfillment-app/services"
	"github.com/ucfc/fulfillment-app/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
	Cfg    *config.Config
}

func NewOrderController(db *gorm.DB, orders *services.OrderService, cfg *config.Config) *OrderController {
	return &OrderController{DB: db, Orders: orders, Cfg: cfg}
}

// CreateOrder ingests a finalized checkout payload and opens the order in
// pending status.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var payload services.CheckoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateFromCheckout(payload)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	utils.InfoLogger.Printf("Order %s created (%s)", order.OrderNumber, order.Type)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> list orders with items, optionally filtered by status.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	q := oc.DB.Preload("Items").Order("created_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.GetByID(uint(id))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetOrderHistory -> the append-only transition audit trail.
func (oc *OrderController) GetOrderHistory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := oc.Orders.GetByID(uint(id)); err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	entries, err := oc.Orders.History(uint(id))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order history", entries)
}

// TransitionOrder applies a staff-requested status change. The actor comes
// from the auth middleware, so the audit trail names the staff member.
func (oc *OrderController) TransitionOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	type reqBody struct {
		Target models.OrderStatus `json:"target_status" binding:"required"`
		Note   *string            `json:"note,omitempty"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	staffID := c.GetUint("staff_id")
	order, err := oc.Orders.Transition(uint(id), body.Target, services.StaffActor(staffID), body.Note)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.InfoLogger.Printf("Order %s -> %s by staff %d", order.OrderNumber, order.Status, staffID)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// ConfirmPayment receives the opaque paid/failed signal from the payment
// collaborator.
func (oc *OrderController) ConfirmPayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	type reqBody struct {
		Result models.PaymentStatus `json:"result" binding:"required"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.ConfirmPayment(uint(id), body.Result)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment status recorded", order)
}

// GetKitchenDisplay -> one poll of the live fulfillment board.
func (oc *OrderController) GetKitchenDisplay(c *gin.Context) {
	orders, err := oc.Orders.ActiveOrders()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	snapshot := kds.BuildSnapshot(orders, oc.Orders.SLA(), oc.Cfg.DisplayRefreshSeconds, time.Now())
	utils.RespondJSON(c, http.StatusOK, "Kitchen display", snapshot)
}
