package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/services"
	"github.com/ucfc/fulfillment-app/utils"
)

type PickupController struct {
	DB     *gorm.DB
	Pickup *services.PickupService
}

func NewPickupController(db *gorm.DB, pickup *services.PickupService) *PickupController {
	return &PickupController{DB: db, Pickup: pickup}
}

// IssueCredential issues (or reissues) the signed pickup token for an order.
// A reissue silently invalidates the previous token.
func (pc *PickupController) IssueCredential(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cred, token, err := pc.Pickup.Issue(uint(id))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Pickup credential issued", gin.H{
		"token":      token,
		"credential": cred,
	})
}

// VerifyScan resolves a scanned token, completes the pickup and returns the
// order summary for staff confirmation.
func (pc *PickupController) VerifyScan(c *gin.Context) {
	type reqBody struct {
		Token string `json:"token" binding:"required"`
		Notes string `json:"notes"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	staffID := c.GetUint("staff_id")
	order, err := pc.Pickup.VerifyScan(body.Token, staffID, body.Notes)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.InfoLogger.Printf("Order %s picked up (scan) by staff %d", order.OrderNumber, staffID)
	utils.RespondJSON(c, http.StatusOK, "Pickup confirmed", order)
}

// VerifyManual is the typed-order-number fallback for unreadable codes.
func (pc *PickupController) VerifyManual(c *gin.Context) {
	type reqBody struct {
		OrderNumber string `json:"order_number" binding:"required"`
		Notes       string `json:"notes"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	staffID := c.GetUint("staff_id")
	order, err := pc.Pickup.VerifyManual(body.OrderNumber, staffID, body.Notes)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.InfoLogger.Printf("Order %s picked up (manual) by staff %d", order.OrderNumber, staffID)
	utils.RespondJSON(c, http.StatusOK, "Pickup confirmed", order)
}
