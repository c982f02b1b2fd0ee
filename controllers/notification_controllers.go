package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/models"
	"github.com/ucfc/fulfillment-app/utils"
)

type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// GetAllTasks lists notification tasks, filterable by status and channel.
// With an unconfigured provider this is where the pending backlog shows up.
func (nc *NotificationController) GetAllTasks(c *gin.Context) {
	q := nc.DB.Order("created_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if channel := c.Query("channel"); channel != "" {
		q = q.Where("channel = ?", channel)
	}

	var tasks []models.NotificationTask
	if err := q.Find(&tasks).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification tasks", tasks)
}

func (nc *NotificationController) GetTaskByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("task_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var task models.NotificationTask
	if err := nc.DB.First(&task, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification task", task)
}

// CreateSubscription registers a device push endpoint. Re-registering an
// existing endpoint reactivates it and refreshes the keys.
func (nc *NotificationController) CreateSubscription(c *gin.Context) {
	type reqBody struct {
		Endpoint   string `json:"endpoint" binding:"required"`
		P256dhKey  string `json:"p256dh_key" binding:"required"`
		AuthSecret string `json:"auth_secret" binding:"required"`
		OwnerRef   string `json:"owner_ref" binding:"required"`
		UserAgent  string `json:"user_agent"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now()

	var sub models.PushSubscription
	err := nc.DB.Where("endpoint = ?", body.Endpoint).First(&sub).Error
	switch err {
	case nil:
		sub.P256dhKey = body.P256dhKey
		sub.AuthSecret = body.AuthSecret
		sub.OwnerRef = body.OwnerRef
		sub.UserAgent = body.UserAgent
		sub.Active = true
		sub.UpdatedAt = now
		if err := nc.DB.Save(&sub).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	case gorm.ErrRecordNotFound:
		sub = models.PushSubscription{
			Endpoint:   body.Endpoint,
			P256dhKey:  body.P256dhKey,
			AuthSecret: body.AuthSecret,
			OwnerRef:   body.OwnerRef,
			UserAgent:  body.UserAgent,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := nc.DB.Create(&sub).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Push subscription registered", sub)
}

func (nc *NotificationController) GetSubscriptions(c *gin.Context) {
	q := nc.DB.Order("created_at desc")
	if owner := c.Query("owner_ref"); owner != "" {
		q = q.Where("owner_ref = ?", owner)
	}

	var subs []models.PushSubscription
	if err := q.Find(&subs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Push subscriptions", subs)
}

// DeactivateSubscription flags the endpoint inactive. The row and its task
// history stay.
func (nc *NotificationController) DeactivateSubscription(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("sub_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var sub models.PushSubscription
	if err := nc.DB.First(&sub, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	sub.Active = false
	sub.UpdatedAt = time.Now()
	if err := nc.DB.Save(&sub).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Push subscription deactivated", sub)
}
