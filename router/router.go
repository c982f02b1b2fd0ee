package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/config"
	"github.com/ucfc/fulfillment-app/controllers"
	"github.com/ucfc/fulfillment-app/middlewares"
	"github.com/ucfc/fulfillment-app/services"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, orders *services.OrderService, pickup *services.PickupService) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware())
	r.Use(middlewares.LoggerMiddleware())

	orderCtrl := controllers.NewOrderController(db, orders, cfg)
	pickupCtrl := controllers.NewPickupController(db, pickup)
	notificationCtrl := controllers.NewNotificationController(db)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------

	// Checkout hands finished orders over here; customers need no login.
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/orders", orderCtrl.CreateOrder)
		public.POST("/push-subscriptions", notificationCtrl.CreateSubscription)
	}

	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// Payment collaborator callback (paid/failed signal).
	r.POST("/orders/:order_id/payment", orderCtrl.ConfirmPayment)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staff := r.Group("/staff")
	staff.Use(middlewares.AuthMiddleware())

	staff.GET("/orders", orderCtrl.GetAllOrders)
	staff.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	staff.GET("/orders/:order_id/history", orderCtrl.GetOrderHistory)
	staff.POST("/orders/:order_id/status", orderCtrl.TransitionOrder)

	// Live fulfillment display (polled).
	staff.GET("/kitchen/display", orderCtrl.GetKitchenDisplay)

	// Pickup tooling.
	staff.POST("/orders/:order_id/pickup-token", pickupCtrl.IssueCredential)
	staff.POST("/pickup/verify", pickupCtrl.VerifyScan)
	staff.POST("/pickup/verify-manual", pickupCtrl.VerifyManual)

	// Notification observability.
	staff.GET("/notifications", notificationCtrl.GetAllTasks)
	staff.GET("/notifications/:task_id", notificationCtrl.GetTaskByID)
	staff.GET("/push-subscriptions", notificationCtrl.GetSubscriptions)
	staff.DELETE("/push-subscriptions/:sub_id", notificationCtrl.DeactivateSubscription)

	return r
}
