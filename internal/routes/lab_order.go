package routes

import (
	"github.com/labstack/echo/v4"

	"lab-workflow/internal/controllers"
)

func runLabOrderRouter(group *echo.Group, controller *controllers.LabOrderController) {
	orders := group.Group("/lab/orders")
	orders.POST("", controller.RegisterOrder)
	orders.GET("/:orderID", controller.GetOrder)
	orders.GET("/:orderID/history", controller.GetHistory)
	orders.GET("/:orderID/next-stage", controller.GetNextStage)
	orders.POST("/:orderID/transitions", controller.CommitTransition)
	orders.POST("/:orderID/return", controller.ReturnToPreviousStage)
	orders.POST("/:orderID/timer/toggle", controller.ToggleTimer)
	orders.POST("/:orderID/pause", controller.RequestPause)
	orders.POST("/:orderID/pause/approve", controller.ApprovePause)
	orders.POST("/:orderID/pause/reject", controller.RejectPause)
	orders.POST("/:orderID/resume", controller.ResumeFromPause)

	group.GET("/lab/pauses/pending", controller.ListPendingPauses)
}
