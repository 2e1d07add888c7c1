package routes

import (
	"github.com/labstack/echo/v4"

	"lab-workflow/internal/controllers"
)

func runBoardRouter(group *echo.Group, controller *controllers.BoardController) {
	board := group.Group("/lab/board")
	board.GET("", controller.GetBoard)
	board.GET("/stats", controller.GetStats)
	board.GET("/production", controller.GetProductionChart)
	board.GET("/export", controller.Export)
}

func runStageSLARouter(group *echo.Group, controller *controllers.StageSLAController) {
	group.GET("/lab/sla/stages", controller.ListConfigs)
	group.PUT("/lab/sla/stages/:stage", controller.UpdateConfig)
}

func runWebSocketRouter(group *echo.Group, controller *controllers.WebSocketController) {
	group.GET("/ws", controller.ServeWs)
}
