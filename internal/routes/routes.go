package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lab-workflow/internal/controllers"
	"lab-workflow/internal/repositories"
	"lab-workflow/internal/services"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/config"
	"lab-workflow/pkg/metrics"
	"lab-workflow/pkg/middleware"
	"lab-workflow/pkg/service"
	"lab-workflow/pkg/websocket"
)

type Loggers struct {
	Main  *zap.Logger
	Auth  *zap.Logger
	Lab   *zap.Logger
	Board *zap.Logger
}

// Dependencies - то, что собирается в main: хранилища и инфраструктура.
type Dependencies struct {
	Orders     repositories.LabOrderRepositoryInterface
	SLAConfigs repositories.StageSLAConfigRepositoryInterface
	// Cache может быть nil: нормативы тогда читаются из хранилища.
	Cache    repositories.CacheRepositoryInterface
	Bus      services.EventPublisher
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Calendar *workflow.Calendar
}

func InitRouter(e *echo.Echo, deps Dependencies, jwtSvc service.JWTService, loggers *Loggers, cfg *config.Config) {
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, loggers.Auth)
	secureGroup := api.Group("", authMW.Auth)

	// --- 1. СЕРВИСЫ ---
	slaService := services.NewStageSLAConfigService(deps.SLAConfigs, deps.Cache, cfg.Workflow.SLAConfigCacheTTL, loggers.Lab)
	workflowService := services.NewLabWorkflowService(deps.Orders, deps.Bus, loggers.Lab, services.WithMetrics(deps.Metrics))
	boardService := services.NewLabBoardService(deps.Orders, slaService, deps.Calendar, cfg.Workflow.SLAWarningWindow, loggers.Board)

	// --- 2. КОНТРОЛЛЕРЫ ---
	orderController := controllers.NewLabOrderController(workflowService, boardService, loggers.Lab)
	boardController := controllers.NewBoardController(boardService, loggers.Board)
	slaController := controllers.NewStageSLAController(slaService, loggers.Lab)

	// --- 3. РОУТЕРЫ ---
	runLabOrderRouter(secureGroup, orderController)
	runBoardRouter(secureGroup, boardController)
	runStageSLARouter(secureGroup, slaController)
	if deps.Hub != nil {
		runWebSocketRouter(secureGroup, controllers.NewWebSocketController(deps.Hub, loggers.Main))
	}

	loggers.Main.Info("INIT_ROUTER: Создание маршрутов завершено")
}
