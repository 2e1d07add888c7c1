package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"lab-workflow/internal/listeners"
	"lab-workflow/internal/repositories"
	"lab-workflow/internal/routes"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/config"
	"lab-workflow/pkg/customvalidator"
	"lab-workflow/pkg/database/postgresql"
	apperrors "lab-workflow/pkg/errors"
	"lab-workflow/pkg/eventbus"
	applogger "lab-workflow/pkg/logger"
	"lab-workflow/pkg/metrics"
	appmiddleware "lab-workflow/pkg/middleware"
	"lab-workflow/pkg/rabbitmq"
	"lab-workflow/pkg/service"
	"lab-workflow/pkg/telegram"
	"lab-workflow/pkg/utils"
	"lab-workflow/pkg/websocket"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.New("lab_workflow")

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestLogger(logger, appMetrics))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))

	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		logger.Fatal("Ошибка регистрации кастомных правил валидации", zap.Error(err))
	}
	e.Validator = utils.NewValidator(v)

	// --- Хранилище ---
	var deps routes.Dependencies
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("Хранилище в памяти: данные не переживут перезапуск")
		deps.Orders = repositories.NewMemoryLabOrderRepository()
		deps.SLAConfigs = repositories.NewMemoryStageSLAConfigRepository(repositories.DefaultStageSLAConfigs(time.Now().UTC())...)
	default:
		dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal("не удалось подключиться к Postgres", zap.Error(err))
		}
		defer dbConn.Close()
		if err := postgresql.Migrate(ctx, dbConn); err != nil {
			logger.Fatal("не удалось применить миграции", zap.Error(err))
		}
		txManager := repositories.NewTxManager(dbConn)
		deps.Orders = repositories.NewLabOrderRepository(dbConn, txManager, logger)
		deps.SLAConfigs = repositories.NewStageSLAConfigRepository(dbConn)
	}

	// --- Кэш нормативов ---
	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Warn("Redis недоступен, нормативы читаются без кэша", zap.Error(err), zap.String("address", cfg.Redis.Address))
		} else {
			deps.Cache = repositories.NewRedisCacheRepository(redisClient)
		}
	}

	// --- Календарь ---
	holidays, err := config.LoadHolidays(cfg.Workflow.HolidaysFile)
	if err != nil {
		logger.Fatal("не удалось загрузить праздничные дни", zap.Error(err))
	}
	deps.Calendar = workflow.NewCalendar(holidays)
	logger.Info("Производственный календарь загружен", zap.Int("holidays", len(holidays)))

	// --- События ---
	bus := eventbus.New(logger,
		eventbus.WithRetry(cfg.Workflow.EventRetryAttempts, cfg.Workflow.EventRetryDelay),
		eventbus.WithObserver(func(eventName string, err error, d time.Duration) {
			appMetrics.RecordEventDispatch(eventName, err == nil, d)
		}),
	)
	deps.Bus = bus
	deps.Metrics = appMetrics

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	deps.Hub = hub
	listeners.NewBoardListener(hub, logger).Register(bus)

	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Fatal("не удалось подключиться к RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		publisher := rabbitmq.NewPublisher(conn, cfg.RabbitMQ.Exchange)
		listeners.NewAuditListener(publisher, logger).Register(bus)
	} else {
		logger.Warn("RABBITMQ_URL не задан, аудит событий отключен")
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.CoordinatorChatID != 0 {
		bot := telegram.NewService(cfg.Telegram.BotToken, logger.Named("telegram"))
		listeners.NewTelegramListener(bot, cfg.Telegram.CoordinatorChatID, logger).Register(bus)
	}

	// --- Маршруты ---
	e.GET("/metrics", echo.WrapHandler(appMetrics.Handler()))
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, logger)
	routes.InitRouter(e, deps, jwtSvc, &routes.Loggers{
		Main:  logger,
		Auth:  logger.Named("auth"),
		Lab:   logger.Named("lab"),
		Board: logger.Named("board"),
	}, cfg)

	go func() {
		logger.Info("Сервер запущен", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}
	// дожидаемся отправки уже опубликованных событий
	bus.Wait()
}
