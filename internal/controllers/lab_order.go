package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/entities"
	"lab-workflow/internal/services"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
	"lab-workflow/pkg/utils"
)

// LabOrderController - операции с заказом на конвейере.
type LabOrderController struct {
	workflow services.LabWorkflowServiceInterface
	board    services.LabBoardServiceInterface
	logger   *zap.Logger
}

func NewLabOrderController(
	workflow services.LabWorkflowServiceInterface,
	board services.LabBoardServiceInterface,
	logger *zap.Logger,
) *LabOrderController {
	return &LabOrderController{workflow: workflow, board: board, logger: logger}
}

func actorFromCtx(ctx echo.Context) (services.Actor, error) {
	reqCtx := ctx.Request().Context()
	role, err := utils.GetActorRoleFromCtx(reqCtx)
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{ID: utils.GetUserIDFromCtx(reqCtx), Role: role}, nil
}

func parseOrderID(ctx echo.Context) (uuid.UUID, error) {
	raw := ctx.Param("orderID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат ID заказа", err, nil)
	}
	return id, nil
}

// bindAndValidate - Bind + Validate с единым ответом об ошибке.
func bindAndValidate(ctx echo.Context, dest interface{}) error {
	if err := ctx.Bind(dest); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err, nil)
	}
	return ctx.Validate(dest)
}

// respondOrder отвечает карточкой заказа. Изменение к этому моменту уже записано,
// поэтому сбой расчета сроков не превращается в ошибку: отдается карточка без аннотаций.
func (c *LabOrderController) respondOrder(ctx echo.Context, order *entities.LabOrder, message string, code int) error {
	card, err := c.board.Annotate(ctx.Request().Context(), order)
	if err != nil {
		c.logger.Warn("Не удалось рассчитать сроки заказа, ответ без аннотаций",
			zap.String("orderID", order.ID.String()),
			zap.Error(err),
		)
		snapshot := services.OrderSnapshotToDTO(order, time.Now().UTC())
		return utils.SuccessResponse(ctx, snapshot, message, code)
	}
	return utils.SuccessResponse(ctx, card, message, code)
}

func (c *LabOrderController) RegisterOrder(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.RegisterLabOrderDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.workflow.RegisterOrder(ctx.Request().Context(), in, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, "Заказ принят в производство", http.StatusCreated)
}

func (c *LabOrderController) GetOrder(ctx echo.Context) error {
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	order, err := c.workflow.FindOrder(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, "Заказ получен", http.StatusOK)
}

func (c *LabOrderController) GetHistory(ctx echo.Context) error {
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	history, err := c.workflow.History(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, services.HistoryToDTO(history), "История заказа получена", http.StatusOK)
}

// GetNextStage - подтверждение перед кнопкой "Готово": куда уйдет заказ и разрешено ли это роли.
func (c *LabOrderController) GetNextStage(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	confirmation, err := c.workflow.RequestForwardTransition(ctx.Request().Context(), id, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, confirmation, "Следующий этап определен", http.StatusOK)
}

func (c *LabOrderController) CommitTransition(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.CommitTransitionDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.workflow.CommitTransition(ctx.Request().Context(), id, constants.LabStage(in.TargetStage), actor, in.Justification, in.ExpectedVersion)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, "Этап заказа изменен", http.StatusOK)
}

func (c *LabOrderController) ReturnToPreviousStage(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.ReturnToPreviousStageDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.workflow.ReturnToPreviousStage(ctx.Request().Context(), id, actor, in.Justification, in.ExpectedVersion)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, "Заказ возвращен на предыдущий этап", http.StatusOK)
}

func (c *LabOrderController) ToggleTimer(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, state, err := c.workflow.ToggleTimer(ctx.Request().Context(), id, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	message := "Таймер остановлен"
	if state.IsRunning {
		message = "Таймер запущен"
	}
	return utils.SuccessResponse(ctx, dto.TimerToggleDTO{
		OrderID: order.ID.String(),
		Version: order.Version,
		Timer:   services.TimerStateToDTO(state),
	}, message, http.StatusOK)
}

func (c *LabOrderController) RequestPause(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.RequestPauseDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.workflow.RequestPause(ctx.Request().Context(), id, actor, in.Reason, in.ExpectedVersion)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, "Запрос паузы отправлен координатору", http.StatusOK)
}

func (c *LabOrderController) ApprovePause(ctx echo.Context) error {
	return c.pauseDecision(ctx, true)
}

func (c *LabOrderController) RejectPause(ctx echo.Context) error {
	return c.pauseDecision(ctx, false)
}

func (c *LabOrderController) pauseDecision(ctx echo.Context, approve bool) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.PauseDecisionDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx := ctx.Request().Context()
	var order *entities.LabOrder
	message := "Пауза одобрена"
	if approve {
		order, err = c.workflow.ApprovePause(reqCtx, id, actor, in.ExpectedVersion)
	} else {
		message = "Запрос паузы отклонен"
		order, err = c.workflow.RejectPause(reqCtx, id, actor, in.Comment, in.ExpectedVersion)
	}
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, message, http.StatusOK)
}

func (c *LabOrderController) ResumeFromPause(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.PauseDecisionDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.workflow.ResumeFromPause(ctx.Request().Context(), id, actor, in.ExpectedVersion)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondOrder(ctx, order, "Работа над заказом возобновлена", http.StatusOK)
}

func (c *LabOrderController) ListPendingPauses(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	reqCtx := ctx.Request().Context()
	orders, err := c.workflow.ListPendingPauses(reqCtx, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	cards, err := c.board.AnnotateMany(reqCtx, orders)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, cards, "Запросы паузы получены", http.StatusOK)
}
