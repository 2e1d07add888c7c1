package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/services"
	apperrors "lab-workflow/pkg/errors"
	"lab-workflow/pkg/utils"
)

// boardQueryTimeout ограничивает выборку доски вместе с чтением нормативов.
const boardQueryTimeout = 30 * time.Second

type BoardController struct {
	board  services.LabBoardServiceInterface
	logger *zap.Logger
}

func NewBoardController(board services.LabBoardServiceInterface, logger *zap.Logger) *BoardController {
	return &BoardController{board: board, logger: logger}
}

func (c *BoardController) GetBoard(ctx echo.Context) error {
	filter, err := c.parseFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	c.logger.Debug("Запрос доски", zap.Any("filter", filter))

	reqCtx, cancel := utils.ContextWithTimeout(ctx, boardQueryTimeout)
	defer cancel()
	board, err := c.board.Board(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, board, "Доска сформирована", http.StatusOK)
}

func (c *BoardController) GetStats(ctx echo.Context) error {
	stats, err := c.board.Stats(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, stats, "Статистика доски получена", http.StatusOK)
}

// GetProductionChart - ?days=N, по умолчанию неделя.
func (c *BoardController) GetProductionChart(ctx echo.Context) error {
	days := 0
	if raw := ctx.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Параметр days должен быть числом", err, nil), c.logger)
		}
		days = n
	}
	chart, err := c.board.ProductionChart(ctx.Request().Context(), days)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, chart, "График производства получен", http.StatusOK)
}

func (c *BoardController) Export(ctx echo.Context) error {
	filter, err := c.parseFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	reqCtx, cancel := utils.ContextWithTimeout(ctx, boardQueryTimeout)
	defer cancel()
	board, err := c.board.Board(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondWithXLSX(ctx, board)
}

// parseFilter понимает и priority=urgent,high, и priority[]=urgent&priority[]=high.
func (c *BoardController) parseFilter(ctx echo.Context) (dto.BoardFilterDTO, error) {
	var filter dto.BoardFilterDTO
	list := func(name string) []string {
		if arr, ok := ctx.QueryParams()[name+"[]"]; ok {
			return arr
		}
		if s := ctx.QueryParam(name); s != "" {
			return strings.Split(s, ",")
		}
		return nil
	}
	flag := func(name string) (*bool, error) {
		s := ctx.QueryParam(name)
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, apperrors.NewHttpError(http.StatusBadRequest, fmt.Sprintf("Параметр %s должен быть true или false", name), err, nil)
		}
		return &v, nil
	}

	filter.Priority = list("priority")
	filter.Stage = list("stage")
	var err error
	if filter.Digital, err = flag("digital"); err != nil {
		return filter, err
	}
	if filter.Paused, err = flag("paused"); err != nil {
		return filter, err
	}
	return filter, ctx.Validate(&filter)
}

var boardHeaders = []string{
	"Этап", "ID заказа", "Номер", "Клиника", "Врач", "Изделие", "Приоритет", "Цифровой",
	"Принят", "Срок сдачи", "Осталось", "Статус SLA", "На этапе", "Норматив этапа",
	"Отработано", "Пауза", "Причина паузы",
}

func boardRow(column dto.StageColumnDTO, card dto.LabOrderDTO) []interface{} {
	dateFmt := "02.01.2006 15:04"
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	yesNo := func(b bool) string {
		if b {
			return "да"
		}
		return "нет"
	}

	return []interface{}{
		column.Label, card.ID, deref(card.OrderNumber), deref(card.ClinicName), deref(card.DoctorName),
		deref(card.ProductName), card.Priority, yesNo(card.IsDigital),
		card.CreatedAt.Format(dateFmt), card.TargetDeliveryDate.Format(dateFmt), card.Remaining, card.SLAStatus,
		utils.FormatSecondsToHumanReadable(card.StageDwellSeconds), card.StageSLAStatus,
		card.Timer.Elapsed, yesNo(card.Pause.IsPaused), deref(card.Pause.Reason),
	}
}

func (c *BoardController) respondWithXLSX(ctx echo.Context, board *dto.BoardDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Доска производства"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	f.SetSheetRow(sheet, "A1", &boardHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastHeader, _ := excelize.CoordinatesToCellName(len(boardHeaders), 1)
	f.SetCellStyle(sheet, "A1", lastHeader, style)

	rowIdx := 2
	for _, column := range board.Columns {
		for _, card := range column.Orders {
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			row := boardRow(column, card)
			f.SetSheetRow(sheet, cell, &row)
			rowIdx++
		}
	}
	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "B", 38)
	f.SetColWidth(sheet, "D", "F", 25)
	f.SetColWidth(sheet, "I", "J", 18)
	f.SetColWidth(sheet, "Q", "Q", 40)

	fileName := fmt.Sprintf("lab_board_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
