package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/entities"
	"lab-workflow/internal/services"
	"lab-workflow/pkg/constants"
	"lab-workflow/pkg/utils"
)

// StageSLAController - нормативы времени этапов.
type StageSLAController struct {
	service services.StageSLAConfigServiceInterface
	logger  *zap.Logger
}

func NewStageSLAController(service services.StageSLAConfigServiceInterface, logger *zap.Logger) *StageSLAController {
	return &StageSLAController{service: service, logger: logger}
}

func (c *StageSLAController) ListConfigs(ctx echo.Context) error {
	configs, err := c.service.ListConfigs(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, services.StageSLAConfigsToDTO(configs), "Нормативы этапов получены", http.StatusOK)
}

func (c *StageSLAController) UpdateConfig(ctx echo.Context) error {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.UpdateStageSLADTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	stage := constants.LabStage(ctx.Param("stage"))
	cfg, err := c.service.UpdateConfig(ctx.Request().Context(), stage, in, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, services.StageSLAConfigsToDTO([]entities.StageSLAConfig{*cfg})[0], "Норматив этапа обновлен", http.StatusOK)
}
