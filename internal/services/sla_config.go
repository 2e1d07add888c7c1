package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/entities"
	"lab-workflow/internal/repositories"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

const stageSLACacheKey = "lab:stage_sla_configs"

type StageSLAConfigServiceInterface interface {
	ListConfigs(ctx context.Context) ([]entities.StageSLAConfig, error)
	ConfigMap(ctx context.Context) (map[constants.LabStage]entities.StageSLAConfig, error)
	UpdateConfig(ctx context.Context, stage constants.LabStage, in dto.UpdateStageSLADTO, actor Actor) (*entities.StageSLAConfig, error)
}

// StageSLAConfigService читает нормативы этапов через кэш Redis (cache-aside).
// Без кэша (cache == nil) всегда идет в хранилище.
type StageSLAConfigService struct {
	repo   repositories.StageSLAConfigRepositoryInterface
	cache  repositories.CacheRepositoryInterface
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
}

func NewStageSLAConfigService(
	repo repositories.StageSLAConfigRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	ttl time.Duration,
	logger *zap.Logger,
) *StageSLAConfigService {
	return &StageSLAConfigService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (s *StageSLAConfigService) ListConfigs(ctx context.Context) ([]entities.StageSLAConfig, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	configs, err := s.repo.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	sortByStage(configs)
	s.toCache(ctx, configs)
	return configs, nil
}

func (s *StageSLAConfigService) ConfigMap(ctx context.Context) (map[constants.LabStage]entities.StageSLAConfig, error) {
	configs, err := s.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[constants.LabStage]entities.StageSLAConfig, len(configs))
	for _, cfg := range configs {
		out[cfg.Stage] = cfg
	}
	return out, nil
}

// UpdateConfig доступен только координаторам.
func (s *StageSLAConfigService) UpdateConfig(ctx context.Context, stage constants.LabStage, in dto.UpdateStageSLADTO, actor Actor) (*entities.StageSLAConfig, error) {
	if !constants.IsCoordinator(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	if !workflow.IsKnownStage(stage) {
		return nil, apperrors.ErrUnknownStage
	}
	if in.TargetHours > 0 && in.WarningHours > in.TargetHours {
		return nil, apperrors.NewInvalidInputError("порог предупреждения (%d ч) больше норматива (%d ч)", in.WarningHours, in.TargetHours)
	}

	cfg := entities.StageSLAConfig{
		Stage:        stage,
		TargetHours:  in.TargetHours,
		WarningHours: in.WarningHours,
		IsActive:     in.IsActive != nil && *in.IsActive,
		UpdatedAt:    s.clock(),
	}
	if err := s.repo.UpsertConfig(ctx, cfg); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Норматив этапа обновлен",
		zap.String("stage", string(stage)),
		zap.Int("targetHours", cfg.TargetHours),
		zap.Int("warningHours", cfg.WarningHours),
		zap.Bool("active", cfg.IsActive),
		zap.String("role", actor.Role),
	)
	return &cfg, nil
}

func (s *StageSLAConfigService) fromCache(ctx context.Context) ([]entities.StageSLAConfig, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, stageSLACacheKey)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("Кэш нормативов недоступен", zap.Error(err))
		}
		return nil, false
	}
	var configs []entities.StageSLAConfig
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		s.logger.Warn("Поврежденная запись кэша нормативов", zap.Error(err))
		return nil, false
	}
	return configs, true
}

func (s *StageSLAConfigService) toCache(ctx context.Context, configs []entities.StageSLAConfig) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(configs)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, stageSLACacheKey, data, s.ttl); err != nil {
		s.logger.Warn("Не удалось записать нормативы в кэш", zap.Error(err))
	}
}

func (s *StageSLAConfigService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, stageSLACacheKey); err != nil {
		s.logger.Warn("Не удалось сбросить кэш нормативов", zap.Error(err))
	}
}

func sortByStage(configs []entities.StageSLAConfig) {
	sort.SliceStable(configs, func(i, j int) bool {
		a, _ := workflow.IndexOf(configs[i].Stage)
		b, _ := workflow.IndexOf(configs[j].Stage)
		return a < b
	})
}
