package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

const stageSLATable = "lab_stage_sla_configs"

type StageSLAConfigRepositoryInterface interface {
	ListConfigs(ctx context.Context) ([]entities.StageSLAConfig, error)
	FindConfig(ctx context.Context, stage constants.LabStage) (*entities.StageSLAConfig, error)
	UpsertConfig(ctx context.Context, cfg entities.StageSLAConfig) error
}

type StageSLAConfigRepository struct {
	storage *pgxpool.Pool
}

func NewStageSLAConfigRepository(storage *pgxpool.Pool) StageSLAConfigRepositoryInterface {
	return &StageSLAConfigRepository{storage: storage}
}

// нормативы по умолчанию (часы), предупреждение на 75% норматива
var defaultStageTargetHours = []struct {
	stage constants.LabStage
	hours int
}{
	{constants.StageClinicPending, 24},
	{constants.StageDigitalPicking, 4},
	{constants.StageIncomeValidation, 4},
	{constants.StageGypsum, 8},
	{constants.StageDesign, 8},
	{constants.StageClientApproval, 24},
	{constants.StageNesting, 4},
	{constants.StageProductionMan, 16},
	{constants.StageQA, 4},
	{constants.StageBilling, 4},
	{constants.StageDelivery, 24},
}

// DefaultStageSLAConfigs - стартовые нормативы для всех этапов конвейера.
func DefaultStageSLAConfigs(now time.Time) []entities.StageSLAConfig {
	out := make([]entities.StageSLAConfig, 0, len(defaultStageTargetHours))
	for _, d := range defaultStageTargetHours {
		out = append(out, entities.StageSLAConfig{
			Stage:        d.stage,
			TargetHours:  d.hours,
			WarningHours: d.hours * 3 / 4,
			IsActive:     true,
			UpdatedAt:    now,
		})
	}
	return out
}

var stageSLAColumns = []string{"stage", "target_hours", "warning_hours", "is_active", "updated_at"}

func scanStageSLA(row pgx.Row) (*entities.StageSLAConfig, error) {
	var cfg entities.StageSLAConfig
	var stage string
	err := row.Scan(&stage, &cfg.TargetHours, &cfg.WarningHours, &cfg.IsActive, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования SLA этапа: %w", err)
	}
	cfg.Stage = constants.LabStage(stage)
	return &cfg, nil
}

func (r *StageSLAConfigRepository) ListConfigs(ctx context.Context) ([]entities.StageSLAConfig, error) {
	query, args, err := psql().Select(stageSLAColumns...).From(stageSLATable).OrderBy("stage").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения SLA этапов: %w", err)
	}
	defer rows.Close()

	configs := make([]entities.StageSLAConfig, 0)
	for rows.Next() {
		cfg, err := scanStageSLA(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (r *StageSLAConfigRepository) FindConfig(ctx context.Context, stage constants.LabStage) (*entities.StageSLAConfig, error) {
	query, args, err := psql().Select(stageSLAColumns...).From(stageSLATable).Where(sq.Eq{"stage": string(stage)}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanStageSLA(r.storage.QueryRow(ctx, query, args...))
}

func (r *StageSLAConfigRepository) UpsertConfig(ctx context.Context, cfg entities.StageSLAConfig) error {
	query, args, err := psql().Insert(stageSLATable).
		Columns(stageSLAColumns...).
		Values(string(cfg.Stage), cfg.TargetHours, cfg.WarningHours, cfg.IsActive, cfg.UpdatedAt).
		Suffix(`ON CONFLICT (stage) DO UPDATE SET
			target_hours = EXCLUDED.target_hours,
			warning_hours = EXCLUDED.warning_hours,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка сохранения SLA этапа: %w", err)
	}
	return nil
}

// MemoryStageSLAConfigRepository - вариант без базы данных.
type MemoryStageSLAConfigRepository struct {
	mu      sync.RWMutex
	configs map[constants.LabStage]entities.StageSLAConfig
}

func NewMemoryStageSLAConfigRepository(initial ...entities.StageSLAConfig) *MemoryStageSLAConfigRepository {
	r := &MemoryStageSLAConfigRepository{configs: make(map[constants.LabStage]entities.StageSLAConfig)}
	for _, cfg := range initial {
		r.configs[cfg.Stage] = cfg
	}
	return r
}

func (r *MemoryStageSLAConfigRepository) ListConfigs(_ context.Context) ([]entities.StageSLAConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.StageSLAConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out, nil
}

func (r *MemoryStageSLAConfigRepository) FindConfig(_ context.Context, stage constants.LabStage) (*entities.StageSLAConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[stage]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &cfg, nil
}

func (r *MemoryStageSLAConfigRepository) UpsertConfig(_ context.Context, cfg entities.StageSLAConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Stage] = cfg
	return nil
}
