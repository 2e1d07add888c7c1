package services

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/entities"
	"lab-workflow/internal/repositories"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
	"lab-workflow/pkg/utils"
)

type LabBoardServiceInterface interface {
	Board(ctx context.Context, filter dto.BoardFilterDTO) (*dto.BoardDTO, error)
	Stats(ctx context.Context) (*dto.BoardStatsDTO, error)
	Annotate(ctx context.Context, order *entities.LabOrder) (*dto.LabOrderDTO, error)
	AnnotateMany(ctx context.Context, orders []entities.LabOrder) ([]dto.LabOrderDTO, error)
	ProductionChart(ctx context.Context, days int) (*dto.ProductionChartDTO, error)
}

const (
	defaultChartDays = 7
	maxChartDays     = 90
)

// LabBoardService - доска производства: заказы по этапам со сроками.
// Только чтение, блокировки заказов не нужны.
type LabBoardService struct {
	repo          repositories.LabOrderRepositoryInterface
	slaConfigs    StageSLAConfigServiceInterface
	calendar      *workflow.Calendar
	warningWindow time.Duration
	clock         Clock
	logger        *zap.Logger
}

func NewLabBoardService(
	repo repositories.LabOrderRepositoryInterface,
	slaConfigs StageSLAConfigServiceInterface,
	calendar *workflow.Calendar,
	warningWindow time.Duration,
	logger *zap.Logger,
) *LabBoardService {
	return &LabBoardService{
		repo:          repo,
		slaConfigs:    slaConfigs,
		calendar:      calendar,
		warningWindow: warningWindow,
		clock:         func() time.Time { return time.Now().UTC() },
		logger:        logger,
	}
}

// load параллельно читает заказы и нормативы этапов.
func (s *LabBoardService) load(ctx context.Context, filter entities.LabOrderFilter) ([]entities.LabOrder, map[constants.LabStage]entities.StageSLAConfig, error) {
	var (
		orders  []entities.LabOrder
		configs map[constants.LabStage]entities.StageSLAConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.ListOrders(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		configs, err = s.slaConfigs.ConfigMap(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return orders, configs, nil
}

func (s *LabBoardService) Board(ctx context.Context, filter dto.BoardFilterDTO) (*dto.BoardDTO, error) {
	orders, configs, err := s.load(ctx, toEntityFilter(filter))
	if err != nil {
		return nil, err
	}
	now := s.clock()

	stages := workflow.Stages()
	columns := make([]dto.StageColumnDTO, len(stages))
	for i, st := range stages {
		columns[i] = dto.StageColumnDTO{Stage: string(st.ID), Label: st.Label, Index: i, Orders: []dto.LabOrderDTO{}}
	}
	for i := range orders {
		idx, ok := workflow.IndexOf(orders[i].Stage)
		if !ok {
			s.logger.Warn("Заказ на неизвестном этапе пропущен",
				zap.String("orderID", orders[i].ID.String()),
				zap.String("stage", string(orders[i].Stage)),
			)
			continue
		}
		columns[idx].Orders = append(columns[idx].Orders, s.annotate(&orders[i], configs, now))
		columns[idx].Count++
	}

	return &dto.BoardDTO{Columns: columns, Total: len(orders), GeneratedAt: now}, nil
}

func (s *LabBoardService) Stats(ctx context.Context) (*dto.BoardStatsDTO, error) {
	orders, configs, err := s.load(ctx, entities.LabOrderFilter{})
	if err != nil {
		return nil, err
	}
	now := s.clock()

	stats := &dto.BoardStatsDTO{Total: len(orders), PerStage: make(map[string]int, len(workflow.Stages()))}
	for _, st := range workflow.Stages() {
		stats.PerStage[string(st.ID)] = 0
	}
	var slaPctSum float64
	for i := range orders {
		card := s.annotate(&orders[i], configs, now)
		slaPctSum += workflow.SLARemainingPercent(&orders[i], now, s.calendar)
		stats.PerStage[card.Stage]++
		if card.Pause.IsPaused {
			stats.Paused++
		}
		if card.Pause.Requested {
			stats.PendingPauses++
		}
		switch card.SLAStatus {
		case constants.SLAOverdue:
			stats.Overdue++
		case constants.SLAAtRisk:
			stats.AtRisk++
		}
		if card.StageSLAStatus == constants.StageSLABreached {
			stats.StageBreached++
		}
	}
	if len(orders) > 0 {
		stats.AvgSLAPercent = math.Round(slaPctSum/float64(len(orders))*10) / 10
	}
	return stats, nil
}

// ProductionChart - сколько заказов ушло на доставку за последние days дней, включая сегодня.
// Дни без завершений присутствуют с нулем.
func (s *LabBoardService) ProductionChart(ctx context.Context, days int) (*dto.ProductionChartDTO, error) {
	if days == 0 {
		days = defaultChartDays
	}
	if days < 0 || days > maxChartDays {
		return nil, apperrors.NewInvalidInputError("период графика должен быть от 1 до %d дней", maxChartDays)
	}

	now := s.clock().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	counts, err := s.repo.CountCompletedByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int, len(counts))
	for _, c := range counts {
		byDay[c.Day.UTC().Format("2006-01-02")] += c.Count
	}

	chart := &dto.ProductionChartDTO{From: from, To: to, Days: make([]dto.ProductionDayDTO, 0, days)}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		chart.Days = append(chart.Days, dto.ProductionDayDTO{Day: key, CompletedCount: byDay[key]})
		chart.Total += byDay[key]
	}
	return chart, nil
}

func (s *LabBoardService) Annotate(ctx context.Context, order *entities.LabOrder) (*dto.LabOrderDTO, error) {
	configs, err := s.slaConfigs.ConfigMap(ctx)
	if err != nil {
		return nil, err
	}
	card := s.annotate(order, configs, s.clock())
	return &card, nil
}

func (s *LabBoardService) AnnotateMany(ctx context.Context, orders []entities.LabOrder) ([]dto.LabOrderDTO, error) {
	configs, err := s.slaConfigs.ConfigMap(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	out := make([]dto.LabOrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, s.annotate(&orders[i], configs, now))
	}
	return out, nil
}

func (s *LabBoardService) annotate(order *entities.LabOrder, configs map[constants.LabStage]entities.StageSLAConfig, now time.Time) dto.LabOrderDTO {
	remaining := workflow.RemainingTime(order, now, s.calendar)
	dwell := workflow.StageDwell(order, now)

	var stageCfg *entities.StageSLAConfig
	if cfg, ok := configs[order.Stage]; ok {
		stageCfg = &cfg
	}

	card := labOrderToDTO(order, now)
	card.TargetDeliveryDate = workflow.TargetDeliveryDate(order, s.calendar)
	card.RemainingSeconds = int64(remaining / time.Second)
	card.Remaining = utils.FormatDuration(remaining)
	card.SLAStatus = workflow.SLAStatus(remaining, s.warningWindow)
	card.StageDwellSeconds = int64(dwell / time.Second)
	card.StageDwell = utils.FormatDuration(dwell)
	card.StageSLAStatus = workflow.StageSLAStatus(dwell, stageCfg)
	return card
}

func toEntityFilter(f dto.BoardFilterDTO) entities.LabOrderFilter {
	out := entities.LabOrderFilter{IsDigital: f.Digital, IsPaused: f.Paused}
	for _, p := range f.Priority {
		out.Priorities = append(out.Priorities, constants.LabPriority(p))
	}
	for _, st := range f.Stage {
		out.Stages = append(out.Stages, constants.LabStage(st))
	}
	return out
}
