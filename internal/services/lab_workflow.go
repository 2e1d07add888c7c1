package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/entities"
	"lab-workflow/internal/events"
	"lab-workflow/internal/repositories"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
	"lab-workflow/pkg/eventbus"
	"lab-workflow/pkg/metrics"
)

// сколько раз перечитывать заказ, если таймер переключили в другом процессе
const toggleAttempts = 3

// Clock - источник времени. Вызывается один раз на операцию.
type Clock func() time.Time

// Actor - кто выполняет действие (из JWT).
type Actor struct {
	ID   string
	Role string
}

// EventPublisher - шина событий. Публикация не блокирует и не возвращает ошибок.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// OrderHistory - история заказа и время работы по этапам.
type OrderHistory struct {
	Order     *entities.LabOrder
	Records   []entities.StageTransitionRecord
	Breakdown []workflow.StageWork
}

type LabWorkflowServiceInterface interface {
	RegisterOrder(ctx context.Context, in dto.RegisterLabOrderDTO, actor Actor) (*entities.LabOrder, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*entities.LabOrder, error)
	History(ctx context.Context, id uuid.UUID) (*OrderHistory, error)
	RequestForwardTransition(ctx context.Context, id uuid.UUID, actor Actor) (*workflow.Confirmation, error)
	CommitTransition(ctx context.Context, id uuid.UUID, target constants.LabStage, actor Actor, justification string, expectedVersion int64) (*entities.LabOrder, error)
	ReturnToPreviousStage(ctx context.Context, id uuid.UUID, actor Actor, justification string, expectedVersion int64) (*entities.LabOrder, error)
	ToggleTimer(ctx context.Context, id uuid.UUID, actor Actor) (*entities.LabOrder, workflow.TimerState, error)
	RequestPause(ctx context.Context, id uuid.UUID, actor Actor, reason string, expectedVersion int64) (*entities.LabOrder, error)
	ApprovePause(ctx context.Context, id uuid.UUID, actor Actor, expectedVersion int64) (*entities.LabOrder, error)
	RejectPause(ctx context.Context, id uuid.UUID, actor Actor, comment string, expectedVersion int64) (*entities.LabOrder, error)
	ResumeFromPause(ctx context.Context, id uuid.UUID, actor Actor, expectedVersion int64) (*entities.LabOrder, error)
	ListPendingPauses(ctx context.Context, actor Actor) ([]entities.LabOrder, error)
}

type LabWorkflowService struct {
	repo    repositories.LabOrderRepositoryInterface
	bus     EventPublisher
	metrics *metrics.Metrics
	locks   *orderLocks
	clock   Clock
	logger  *zap.Logger
}

type LabWorkflowOption func(*LabWorkflowService)

func WithClock(clock Clock) LabWorkflowOption {
	return func(s *LabWorkflowService) { s.clock = clock }
}

func WithMetrics(m *metrics.Metrics) LabWorkflowOption {
	return func(s *LabWorkflowService) { s.metrics = m }
}

func NewLabWorkflowService(
	repo repositories.LabOrderRepositoryInterface,
	bus EventPublisher,
	logger *zap.Logger,
	opts ...LabWorkflowOption,
) *LabWorkflowService {
	s := &LabWorkflowService{
		repo:   repo,
		bus:    bus,
		locks:  newOrderLocks(),
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LabWorkflowService) RegisterOrder(ctx context.Context, in dto.RegisterLabOrderDTO, actor Actor) (*entities.LabOrder, error) {
	now := s.clock()

	id := uuid.New()
	if in.ID != "" {
		parsed, err := uuid.Parse(in.ID)
		if err != nil {
			return nil, apperrors.NewInvalidInputError("неверный ID заказа: %s", in.ID)
		}
		id = parsed
	}

	priority := constants.LabPriority(in.Priority)
	if priority == "" {
		priority = constants.PriorityNormal
	}
	if !constants.IsValidPriority(priority) {
		return nil, apperrors.NewInvalidInputError("неизвестный приоритет: %s", in.Priority)
	}

	createdAt := now
	if in.CreatedAt != nil {
		createdAt = in.CreatedAt.UTC()
	}

	order := &entities.LabOrder{
		ID:              id,
		OrderNumber:     null.StringFromPtr(in.OrderNumber),
		Stage:           workflow.InitialStage(),
		StageEnteredAt:  createdAt,
		Priority:        priority,
		IsDigital:       in.IsDigital,
		CreatedAt:       createdAt,
		SLABusinessDays: workflow.SLABusinessDaysFor(in.SLABusinessDays, in.ItemSLADays, priority),
		ClinicName:      null.StringFromPtr(in.ClinicName),
		PatientSummary:  null.StringFromPtr(in.PatientSummary),
		ProductName:     null.StringFromPtr(in.ProductName),
		DoctorName:      null.StringFromPtr(in.DoctorName),
		UpdatedAt:       now,
	}
	if in.ManualDeliveryDate != nil {
		order.ManualDeliveryDate = null.TimeFrom(in.ManualDeliveryDate.UTC())
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Заказ принят в производство",
		zap.String("orderID", order.ID.String()),
		zap.String("priority", string(order.Priority)),
		zap.Bool("digital", order.IsDigital),
		zap.Int("slaDays", order.SLABusinessDays),
	)
	s.metrics.RecordOrderRegistered(string(order.Priority))
	s.publish(ctx, events.OrderRegistered, order, actor, nil, now)
	return order, nil
}

func (s *LabWorkflowService) FindOrder(ctx context.Context, id uuid.UUID) (*entities.LabOrder, error) {
	return s.repo.FindOrder(ctx, id)
}

func (s *LabWorkflowService) History(ctx context.Context, id uuid.UUID) (*OrderHistory, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderHistory{
		Order:     order,
		Records:   records,
		Breakdown: workflow.StageWorkBreakdown(records, order, s.clock()),
	}, nil
}

func (s *LabWorkflowService) RequestForwardTransition(ctx context.Context, id uuid.UUID, actor Actor) (*workflow.Confirmation, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	confirmation, err := workflow.RequestForwardTransition(order, actor.Role)
	if err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// CommitTransition требует версию: решение о переходе принято по конкретному состоянию заказа.
func (s *LabWorkflowService) CommitTransition(ctx context.Context, id uuid.UUID, target constants.LabStage, actor Actor, justification string, expectedVersion int64) (*entities.LabOrder, error) {
	if expectedVersion <= 0 {
		return nil, apperrors.ErrVersionRequired
	}
	order, record, now, err := s.mutate(ctx, id, expectedVersion, actor, func(order *entities.LabOrder, now time.Time) (*entities.StageTransitionRecord, error) {
		rec, err := workflow.ApplyTransition(order, target, actor.Role, justification, now)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	})
	if err != nil {
		s.logRejected("Переход этапа отклонен", id, actor, err)
		return nil, err
	}

	s.logger.Info("Заказ переведен на этап",
		zap.String("orderID", id.String()),
		zap.String("kind", string(record.Kind)),
		zap.String("from", string(record.FromStage)),
		zap.String("to", string(record.ToStage)),
		zap.String("role", actor.Role),
		zap.Int64("version", order.Version),
	)
	s.metrics.RecordTransition(string(record.Kind), string(record.ToStage))
	s.publish(ctx, events.StageTransitioned, order, actor, record, now)
	return order, nil
}

// ReturnToPreviousStage - возврат ровно на один этап назад.
func (s *LabWorkflowService) ReturnToPreviousStage(ctx context.Context, id uuid.UUID, actor Actor, justification string, expectedVersion int64) (*entities.LabOrder, error) {
	if expectedVersion <= 0 {
		return nil, apperrors.ErrVersionRequired
	}
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	prev, err := workflow.PreviousStage(order)
	if err != nil {
		return nil, err
	}
	target, err := workflow.StageAt(prev)
	if err != nil {
		return nil, err
	}
	return s.CommitTransition(ctx, id, target.ID, actor, justification, expectedVersion)
}

// ToggleTimer всегда переключает таймер. Конфликт версии с другим процессом
// не делает переключение неверным, поэтому заказ перечитывается и попытка повторяется.
func (s *LabWorkflowService) ToggleTimer(ctx context.Context, id uuid.UUID, actor Actor) (*entities.LabOrder, workflow.TimerState, error) {
	var lastErr error
	for attempt := 1; attempt <= toggleAttempts; attempt++ {
		var state workflow.TimerState
		order, _, now, err := s.mutate(ctx, id, 0, actor, func(order *entities.LabOrder, now time.Time) (*entities.StageTransitionRecord, error) {
			state = workflow.ToggleTimer(&order.Timer, now)
			order.UpdatedAt = now
			return nil, nil
		})
		if err == nil {
			s.logger.Debug("Таймер переключен",
				zap.String("orderID", id.String()),
				zap.Bool("running", state.IsRunning),
				zap.Int64("totalSeconds", state.TotalSeconds),
			)
			s.metrics.RecordTimerToggle(state.IsRunning)
			s.publish(ctx, events.TimerToggled, order, actor, nil, now)
			return order, state, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, workflow.TimerState{}, err
		}
		lastErr = err
		s.logger.Warn("Конфликт версии при переключении таймера, повтор",
			zap.String("orderID", id.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, workflow.TimerState{}, lastErr
}

func (s *LabWorkflowService) RequestPause(ctx context.Context, id uuid.UUID, actor Actor, reason string, expectedVersion int64) (*entities.LabOrder, error) {
	return s.pauseAction(ctx, id, actor, expectedVersion, events.PauseRequested, func(order *entities.LabOrder, now time.Time) (entities.StageTransitionRecord, error) {
		return workflow.RequestPause(order, actor.Role, reason, now)
	})
}

func (s *LabWorkflowService) ApprovePause(ctx context.Context, id uuid.UUID, actor Actor, expectedVersion int64) (*entities.LabOrder, error) {
	return s.pauseAction(ctx, id, actor, expectedVersion, events.PauseApproved, func(order *entities.LabOrder, now time.Time) (entities.StageTransitionRecord, error) {
		return workflow.ApprovePause(order, actor.Role, now)
	})
}

func (s *LabWorkflowService) RejectPause(ctx context.Context, id uuid.UUID, actor Actor, comment string, expectedVersion int64) (*entities.LabOrder, error) {
	return s.pauseAction(ctx, id, actor, expectedVersion, events.PauseRejected, func(order *entities.LabOrder, now time.Time) (entities.StageTransitionRecord, error) {
		return workflow.RejectPause(order, actor.Role, comment, now)
	})
}

func (s *LabWorkflowService) ResumeFromPause(ctx context.Context, id uuid.UUID, actor Actor, expectedVersion int64) (*entities.LabOrder, error) {
	return s.pauseAction(ctx, id, actor, expectedVersion, events.PauseResumed, func(order *entities.LabOrder, now time.Time) (entities.StageTransitionRecord, error) {
		return workflow.ResumeFromPause(order, actor.Role, now)
	})
}

// ListPendingPauses - очередь запросов паузы для координаторов.
func (s *LabWorkflowService) ListPendingPauses(ctx context.Context, actor Actor) ([]entities.LabOrder, error) {
	if !constants.IsCoordinator(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	pending := true
	return s.repo.ListOrders(ctx, entities.LabOrderFilter{PausePending: &pending})
}

func (s *LabWorkflowService) pauseAction(
	ctx context.Context,
	id uuid.UUID,
	actor Actor,
	expectedVersion int64,
	eventName string,
	apply func(order *entities.LabOrder, now time.Time) (entities.StageTransitionRecord, error),
) (*entities.LabOrder, error) {
	order, record, now, err := s.mutate(ctx, id, expectedVersion, actor, func(order *entities.LabOrder, now time.Time) (*entities.StageTransitionRecord, error) {
		rec, err := apply(order, now)
		if err != nil {
			return nil, err
		}
		order.UpdatedAt = now
		return &rec, nil
	})
	if err != nil {
		s.logRejected("Действие с паузой отклонено", id, actor, err)
		return nil, err
	}

	s.logger.Info("Пауза заказа изменена",
		zap.String("orderID", id.String()),
		zap.String("action", string(record.Kind)),
		zap.String("role", actor.Role),
		zap.Bool("paused", order.IsPaused),
	)
	s.metrics.RecordPauseAction(string(record.Kind))
	s.publish(ctx, eventName, order, actor, record, now)
	return order, nil
}

// mutate - чтение, изменение и запись заказа под блокировкой заказа.
// expectedVersion = 0 (только паузы) означает "без проверки устаревания": для CAS берется прочитанная версия.
func (s *LabWorkflowService) mutate(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	actor Actor,
	apply func(order *entities.LabOrder, now time.Time) (*entities.StageTransitionRecord, error),
) (*entities.LabOrder, *entities.StageTransitionRecord, time.Time, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	if expectedVersion != 0 && order.Version != expectedVersion {
		s.metrics.RecordConflict()
		return nil, nil, time.Time{}, apperrors.ErrConflict
	}

	now := s.clock()
	readVersion := order.Version
	record, err := apply(order, now)
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	var records []entities.StageTransitionRecord
	if record != nil {
		if actor.ID != "" {
			record.ActorID = null.StringFrom(actor.ID)
		}
		records = append(records, *record)
	}

	if err := s.repo.SaveOrder(ctx, order, readVersion, records...); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.metrics.RecordConflict()
			return nil, nil, time.Time{}, err
		}
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			return nil, nil, time.Time{}, err
		}
		return nil, nil, time.Time{}, fmt.Errorf("не удалось сохранить заказ %s: %w", id, err)
	}
	return order, record, now, nil
}

func (s *LabWorkflowService) publish(ctx context.Context, name string, order *entities.LabOrder, actor Actor, record *entities.StageTransitionRecord, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.NewLabOrderEvent(name, order, actor.Role, actor.ID, record, now))
}

func (s *LabWorkflowService) logRejected(msg string, id uuid.UUID, actor Actor, err error) {
	fields := []zap.Field{
		zap.String("orderID", id.String()),
		zap.String("role", actor.Role),
		zap.Error(err),
	}
	if apperrors.StatusCode(err) >= 500 {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}
