package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

const (
	labOrderTable   = "lab_orders"
	transitionTable = "lab_stage_transitions"

	pgUniqueViolation = "23505"
)

var labOrderColumns = []string{
	"id", "order_number", "stage", "stage_entered_at", "priority", "is_digital", "created_at",
	"sla_business_days", "manual_delivery_date",
	"is_paused", "paused_at", "pause_reason", "paused_duration_total_seconds",
	"pause_requested", "pause_requested_at", "pause_requested_by_role",
	"timer_total_seconds", "timer_is_running", "timer_last_start",
	"clinic_name", "patient_summary", "product_name", "doctor_name",
	"version", "updated_at",
}

var transitionColumns = []string{
	"id", "order_id", "kind", "from_stage", "to_stage", "justification",
	"actor_role", "actor_id", "worked_seconds", "created_at",
}

type LabOrderRepositoryInterface interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*entities.LabOrder, error)
	ListOrders(ctx context.Context, filter entities.LabOrderFilter) ([]entities.LabOrder, error)
	CreateOrder(ctx context.Context, order *entities.LabOrder) error
	// SaveOrder записывает заказ, если версия в хранилище равна expectedVersion,
	// и в той же транзакции добавляет записи истории. При успехе order.Version увеличивается.
	SaveOrder(ctx context.Context, order *entities.LabOrder, expectedVersion int64, records ...entities.StageTransitionRecord) error
	ListRecords(ctx context.Context, orderID uuid.UUID) ([]entities.StageTransitionRecord, error)
	// CountCompletedByDay - сколько заказов перешло на доставку в каждый день [from, to).
	// Дни без завершений не возвращаются.
	CountCompletedByDay(ctx context.Context, from, to time.Time) ([]entities.DailyCount, error)
}

type LabOrderRepository struct {
	storage   *pgxpool.Pool
	txManager TxManagerInterface
	logger    *zap.Logger
}

func NewLabOrderRepository(storage *pgxpool.Pool, txManager TxManagerInterface, logger *zap.Logger) LabOrderRepositoryInterface {
	return &LabOrderRepository{storage: storage, txManager: txManager, logger: logger}
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func scanLabOrder(row pgx.Row) (*entities.LabOrder, error) {
	var o entities.LabOrder
	var stage, priority string

	err := row.Scan(
		&o.ID, &o.OrderNumber, &stage, &o.StageEnteredAt, &priority, &o.IsDigital, &o.CreatedAt,
		&o.SLABusinessDays, &o.ManualDeliveryDate,
		&o.IsPaused, &o.PausedAt, &o.PauseReason, &o.PausedDurationTotalSeconds,
		&o.PauseRequested, &o.PauseRequestedAt, &o.PauseRequestedByRole,
		&o.Timer.TotalSeconds, &o.Timer.IsRunning, &o.Timer.LastStart,
		&o.ClinicName, &o.PatientSummary, &o.ProductName, &o.DoctorName,
		&o.Version, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
	}
	o.Stage = constants.LabStage(stage)
	o.Priority = constants.LabPriority(priority)
	return &o, nil
}

func (r *LabOrderRepository) FindOrder(ctx context.Context, id uuid.UUID) (*entities.LabOrder, error) {
	query, args, err := psql().Select(labOrderColumns...).From(labOrderTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanLabOrder(r.storage.QueryRow(ctx, query, args...))
}

func (r *LabOrderRepository) ListOrders(ctx context.Context, filter entities.LabOrderFilter) ([]entities.LabOrder, error) {
	builder := psql().Select(labOrderColumns...).From(labOrderTable)

	if len(filter.Stages) > 0 {
		stages := make([]string, len(filter.Stages))
		for i, s := range filter.Stages {
			stages[i] = string(s)
		}
		builder = builder.Where(sq.Eq{"stage": stages})
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = string(p)
		}
		builder = builder.Where(sq.Eq{"priority": priorities})
	}
	if filter.IsDigital != nil {
		builder = builder.Where(sq.Eq{"is_digital": *filter.IsDigital})
	}
	if filter.IsPaused != nil {
		builder = builder.Where(sq.Eq{"is_paused": *filter.IsPaused})
	}
	if filter.PausePending != nil {
		builder = builder.Where(sq.Eq{"pause_requested": *filter.PausePending})
	}

	query, args, err := builder.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заказов: %w", err)
	}
	defer rows.Close()

	orders := make([]entities.LabOrder, 0)
	for rows.Next() {
		order, err := scanLabOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *LabOrderRepository) CreateOrder(ctx context.Context, order *entities.LabOrder) error {
	if order.Version == 0 {
		order.Version = 1
	}
	query, args, err := psql().Insert(labOrderTable).Columns(labOrderColumns...).Values(orderValues(order)...).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.ErrOrderExists
		}
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}
	return nil
}

func (r *LabOrderRepository) SaveOrder(ctx context.Context, order *entities.LabOrder, expectedVersion int64, records ...entities.StageTransitionRecord) error {
	err := r.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		query, args, err := psql().Update(labOrderTable).
			SetMap(map[string]interface{}{
				"stage":                         string(order.Stage),
				"stage_entered_at":              order.StageEnteredAt,
				"sla_business_days":             order.SLABusinessDays,
				"manual_delivery_date":          order.ManualDeliveryDate,
				"is_paused":                     order.IsPaused,
				"paused_at":                     order.PausedAt,
				"pause_reason":                  order.PauseReason,
				"paused_duration_total_seconds": order.PausedDurationTotalSeconds,
				"pause_requested":               order.PauseRequested,
				"pause_requested_at":            order.PauseRequestedAt,
				"pause_requested_by_role":       order.PauseRequestedByRole,
				"timer_total_seconds":           order.Timer.TotalSeconds,
				"timer_is_running":              order.Timer.IsRunning,
				"timer_last_start":              order.Timer.LastStart,
				"version":                       sq.Expr("version + 1"),
				"updated_at":                    order.UpdatedAt,
			}).
			Where(sq.Eq{"id": order.ID, "version": expectedVersion}).
			ToSql()
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("ошибка обновления заказа: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missOrConflict(ctx, tx, order.ID)
		}

		return insertRecords(ctx, tx, records)
	})
	if err != nil {
		return err
	}

	order.Version = expectedVersion + 1
	return nil
}

// missOrConflict различает удалённый заказ и устаревшую версию.
func (r *LabOrderRepository) missOrConflict(ctx context.Context, q Querier, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM lab_orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки заказа: %w", err)
	}
	if !exists {
		return apperrors.ErrOrderNotFound
	}
	r.logger.Debug("Версия заказа устарела", zap.String("orderID", id.String()))
	return apperrors.ErrConflict
}

func insertRecords(ctx context.Context, q Querier, records []entities.StageTransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	builder := psql().Insert(transitionTable).Columns(transitionColumns...)
	for _, rec := range records {
		builder = builder.Values(
			rec.ID, rec.OrderID, string(rec.Kind), string(rec.FromStage), string(rec.ToStage), rec.Justification,
			rec.ActorRole, rec.ActorID, rec.WorkedSeconds, rec.CreatedAt,
		)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка записи истории заказа: %w", err)
	}
	return nil
}

func (r *LabOrderRepository) ListRecords(ctx context.Context, orderID uuid.UUID) ([]entities.StageTransitionRecord, error) {
	query, args, err := psql().Select(transitionColumns...).From(transitionTable).
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории заказа: %w", err)
	}
	defer rows.Close()

	records := make([]entities.StageTransitionRecord, 0)
	for rows.Next() {
		var rec entities.StageTransitionRecord
		var kind, from, to string
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &kind, &from, &to, &rec.Justification,
			&rec.ActorRole, &rec.ActorID, &rec.WorkedSeconds, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи истории: %w", err)
		}
		rec.Kind = constants.TransitionKind(kind)
		rec.FromStage = constants.LabStage(from)
		rec.ToStage = constants.LabStage(to)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *LabOrderRepository) CountCompletedByDay(ctx context.Context, from, to time.Time) ([]entities.DailyCount, error) {
	query, args, err := psql().
		Select("date_trunc('day', created_at AT TIME ZONE 'UTC') AS day", "COUNT(*)").
		From(transitionTable).
		Where(sq.Eq{"kind": string(constants.TransitionForward), "to_stage": string(constants.StageDelivery)}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		GroupBy("day").
		OrderBy("day ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета завершенных заказов: %w", err)
	}
	defer rows.Close()

	out := make([]entities.DailyCount, 0)
	for rows.Next() {
		var c entities.DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования дневной статистики: %w", err)
		}
		c.Day = c.Day.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func orderValues(o *entities.LabOrder) []interface{} {
	return []interface{}{
		o.ID, o.OrderNumber, string(o.Stage), o.StageEnteredAt, string(o.Priority), o.IsDigital, o.CreatedAt,
		o.SLABusinessDays, o.ManualDeliveryDate,
		o.IsPaused, o.PausedAt, o.PauseReason, o.PausedDurationTotalSeconds,
		o.PauseRequested, o.PauseRequestedAt, o.PauseRequestedByRole,
		o.Timer.TotalSeconds, o.Timer.IsRunning, o.Timer.LastStart,
		o.ClinicName, o.PatientSummary, o.ProductName, o.DoctorName,
		o.Version, o.UpdatedAt,
	}
}
