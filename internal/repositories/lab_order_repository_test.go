package repositories

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	"lab-workflow/pkg/database/postgresql"
	apperrors "lab-workflow/pkg/errors"
)

var testPool *pgxpool.Pool

// TestMain поднимает соединение с тестовой БД, если задан TEST_DATABASE_URL.
// Без него интеграционные тесты пропускаются, тесты in-memory выполняются всегда.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		ctx := context.Background()
		pool, err := postgresql.ConnectDB(ctx, dsn, zap.NewNop())
		if err != nil {
			log.Fatalf("Не удалось подключиться к тестовой БД: %v", err)
		}
		if err := postgresql.Migrate(ctx, pool); err != nil {
			log.Fatalf("Не удалось применить миграции: %v", err)
		}
		testPool = pool
	}

	code := m.Run()
	if testPool != nil {
		testPool.Close()
	}
	os.Exit(code)
}

func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE TABLE lab_stage_transitions, lab_orders, lab_stage_sla_configs`)
	require.NoError(t, err, "Не удалось очистить таблицы")
}

func newTestOrder(createdAt time.Time) *entities.LabOrder {
	return &entities.LabOrder{
		ID:              uuid.New(),
		OrderNumber:     null.StringFrom("LAB-0001"),
		Stage:           constants.StageClinicPending,
		StageEnteredAt:  createdAt,
		Priority:        constants.PriorityHigh,
		CreatedAt:       createdAt,
		SLABusinessDays: 2,
		ClinicName:      null.StringFrom("Клиника Улыбка"),
		UpdatedAt:       createdAt,
	}
}

// общий сценарий для обеих реализаций
func exerciseLabOrderRepository(t *testing.T, repo LabOrderRepositoryInterface) {
	ctx := context.Background()
	created := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	order := newTestOrder(created)

	require.NoError(t, repo.CreateOrder(ctx, order))
	assert.Equal(t, int64(1), order.Version)
	assert.ErrorIs(t, repo.CreateOrder(ctx, newTestOrderWithID(order.ID, created)), apperrors.ErrOrderExists)

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StageClinicPending, found.Stage)
	assert.Equal(t, "Клиника Улыбка", found.ClinicName.String)

	found.Stage = constants.StageDigitalPicking
	found.Timer.TotalSeconds = 120
	rec := entities.StageTransitionRecord{
		ID: uuid.New(), OrderID: order.ID, Kind: constants.TransitionForward,
		FromStage: constants.StageClinicPending, ToStage: constants.StageDigitalPicking,
		ActorRole: constants.RoleProductionTech, WorkedSeconds: 120, CreatedAt: created.Add(time.Hour),
	}
	require.NoError(t, repo.SaveOrder(ctx, found, 1, rec))
	assert.Equal(t, int64(2), found.Version)

	stale := *found
	stale.Stage = constants.StageIncomeValidation
	assert.ErrorIs(t, repo.SaveOrder(ctx, &stale, 1), apperrors.ErrConflict)

	missing := newTestOrder(created)
	assert.ErrorIs(t, repo.SaveOrder(ctx, missing, 1), apperrors.ErrOrderNotFound)

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StageDigitalPicking, reloaded.Stage)
	assert.Equal(t, int64(120), reloaded.Timer.TotalSeconds)
	assert.Equal(t, int64(2), reloaded.Version)

	records, err := repo.ListRecords(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, constants.TransitionForward, records[0].Kind)
	assert.Equal(t, int64(120), records[0].WorkedSeconds)

	_, err = repo.FindOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)

	digital := newTestOrder(created.Add(time.Minute))
	digital.IsDigital = true
	require.NoError(t, repo.CreateOrder(ctx, digital))

	yes := true
	list, err := repo.ListOrders(ctx, entities.LabOrderFilter{IsDigital: &yes})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, digital.ID, list[0].ID)

	list, err = repo.ListOrders(ctx, entities.LabOrderFilter{Stages: []constants.LabStage{constants.StageDigitalPicking}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, order.ID, list[0].ID)

	list, err = repo.ListOrders(ctx, entities.LabOrderFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// завершения считаются по переходам на доставку, по дням UTC
	delivered := func(o *entities.LabOrder, kind constants.TransitionKind, at time.Time) {
		current, err := repo.FindOrder(ctx, o.ID)
		require.NoError(t, err)
		require.NoError(t, repo.SaveOrder(ctx, current, current.Version, entities.StageTransitionRecord{
			ID: uuid.New(), OrderID: o.ID, Kind: kind,
			FromStage: constants.StageBilling, ToStage: constants.StageDelivery,
			ActorRole: constants.RoleLabCoordinator, CreatedAt: at,
		}))
	}
	day1 := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	delivered(order, constants.TransitionForward, day1.Add(10*time.Hour))
	delivered(digital, constants.TransitionForward, day1.Add(23*time.Hour))
	delivered(digital, constants.TransitionForward, day1.Add(30*time.Hour))
	delivered(order, constants.TransitionPauseRequest, day1.Add(11*time.Hour))
	delivered(order, constants.TransitionForward, day1.Add(-time.Hour))

	counts, err := repo.CountCompletedByDay(ctx, day1, day1.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.True(t, counts[0].Day.Equal(day1))
	assert.Equal(t, 2, counts[0].Count)
	assert.True(t, counts[1].Day.Equal(day1.Add(24*time.Hour)))
	assert.Equal(t, 1, counts[1].Count)
}

func newTestOrderWithID(id uuid.UUID, createdAt time.Time) *entities.LabOrder {
	o := newTestOrder(createdAt)
	o.ID = id
	return o
}

func TestMemoryLabOrderRepository(t *testing.T) {
	exerciseLabOrderRepository(t, NewMemoryLabOrderRepository())
}

func TestMemoryLabOrderRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryLabOrderRepository()
	order := newTestOrder(time.Now())
	require.NoError(t, repo.CreateOrder(context.Background(), order))

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	found.Stage = constants.StageDelivery

	again, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StageClinicPending, again.Stage, "изменение копии не влияет на хранилище")
}

func TestLabOrderRepository_Integration(t *testing.T) {
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	cleanupTables(t, testPool)
	repo := NewLabOrderRepository(testPool, NewTxManager(testPool), zap.NewNop())
	exerciseLabOrderRepository(t, repo)
}

func TestStageSLAConfigRepository(t *testing.T) {
	ctx := context.Background()
	run := func(t *testing.T, repo StageSLAConfigRepositoryInterface) {
		now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
		require.NoError(t, repo.UpsertConfig(ctx, entities.StageSLAConfig{Stage: constants.StageDesign, TargetHours: 8, WarningHours: 6, IsActive: true, UpdatedAt: now}))
		require.NoError(t, repo.UpsertConfig(ctx, entities.StageSLAConfig{Stage: constants.StageDesign, TargetHours: 10, WarningHours: 7, IsActive: true, UpdatedAt: now}))

		cfg, err := repo.FindConfig(ctx, constants.StageDesign)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.TargetHours)

		_, err = repo.FindConfig(ctx, constants.StageQA)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		all, err := repo.ListConfigs(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	}

	t.Run("memory", func(t *testing.T) { run(t, NewMemoryStageSLAConfigRepository()) })
	t.Run("postgres", func(t *testing.T) {
		if testPool == nil {
			t.Skip("TEST_DATABASE_URL не задан")
		}
		cleanupTables(t, testPool)
		run(t, NewStageSLAConfigRepository(testPool))
	})
}
