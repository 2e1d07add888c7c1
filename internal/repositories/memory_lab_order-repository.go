package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

// MemoryLabOrderRepository хранит заказы в памяти процесса.
// Используется при STORAGE_DRIVER=memory и в тестах; семантика версий та же, что у Postgres.
type MemoryLabOrderRepository struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]entities.LabOrder
	records map[uuid.UUID][]entities.StageTransitionRecord
}

func NewMemoryLabOrderRepository() *MemoryLabOrderRepository {
	return &MemoryLabOrderRepository{
		orders:  make(map[uuid.UUID]entities.LabOrder),
		records: make(map[uuid.UUID][]entities.StageTransitionRecord),
	}
}

func (r *MemoryLabOrderRepository) FindOrder(_ context.Context, id uuid.UUID) (*entities.LabOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	return &order, nil
}

func (r *MemoryLabOrderRepository) ListOrders(_ context.Context, filter entities.LabOrderFilter) ([]entities.LabOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.LabOrder, 0, len(r.orders))
	for _, o := range r.orders {
		if matchesFilter(&o, filter) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matchesFilter(o *entities.LabOrder, f entities.LabOrderFilter) bool {
	if len(f.Stages) > 0 {
		found := false
		for _, s := range f.Stages {
			if s == o.Stage {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Priorities) > 0 {
		found := false
		for _, p := range f.Priorities {
			if p == o.Priority {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.IsDigital != nil && *f.IsDigital != o.IsDigital {
		return false
	}
	if f.IsPaused != nil && *f.IsPaused != o.IsPaused {
		return false
	}
	if f.PausePending != nil && *f.PausePending != o.PauseRequested {
		return false
	}
	return true
}

func (r *MemoryLabOrderRepository) CreateOrder(_ context.Context, order *entities.LabOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return apperrors.ErrOrderExists
	}
	if order.Version == 0 {
		order.Version = 1
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *MemoryLabOrderRepository) SaveOrder(_ context.Context, order *entities.LabOrder, expectedVersion int64, records ...entities.StageTransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return apperrors.ErrOrderNotFound
	}
	if stored.Version != expectedVersion {
		return apperrors.ErrConflict
	}

	saved := *order
	saved.Version = expectedVersion + 1
	r.orders[order.ID] = saved
	r.records[order.ID] = append(r.records[order.ID], records...)
	order.Version = saved.Version
	return nil
}

func (r *MemoryLabOrderRepository) ListRecords(_ context.Context, orderID uuid.UUID) ([]entities.StageTransitionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.StageTransitionRecord, len(r.records[orderID]))
	copy(out, r.records[orderID])
	return out, nil
}

func (r *MemoryLabOrderRepository) CountCompletedByDay(_ context.Context, from, to time.Time) ([]entities.DailyCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDay := make(map[time.Time]int)
	for _, recs := range r.records {
		for _, rec := range recs {
			if rec.Kind != constants.TransitionForward || rec.ToStage != constants.StageDelivery {
				continue
			}
			if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
				continue
			}
			at := rec.CreatedAt.UTC()
			byDay[time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)]++
		}
	}

	out := make([]entities.DailyCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, entities.DailyCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}
