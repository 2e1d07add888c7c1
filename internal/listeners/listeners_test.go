package listeners

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lab-workflow/internal/entities"
	"lab-workflow/internal/events"
	"lab-workflow/pkg/constants"
	"lab-workflow/pkg/eventbus"
	"lab-workflow/pkg/telegram"
	"lab-workflow/pkg/websocket"
)

type fakePublisher struct {
	mu    sync.Mutex
	keys  []string
	fails int
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, routingKey)
	return nil
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	updates []websocket.BoardUpdate
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, _ string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, payload.(websocket.BoardUpdate))
	return nil
}

func transitionEvent() events.LabOrderEvent {
	order := &entities.LabOrder{ID: uuid.New(), Stage: constants.StageDesign, Version: 4}
	record := &entities.StageTransitionRecord{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Kind:          constants.TransitionForward,
		FromStage:     constants.StageIncomeValidation,
		ToStage:       constants.StageDesign,
		Justification: null.String{},
		ActorRole:     constants.RoleDesigner,
	}
	return events.NewLabOrderEvent(events.StageTransitioned, order, constants.RoleDesigner, "u-1", record, time.Now())
}

func TestAuditListener_RetriesUntilPublished(t *testing.T) {
	pub := &fakePublisher{fails: 1}
	bus := eventbus.New(zap.NewNop(), eventbus.WithRetry(3, time.Millisecond))
	NewAuditListener(pub, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), transitionEvent())
	bus.Wait()

	require.Len(t, pub.keys, 1)
	assert.Equal(t, events.StageTransitioned, pub.keys[0])
}

func TestBoardListener_BroadcastsUpdate(t *testing.T) {
	hub := &fakeBroadcaster{}
	bus := eventbus.New(zap.NewNop())
	NewBoardListener(hub, zap.NewNop()).Register(bus)

	e := transitionEvent()
	bus.Publish(context.Background(), e)
	bus.Wait()

	require.Len(t, hub.updates, 1)
	u := hub.updates[0]
	assert.Equal(t, e.OrderID.String(), u.OrderID)
	assert.Equal(t, "income_validation", u.FromStage)
	assert.Equal(t, "design", u.ToStage)
	assert.Equal(t, int64(4), u.Version)
	assert.Contains(t, u.Message, "Дизайн")
}

func TestTelegramListener_NotifiesCoordinatorsOnPauseRequest(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		payloads = append(payloads, body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	bot := telegram.NewService("token", zap.NewNop(), telegram.WithAPIBase(srv.URL))
	bus := eventbus.New(zap.NewNop())
	NewTelegramListener(bot, -100500, zap.NewNop()).Register(bus)

	order := &entities.LabOrder{
		ID:             uuid.New(),
		Stage:          constants.StageGypsum,
		Version:        7,
		PauseRequested: true,
		PauseReason:    null.StringFrom("нет оплаты"),
	}
	bus.Publish(context.Background(), events.NewLabOrderEvent(events.PauseRequested, order, constants.RoleProductionTech, "", nil, time.Now()))
	// таймер не интересует координаторов
	bus.Publish(context.Background(), events.NewLabOrderEvent(events.TimerToggled, order, constants.RoleProductionTech, "", nil, time.Now()))
	bus.Wait()

	require.Len(t, payloads, 1)
	assert.Equal(t, float64(-100500), payloads[0]["chat_id"])
	assert.Equal(t, "MarkdownV2", payloads[0]["parse_mode"])
	assert.Contains(t, payloads[0]["text"], "нет оплаты")
	assert.Nil(t, payloads[0]["disable_notification"])
}

func TestTelegramListener_ReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	bot := telegram.NewService("token", zap.NewNop(), telegram.WithAPIBase(srv.URL))
	l := NewTelegramListener(bot, 1, zap.NewNop())

	order := &entities.LabOrder{ID: uuid.New(), Stage: constants.StageQA, IsPaused: true}
	err := l.handle(context.Background(), events.NewLabOrderEvent(events.PauseApproved, order, constants.RoleLabCoordinator, "", nil, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
