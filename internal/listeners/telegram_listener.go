package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lab-workflow/internal/events"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/eventbus"
	"lab-workflow/pkg/telegram"
)

// CoordinatorNotifier - отправка текста в чат координаторов.
type CoordinatorNotifier interface {
	SendMessageEx(ctx context.Context, chatID int64, text string, options ...telegram.MessageOption) error
}

// TelegramListener сообщает координаторам о паузах: новый запрос требует их решения.
type TelegramListener struct {
	bot    CoordinatorNotifier
	chatID int64
	logger *zap.Logger
}

func NewTelegramListener(bot CoordinatorNotifier, chatID int64, logger *zap.Logger) *TelegramListener {
	return &TelegramListener{bot: bot, chatID: chatID, logger: logger}
}

func (l *TelegramListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.PauseRequested, l.handle)
	bus.Subscribe(events.PauseApproved, l.handle)
	bus.Subscribe(events.PauseResumed, l.handle)
	l.logger.Info("TelegramListener подписан на события паузы", zap.Int64("chat_id", l.chatID))
}

func (l *TelegramListener) handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.LabOrderEvent)
	if !ok {
		return nil
	}

	var opts []telegram.MessageOption
	opts = append(opts, telegram.WithMarkdownV2())
	if e.EventName != events.PauseRequested {
		opts = append(opts, telegram.Silent())
	}

	if err := l.bot.SendMessageEx(ctx, l.chatID, pauseMessage(e), opts...); err != nil {
		l.logger.Warn("не удалось отправить уведомление в Telegram",
			zap.String("event", e.EventName), zap.String("order_id", e.OrderID.String()), zap.Error(err))
		return err
	}
	return nil
}

func pauseMessage(e events.LabOrderEvent) string {
	esc := telegram.EscapeTextForMarkdownV2
	order := esc(e.OrderID.String())
	stage := esc(workflow.Label(e.Stage))

	switch e.EventName {
	case events.PauseRequested:
		text := fmt.Sprintf("*Запрос паузы*\nЗаказ: `%s`\nЭтап: %s\nРоль: %s", order, stage, esc(e.ActorRole))
		if e.Reason != "" {
			text += "\nПричина: " + esc(e.Reason)
		}
		return text
	case events.PauseApproved:
		return fmt.Sprintf("Пауза одобрена\nЗаказ: `%s`\nЭтап: %s", order, stage)
	case events.PauseResumed:
		return fmt.Sprintf("Работа возобновлена\nЗаказ: `%s`\nЭтап: %s", order, stage)
	}
	return esc(e.EventName)
}
