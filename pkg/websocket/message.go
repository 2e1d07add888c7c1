package websocket

import "time"

// Envelope - "конверт" сообщения: тип подсказывает фронтенду, как обновить доску.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// BoardUpdate - изменение карточки заказа на доске.
type BoardUpdate struct {
	EventID   string    `json:"eventId"`
	OrderID   string    `json:"orderId"`
	Event     string    `json:"event"`
	FromStage string    `json:"fromStage,omitempty"`
	ToStage   string    `json:"toStage,omitempty"`
	ActorRole string    `json:"actorRole"`
	Message   string    `json:"message"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}
