package services

import (
	"github.com/google/uuid"
	"github.com/moby/locker"
)

// orderLocks - мьютекс на каждый заказ. locker сам удаляет запись,
// когда заказ никто не держит и не ждет.
type orderLocks struct {
	locker *locker.Locker
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locker: locker.New()}
}

// lock захватывает мьютекс заказа и возвращает функцию освобождения.
func (l *orderLocks) lock(id uuid.UUID) func() {
	key := id.String()
	l.locker.Lock(key)
	return func() {
		// ошибка возможна только при Unlock без Lock
		_ = l.locker.Unlock(key)
	}
}
