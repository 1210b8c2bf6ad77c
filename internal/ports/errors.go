package ports

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout сигнализирует о сетевом таймауте источника. Такая ошибка
// считается временной и подлежит повтору.
var ErrTimeout = errors.New("source timeout")

// FloodWaitError сообщает о серверном ограничении частоты запросов.
// Wait — подсказанная сервером длительность ожидания.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait for %s", e.Wait)
}

// IsTransient сообщает, стоит ли повторять операцию после err.
func IsTransient(err error) bool {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return true
	}
	return errors.Is(err, ErrTimeout)
}
