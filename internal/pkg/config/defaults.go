package config

// Значения настроек по умолчанию («сбалансированный» пресет).
const (
	// Задержки между операциями, в секундах.
	DefaultDelayBetweenMessages = 0.3
	DefaultDelayBetweenMedia    = 1.5

	// Повторы при временных ошибках скачивания.
	DefaultMaxRetries = 5
	DefaultRetryDelay = 3.0

	// Размер пакета записи в промежуточное хранилище.
	DefaultBatchSize = 200

	DefaultOutputDir   = "exports"
	DefaultSessionFile = "tg.session"
	DefaultLogLevel    = "info"
)
