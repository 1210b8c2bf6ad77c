// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// TelegramAPI содержит конфигурацию Telegram API
type TelegramAPI struct {
	APIID       int    `json:"api_id" yaml:"api_id"`
	APIHash     string `json:"api_hash" yaml:"api_hash"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	SessionFile string `json:"session_file" yaml:"session_file"`
}

// Export содержит настройки экспорта: задержки и повторы.
// Задержки заданы в секундах (допустимы дробные значения).
type Export struct {
	OutputDir            string  `json:"output_dir" yaml:"output_dir"`
	DelayBetweenMessages float64 `json:"delay_between_messages" yaml:"delay_between_messages"`
	DelayBetweenMedia    float64 `json:"delay_between_media" yaml:"delay_between_media"`
	MaxRetries           int     `json:"max_retries" yaml:"max_retries"`
	RetryDelay           float64 `json:"retry_delay" yaml:"retry_delay"`
}

// MessageDelay возвращает задержку между сообщениями как time.Duration.
func (e *Export) MessageDelay() time.Duration {
	return time.Duration(e.DelayBetweenMessages * float64(time.Second))
}

// MediaDelay возвращает задержку между скачиваниями медиа.
func (e *Export) MediaDelay() time.Duration {
	return time.Duration(e.DelayBetweenMedia * float64(time.Second))
}

// RetryBaseDelay возвращает базовую задержку повтора.
func (e *Export) RetryBaseDelay() time.Duration {
	return time.Duration(e.RetryDelay * float64(time.Second))
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config содержит конфигурацию приложения
type Config struct {
	TelegramAPI TelegramAPI `json:"telegram_api" yaml:"telegram_api"`
	Export      Export      `json:"export" yaml:"export"`
	Logging     Logging     `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию из config.yml либо из переменных
// окружения (включая .env файл). Отсутствующие ключи экспорта получают
// безопасные значения по умолчанию.
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Отсутствие .env не ошибка: полагаемся на окружение или config.yml
	}

	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		cfg, err = loadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения
func loadFromEnv() (*Config, error) {
	apiIDStr := getEnv("API_ID", "")
	apiHash := getEnv("API_HASH", "")
	phoneNumber := getEnv("PHONE_NUMBER", "")
	sessionFile := getEnv("SESSION_FILE", DefaultSessionFile)

	if apiIDStr == "" || apiHash == "" || phoneNumber == "" {
		return nil, fmt.Errorf("API_ID, API_HASH и PHONE_NUMBER должны быть установлены в переменных окружения")
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый API_ID: %w", err)
	}

	cfg := &Config{
		TelegramAPI: TelegramAPI{
			APIID:       apiID,
			APIHash:     apiHash,
			PhoneNumber: phoneNumber,
			SessionFile: sessionFile,
		},
	}

	if v := getEnv("DELAY_BETWEEN_MESSAGES", ""); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("недопустимый DELAY_BETWEEN_MESSAGES: %w", err)
		}
		cfg.Export.DelayBetweenMessages = d
	}
	if v := getEnv("DELAY_BETWEEN_MEDIA", ""); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("недопустимый DELAY_BETWEEN_MEDIA: %w", err)
		}
		cfg.Export.DelayBetweenMedia = d
	}
	if v := getEnv("MAX_RETRIES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("недопустимый MAX_RETRIES: %w", err)
		}
		cfg.Export.MaxRetries = n
	}
	if v := getEnv("RETRY_DELAY", ""); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("недопустимый RETRY_DELAY: %w", err)
		}
		cfg.Export.RetryDelay = d
	}

	return cfg, nil
}

// applyDefaults подставляет значения по умолчанию вместо незаданных ключей.
func (c *Config) applyDefaults() {
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = DefaultOutputDir
	}
	if c.Export.DelayBetweenMessages <= 0 {
		c.Export.DelayBetweenMessages = DefaultDelayBetweenMessages
	}
	if c.Export.DelayBetweenMedia <= 0 {
		c.Export.DelayBetweenMedia = DefaultDelayBetweenMedia
	}
	if c.Export.MaxRetries <= 0 {
		c.Export.MaxRetries = DefaultMaxRetries
	}
	if c.Export.RetryDelay <= 0 {
		c.Export.RetryDelay = DefaultRetryDelay
	}
	if c.TelegramAPI.SessionFile == "" {
		c.TelegramAPI.SessionFile = DefaultSessionFile
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.TelegramAPI.APIID <= 0 {
		return fmt.Errorf("telegram_api.api_id должно быть положительным целым числом")
	}
	if c.TelegramAPI.APIHash == "" {
		return fmt.Errorf("telegram_api.api_hash не может быть пустым")
	}
	if c.TelegramAPI.PhoneNumber == "" {
		return fmt.Errorf("telegram_api.phone_number не может быть пустым")
	}

	if c.Export.DelayBetweenMessages < 0 {
		return fmt.Errorf("export.delay_between_messages должно быть неотрицательным")
	}
	if c.Export.DelayBetweenMedia < 0 {
		return fmt.Errorf("export.delay_between_media должно быть неотрицательным")
	}
	if c.Export.MaxRetries <= 0 {
		return fmt.Errorf("export.max_retries должно быть положительным")
	}
	if c.Export.RetryDelay < 0 {
		return fmt.Errorf("export.retry_delay должно быть неотрицательным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
