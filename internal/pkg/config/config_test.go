package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromYAML(t *testing.T) {
	t.Chdir(t.TempDir())

	yamlContent := `
telegram_api:
  api_id: 12345
  api_hash: "abcdef"
  phone_number: "+79990001122"
export:
  delay_between_messages: 0.5
  max_retries: 7
logging:
  level: debug
`
	require.NoError(t, os.WriteFile("config.yml", []byte(yamlContent), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.TelegramAPI.APIID)
	assert.Equal(t, "abcdef", cfg.TelegramAPI.APIHash)
	assert.Equal(t, 0.5, cfg.Export.DelayBetweenMessages)
	assert.Equal(t, 7, cfg.Export.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Незаданные ключи получают значения по умолчанию.
	assert.Equal(t, DefaultOutputDir, cfg.Export.OutputDir)
	assert.Equal(t, DefaultDelayBetweenMedia, cfg.Export.DelayBetweenMedia)
	assert.Equal(t, DefaultRetryDelay, cfg.Export.RetryDelay)
	assert.Equal(t, DefaultSessionFile, cfg.TelegramAPI.SessionFile)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("API_ID", "777")
	t.Setenv("API_HASH", "hash")
	t.Setenv("PHONE_NUMBER", "+10000000000")
	t.Setenv("DELAY_BETWEEN_MESSAGES", "1.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 777, cfg.TelegramAPI.APIID)
	assert.Equal(t, 1.5, cfg.Export.DelayBetweenMessages)
	assert.Equal(t, DefaultMaxRetries, cfg.Export.MaxRetries)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
}

func TestLoadConfig_MissingEverything(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("API_ID", "")
	t.Setenv("API_HASH", "")
	t.Setenv("PHONE_NUMBER", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	envContent := "API_ID=555\nAPI_HASH=dotenvhash\nPHONE_NUMBER=+20000000000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(envContent), 0o644))

	// godotenv не перекрывает уже установленные переменные, поэтому
	// убираем их полностью (t.Setenv регистрирует восстановление).
	for _, key := range []string{"API_ID", "API_HASH", "PHONE_NUMBER"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 555, cfg.TelegramAPI.APIID)
	assert.Equal(t, "dotenvhash", cfg.TelegramAPI.APIHash)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			TelegramAPI: TelegramAPI{APIID: 1, APIHash: "h", PhoneNumber: "+1"},
			Export: Export{
				OutputDir:            "exports",
				DelayBetweenMessages: 0.3,
				DelayBetweenMedia:    1.5,
				MaxRetries:           5,
				RetryDelay:           3,
			},
			Logging: Logging{Level: "info"},
		}
	}

	t.Run("корректная конфигурация", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("нулевой api_id", func(t *testing.T) {
		cfg := valid()
		cfg.TelegramAPI.APIID = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("отрицательная задержка", func(t *testing.T) {
		cfg := valid()
		cfg.Export.DelayBetweenMessages = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("неизвестный уровень логирования", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "trace"
		assert.Error(t, cfg.Validate())
	})
}

func TestExportDelays(t *testing.T) {
	e := Export{DelayBetweenMessages: 0.3, DelayBetweenMedia: 1.5, RetryDelay: 3}
	assert.Equal(t, 300*time.Millisecond, e.MessageDelay())
	assert.Equal(t, 1500*time.Millisecond, e.MediaDelay())
	assert.Equal(t, 3*time.Second, e.RetryBaseDelay())
}
