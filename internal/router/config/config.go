package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Режимы запуска процесса.
const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// Хранилища данных.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`
	StoreBackend  string `mapstructure:"STORE_BACKEND"`

	RepositoryTimeout time.Duration `mapstructure:"REPOSITORY_TIMEOUT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AwardWindow       time.Duration `mapstructure:"AWARD_WINDOW"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	SweepCron     string        `mapstructure:"SWEEP_CRON"`
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	RunMode string `mapstructure:"RUN_MODE"`
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path.
// Переменные окружения имеют приоритет; отсутствие файла не ошибка.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	if cfg.PostgresConn == "" && cfg.PostgresHost != "" {
		cfg.PostgresConn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPass, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	}
	err = cfg.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"SERVER_ADDRESS":     "0.0.0.0:8080",
		"POSTGRES_CONN":      "",
		"POSTGRES_USERNAME":  "",
		"POSTGRES_PASSWORD":  "",
		"POSTGRES_HOST":      "",
		"POSTGRES_PORT":      "5432",
		"POSTGRES_DATABASE":  "",
		"MIGRATION_URL":      "file://migrations",
		"STORE_BACKEND":      StorePostgres,
		"REPOSITORY_TIMEOUT": 3 * time.Second,
		"REQUEST_TIMEOUT":    5 * time.Second,
		"AWARD_WINDOW":       14 * 24 * time.Hour,
		"REDIS_ADDR":         "",
		"REDIS_PASSWORD":     "",
		"REDIS_DB":           0,
		"SWEEP_CRON":         "@every 1m",
		"SWEEP_INTERVAL":     time.Minute,
		"KAFKA_BROKERS":      "",
		"KAFKA_TOPIC":        "procurement.events",
		"RUN_MODE":           ModeAll,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres:
		if c.PostgresConn == "" {
			return fmt.Errorf("POSTGRES_CONN or POSTGRES_HOST must be set for the %s store", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.RunMode {
	case ModeAPI, ModeWorker, ModeAll:
	default:
		return fmt.Errorf("unsupported RUN_MODE %q", c.RunMode)
	}
	if c.RepositoryTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("REPOSITORY_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}
	if c.AwardWindow < 0 {
		return fmt.Errorf("AWARD_WINDOW cannot be negative")
	}
	return nil
}

// Brokers возвращает список брокеров Kafka; пустой список отключает публикацию в Kafka.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
