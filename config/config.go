package config

import (
	"flag"
	"os"
	"time"

	httpapp "avigoBot/internal/app/http"
	"avigoBot/internal/notify"
	"avigoBot/internal/repository/postgres"
	orderservice "avigoBot/internal/service/order"
	"avigoBot/internal/telegram"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string                   `yaml:"env" env:"ENV" env-default:"local"`
	Telegram telegram.Config          `yaml:"telegram"`
	Postgres postgres.Config          `yaml:"postgres"`
	Redis    RedisConfig              `yaml:"redis"`
	HTTP     httpapp.Config           `yaml:"http_server"`
	Click    orderservice.ClickConfig `yaml:"click"`
	Notify   notify.Config            `yaml:"notify"`
}

// RedisConfig - хранилище сессий. Пустой addr означает, что сессии
// живут в памяти процесса.
type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"REDIS_ADDR"`
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"72h"`
}

// MustLoad загружает конфигурацию из файла
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

// MustLoadPath загружает конфигурацию из указанного файла
func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath получает путь к конфигурационному файлу из флага или переменной окружения
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
