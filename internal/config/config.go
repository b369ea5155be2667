package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	SyncBackendMemory = "memory"
	SyncBackendRedis  = "redis"
)

type Config struct {
	LogLevel          string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SyncBackend       string   `yaml:"sync-backend" env:"SYNC_BACKEND" env-default:"memory"`
	Redis             Redis    `yaml:"redis"`
	SQLiteStoragePath string   `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./data/fourrace.db"`
	CORSOrigins       []string `yaml:"cors-origins" env:"CORS_ORIGINS" env-default:"http://localhost:5173"`
	Game              Game     `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Game holds the delays of automatic follow-up actions.
type Game struct {
	PassDelay        time.Duration `yaml:"pass-delay" env:"GAME_PASS_DELAY" env-default:"1s"`
	BotThinkDelay    time.Duration `yaml:"bot-think-delay" env:"GAME_BOT_THINK_DELAY" env-default:"1500ms"`
	BotThinkJitter   time.Duration `yaml:"bot-think-jitter" env:"GAME_BOT_THINK_JITTER" env-default:"2s"`
	RankClaimDelay   time.Duration `yaml:"rank-claim-delay" env:"GAME_RANK_CLAIM_DELAY" env-default:"2s"`
	RankClaimStagger time.Duration `yaml:"rank-claim-stagger" env:"GAME_RANK_CLAIM_STAGGER" env-default:"1s"`
}

var ErrUnknownSyncBackend = errors.New("unknown sync backend")

// MustLoad - load all configurations in config.yml file. A missing file
// falls back to environment variables and defaults.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(config)
	case err == nil:
		err = cleanenv.ReadConfig(path, config)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if config.SyncBackend != SyncBackendMemory && config.SyncBackend != SyncBackendRedis {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSyncBackend, config.SyncBackend)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
