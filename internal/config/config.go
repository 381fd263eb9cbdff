// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек клиента
type Config struct {
	Env          string `yaml:"env"`
	APIBaseURL   string `yaml:"api_base_url"`
	StoragePath  string `yaml:"storage_path"`
	StatusServer `yaml:"status_server"`
	Realtime     `yaml:"realtime"`
	Forwarding   `yaml:"forwarding"`
	RateLimit    `yaml:"rate_limit"`
}

// StatusServer структура для настройки локального сервера статуса
type StatusServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Realtime структура для настройки websocket-каналов оповещений
type Realtime struct {
	PatentURL            string        `yaml:"patent_url"`
	CompetitorURL        string        `yaml:"competitor_url"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	RefreshInterval      time.Duration `yaml:"refresh_interval"`
	AlertFeedSize        int           `yaml:"alert_feed_size"`
}

// Forwarding структура для настройки пересылки оповещений в RabbitMQ
type Forwarding struct {
	Enabled    bool   `yaml:"enabled"`
	AMQPURL    string `yaml:"amqp_url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// RateLimit структура для ограничения исходящих запросов к бэкенду
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MustLoad загружает конфиг из файла, путь к которому задан в CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"APIBaseURL: %s\n"+
			"StoragePath: %s\n"+
			"StatusServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Realtime:\n"+
			"  PatentURL: %s\n"+
			"  CompetitorURL: %s\n"+
			"  ReconnectBaseDelay: %s\n"+
			"  MaxReconnectAttempts: %d\n"+
			"  RefreshInterval: %s\n"+
			"  AlertFeedSize: %d\n"+
			"Forwarding:\n"+
			"  Enabled: %t\n"+
			"  Exchange: %s\n"+
			"  RoutingKey: %s\n"+
			"RateLimit:\n"+
			"  RequestsPerSecond: %.2f\n"+
			"  Burst: %d\n",
		c.Env,
		c.APIBaseURL,
		c.StoragePath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.PatentURL,
		c.CompetitorURL,
		c.ReconnectBaseDelay,
		c.MaxReconnectAttempts,
		c.RefreshInterval,
		c.AlertFeedSize,
		c.Enabled,
		c.Exchange,
		c.RoutingKey,
		c.RequestsPerSecond,
		c.Burst,
	)
}
