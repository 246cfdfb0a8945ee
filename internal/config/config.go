// Package config предоставляет загрузку конфигурации приложения из переменных окружения
// и необязательного YAML файла.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config содержит все параметры конфигурации приложения.
// Значения загружаются из переменных окружения (и файла, если он указан) с fallback на значения по умолчанию.
type Config struct {
	AppPort   string // Порт для HTTP сервера
	LogLevel  string // Уровень логирования: debug, info, warn, error
	LogFormat string // Формат логов: json, text

	DatasetSource string // Источник датасета цен: csv, xlsx, postgres, sqlite, elasticsearch
	DatasetPath   string // Путь к CSV/XLSX файлу датасета
	EncodersPath  string // Путь к артефакту кодировщиков; пусто - словари строятся по датасету

	PostgresHost     string // Хост PostgreSQL
	PostgresPort     string // Порт PostgreSQL
	PostgresUser     string // Пользователь PostgreSQL
	PostgresPassword string // Пароль PostgreSQL
	PostgresDB       string // Имя базы данных PostgreSQL
	SQLitePath       string // Путь к файлу SQLite

	ElasticsearchURL   string // URL для подключения к Elasticsearch/OpenSearch
	ElasticsearchIndex string // Индекс с историческими ценами

	ModelServerURL string        // URL сервера моделей; пусто - используется историческая модель цены
	PriceModel     string        // Имя регрессора цены на сервере моделей
	CropModel      string        // Имя классификатора культур на сервере моделей
	OracleTimeout  time.Duration // Таймаут вызова модели

	WeatherAPIURL  string        // Базовый URL weatherapi.com
	WeatherAPIKey  string        // Ключ weatherapi.com; пусто - всегда запасные значения
	WeatherTimeout time.Duration // Таймаут запроса погоды
}

var defaults = map[string]any{
	"app_port":            "5000",
	"log_level":           "info",
	"log_format":          "json",
	"dataset_source":      "csv",
	"dataset_path":        "data/Cleaned_Sorted_Agriculture_Data.csv",
	"encoders_path":       "",
	"postgres_host":       "localhost",
	"postgres_port":       "5432",
	"postgres_user":       "farm_user",
	"postgres_password":   "farm_pass",
	"postgres_db":         "farm_db",
	"sqlite_path":         "data/prices.db",
	"elasticsearch_url":   "http://localhost:9200",
	"elasticsearch_index": "price_records",
	"model_server_url":    "",
	"price_model":         "price",
	"crop_model":          "crop",
	"oracle_timeout":      10 * time.Second,
	"weather_api_url":     "http://api.weatherapi.com",
	"weather_api_key":     "",
	"weather_timeout":     5 * time.Second,
}

// Load загружает конфигурацию из переменных окружения.
// Если переменная не установлена, используется значение по умолчанию.
func Load() *Config {
	return fromViper(newViper())
}

// LoadFile загружает конфигурацию из YAML файла; переменные окружения имеют приоритет над файлом.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	if path == "" {
		return fromViper(v), nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return fromViper(v), nil
}

// PostgresDSN собирает строку подключения к PostgreSQL.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
	)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppPort:            v.GetString("app_port"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		DatasetSource:      v.GetString("dataset_source"),
		DatasetPath:        v.GetString("dataset_path"),
		EncodersPath:       v.GetString("encoders_path"),
		PostgresHost:       v.GetString("postgres_host"),
		PostgresPort:       v.GetString("postgres_port"),
		PostgresUser:       v.GetString("postgres_user"),
		PostgresPassword:   v.GetString("postgres_password"),
		PostgresDB:         v.GetString("postgres_db"),
		SQLitePath:         v.GetString("sqlite_path"),
		ElasticsearchURL:   v.GetString("elasticsearch_url"),
		ElasticsearchIndex: v.GetString("elasticsearch_index"),
		ModelServerURL:     v.GetString("model_server_url"),
		PriceModel:         v.GetString("price_model"),
		CropModel:          v.GetString("crop_model"),
		OracleTimeout:      v.GetDuration("oracle_timeout"),
		WeatherAPIURL:      v.GetString("weather_api_url"),
		WeatherAPIKey:      v.GetString("weather_api_key"),
		WeatherTimeout:     v.GetDuration("weather_timeout"),
	}
}
