// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// SlowQueryThreshold 超过该耗时的SQL记录为慢查询
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	// Key 非空时启用 X-API-Key 认证
	Key string `yaml:"key"`

	// RateLimit 每秒允许的请求数
	RateLimit float64 `yaml:"rate_limit"`
}

// EngineConfig 排课引擎配置
type EngineConfig struct {
	Backend           string        `yaml:"backend"` // auto / cp / greedy
	TimeLimit         time.Duration `yaml:"time_limit"`
	PeriodsPerDay     int           `yaml:"periods_per_day"`
	LunchPeriod       int           `yaml:"lunch_period"` // 0 表示无午休
	MaxSwapIterations int           `yaml:"max_swap_iterations"`
	Seed              int64         `yaml:"seed"`

	// 软约束按归属范围的违反代价
	AdminSoftWeight   int `yaml:"admin_soft_weight"`
	TeacherSoftWeight int `yaml:"teacher_soft_weight"`
	DefaultSoftWeight int `yaml:"default_soft_weight"`

	// 多样性优化权重
	VarietyWeight float64 `yaml:"variety_weight"`
	RepeatPenalty float64 `yaml:"repeat_penalty"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "paike"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("APP_PORT", 7120),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "paike"),
			User:               getEnv("DB_USER", "paike"),
			Password:           getEnv("DB_PASSWORD", "paike123"),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		},
		API: APIConfig{
			Timeout:   getEnvDuration("API_TIMEOUT", 60*time.Second),
			Key:       getEnv("API_KEY", ""),
			RateLimit: getEnvFloat("API_RATE_LIMIT", 100),
		},
		Engine: EngineConfig{
			Backend:           getEnv("ENGINE_BACKEND", "auto"),
			TimeLimit:         getEnvDuration("ENGINE_TIME_LIMIT", 20*time.Second),
			PeriodsPerDay:     getEnvInt("ENGINE_PERIODS_PER_DAY", 6),
			LunchPeriod:       getEnvInt("ENGINE_LUNCH_PERIOD", 4),
			MaxSwapIterations: getEnvInt("ENGINE_MAX_SWAP_ITERATIONS", 500),
			Seed:              int64(getEnvInt("ENGINE_SEED", 1)),
			AdminSoftWeight:   getEnvInt("ENGINE_ADMIN_SOFT_WEIGHT", 10000),
			TeacherSoftWeight: getEnvInt("ENGINE_TEACHER_SOFT_WEIGHT", 100),
			DefaultSoftWeight: getEnvInt("ENGINE_DEFAULT_SOFT_WEIGHT", 500),
			VarietyWeight:     getEnvFloat("ENGINE_VARIETY_WEIGHT", 1.0),
			RepeatPenalty:     getEnvFloat("ENGINE_REPEAT_PENALTY", 1.0),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
