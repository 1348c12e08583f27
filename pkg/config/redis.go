package config

import "fmt"

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Address returns host:port.
func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:   getEnvBool("REDIS_ENABLED", false),
		Host:      getEnv("REDIS_HOST", "localhost"),
		Port:      getEnvInt("REDIS_PORT", 6379),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        getEnvInt("REDIS_DB", 0),
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", ""),
	}
}
