/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the back-office service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes      int    `mapstructure:"TOKEN_TTL_MINUTES"`
	RefreshTTLMinutes    int    `mapstructure:"REFRESH_TTL_MINUTES"`
	MaxLoginAttempts     int    `mapstructure:"MAX_LOGIN_ATTEMPTS"`
	LockoutSeconds       int    `mapstructure:"LOGIN_LOCKOUT_SECONDS"`
	LoginRateLimit       int    `mapstructure:"LOGIN_RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins       string `mapstructure:"ALLOWED_ORIGINS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "backoffice:rate_limit")
	viper.SetDefault("TOKEN_TTL_MINUTES", 60)
	viper.SetDefault("REFRESH_TTL_MINUTES", 1440)
	viper.SetDefault("MAX_LOGIN_ATTEMPTS", 5)
	viper.SetDefault("LOGIN_LOCKOUT_SECONDS", 900)
	viper.SetDefault("LOGIN_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TTL_MINUTES")
	_ = viper.BindEnv("REFRESH_TTL_MINUTES")
	_ = viper.BindEnv("MAX_LOGIN_ATTEMPTS")
	_ = viper.BindEnv("LOGIN_LOCKOUT_SECONDS")
	_ = viper.BindEnv("LOGIN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	// Unmarshal the configuration into the Config struct.
	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "backoffice:rate_limit"
	}

	if config.TokenTTLMinutes <= 0 {
		config.TokenTTLMinutes = 60
	}
	if config.RefreshTTLMinutes <= 0 {
		config.RefreshTTLMinutes = 1440
	}
	if config.MaxLoginAttempts <= 0 {
		config.MaxLoginAttempts = 5
	}
	if config.LockoutSeconds <= 0 {
		config.LockoutSeconds = 900
	}
	if config.LoginRateLimit < 0 {
		config.LoginRateLimit = 0
	}

	if config.DatabaseURL == "" {
		return config, errors.New("DATABASE_URL is required")
	}
	if config.JWTSecret == "" {
		return config, errors.New("JWT_SECRET is required")
	}

	return config, nil
}
