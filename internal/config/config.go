package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	LLM          LLMConfig          `mapstructure:"llm"`
	S3           S3Config           `mapstructure:"s3"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Workout      WorkoutConfig      `mapstructure:"workout"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// TelegramConfig configures the Bot API sender.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// LLMConfig configures the plan-generation collaborator (OpenAI-compatible).
type LLMConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration for the ops API.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
	// OpsToken is the shared credential exchanged for a JWT.
	OpsToken string `mapstructure:"ops_token"`
}

// SubscriptionConfig governs the entitlement state machine.
type SubscriptionConfig struct {
	// PaidDuration is added to "now" on every successful payment.
	PaidDuration time.Duration `mapstructure:"paid_duration"`
	// ExpirySweepInterval is the cadence of the expiry sweep job.
	ExpirySweepInterval time.Duration `mapstructure:"expiry_sweep_interval"`
}

// SchedulerConfig governs delivery jobs and the weekly generation sweep.
type SchedulerConfig struct {
	// WeeklySweepDay / Hour / Minute pick the weekly generation moment.
	WeeklySweepDay    time.Weekday `mapstructure:"weekly_sweep_day"`
	WeeklySweepHour   int          `mapstructure:"weekly_sweep_hour"`
	WeeklySweepMinute int          `mapstructure:"weekly_sweep_minute"`
	// MaxConcurrentJobs caps simultaneously running delivery handlers.
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs"`
}

// WorkoutConfig governs plan generation.
type WorkoutConfig struct {
	// Cooldown is the minimum interval between manual plan requests.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// GenerationRetryDelay is the pause before the single generation retry.
	GenerationRetryDelay time.Duration `mapstructure:"generation_retry_delay"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Env overrides, e.g. database.uri -> DATABASE_URI
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "coach_bot")
	viper.SetDefault("telegram.api_url", "https://api.telegram.org")
	viper.SetDefault("llm.api_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4.1-mini")
	viper.SetDefault("llm.timeout", "180s")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("subscription.paid_duration", "720h")       // 30 days
	viper.SetDefault("subscription.expiry_sweep_interval", "4h") // matches prior cadence
	viper.SetDefault("scheduler.weekly_sweep_day", 0)            // Sunday
	viper.SetDefault("scheduler.weekly_sweep_hour", 22)
	viper.SetDefault("scheduler.weekly_sweep_minute", 0)
	viper.SetDefault("scheduler.max_concurrent_jobs", 16)
	viper.SetDefault("workout.cooldown", "12h")
	viper.SetDefault("workout.generation_retry_delay", "2s")

	err = viper.ReadInConfig()
	// A missing config file is fine; env vars and defaults still apply.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
