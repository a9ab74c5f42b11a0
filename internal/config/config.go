package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/opencontest/contest-api/internal/logger"
	"github.com/opencontest/contest-api/internal/validator"
)

type PostgresConfig struct {
	User               string        `validate:"required"`
	Password           string        `validate:"required"`
	Host               string        `validate:"required"`
	Database           string        `validate:"required"`
	MaxIdleConnections int           `validate:"required" mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `validate:"required" mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `validate:"required" mapstructure:"connection_ttl"`
	Port               int16         `validate:"required"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm    GormLogConfig `mapstructure:"gorm"`
	App     SlogConfig    `mapstructure:"app"`
	UseOTLP bool          `mapstructure:"use_otlp"`
}

type SchedulerConfig struct {
	// Seconds between state transition ticks
	TickSeconds int `mapstructure:"tick_seconds" validate:"required,gt=0"`
}

type JudgeConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
	// Optional auth token forwarded as X-Auth-Token
	AuthToken           string `mapstructure:"auth_token"`
	BatchSize           int    `mapstructure:"batch_size"            validate:"required,gt=0"`
	PollIntervalMS      int    `mapstructure:"poll_interval_ms"      validate:"required,gt=0"`
	MaxPollAttempts     int    `mapstructure:"max_poll_attempts"     validate:"required,gt=0"`
	SubmissionDelayMS   int    `mapstructure:"submission_delay_ms"   validate:"gte=0"`
	RequestTimeoutSecs  int    `mapstructure:"request_timeout_secs"  validate:"required,gt=0"`
	Base64EncodedBodies bool   `mapstructure:"base64_encoded_bodies"`
}

type RateLimitConfig struct {
	RedisHost       string `mapstructure:"redis_host"`
	GlobalPerMinute int64  `mapstructure:"global_per_minute"`
	FailOpen        bool   `mapstructure:"fail_open"`
}

// See contestapi.yaml for an example config
type Config struct {
	Postgres             *PostgresConfig  `mapstructure:"postgres"  validate:"required"`
	Logging              *LoggingConfig   `mapstructure:"logging"`
	Scheduler            *SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Judge                *JudgeConfig     `mapstructure:"judge"     validate:"required"`
	RateLimit            *RateLimitConfig `mapstructure:"ratelimit"`
	ListenAddress        string           `mapstructure:"listen_address" validate:"required"`
	GracefulShutdownSecs int64            `mapstructure:"graceful_shutdown_secs"`
}

const (
	AppLogLevel          string = "logging.app.level"
	EnvPrefix            string = "contestapi"
	GlobalPerMinute      string = "ratelimit.global_per_minute"
	GormLogLevel         string = "logging.gorm.level"
	GormTraceQueries     string = "logging.gorm.trace_queries"
	GracefulShutdownSecs string = "graceful_shutdown_secs"
	JudgeAuthToken       string = "judge.auth_token" // #nosec
	JudgeBatchSize       string = "judge.batch_size"
	JudgeMaxPollAttempts string = "judge.max_poll_attempts"
	JudgePollIntervalMS  string = "judge.poll_interval_ms"
	JudgeRequestTimeout  string = "judge.request_timeout_secs"
	JudgeSubmissionDelay string = "judge.submission_delay_ms"
	ListenAddress        string = "listen_address"
	PostgresConnectonTTL string = "postgres.connection_ttl"
	PostgresDatabase     string = "postgres.database"
	PostgresHost         string = "postgres.host"
	PostgresMaxIdleConns string = "postgres.max_idle_connections"
	PostgresMaxOpenConns string = "postgres.max_open_connections"
	PostgresPassword     string = "postgres.password"
	PostgresPort         string = "postgres.port"
	PostgresUser         string = "postgres.user"
	RateLimitFailOpen    string = "ratelimit.fail_open"
	RedisHost            string = "ratelimit.redis_host"
	SchedulerTickSeconds string = "scheduler.tick_seconds"
	UseOTLP              string = "logging.use_otlp"
)

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("contestapi")

	v.AddConfigPath("/etc/contestapi/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	err := v.BindEnv(PostgresPassword)
	if err != nil {
		return nil, err
	}
	err = v.BindEnv(JudgeAuthToken)
	if err != nil {
		return nil, err
	}

	v.SetDefault(ListenAddress, "[::]:1323")
	v.SetDefault(PostgresHost, "localhost")
	v.SetDefault(PostgresPort, 5432)
	v.SetDefault(PostgresMaxIdleConns, 2)
	v.SetDefault(PostgresMaxOpenConns, 10)
	v.SetDefault(PostgresConnectonTTL, 10*time.Minute)
	v.SetDefault(GormLogLevel, int(slog.LevelDebug))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelDebug))

	v.SetDefault(SchedulerTickSeconds, 300)

	v.SetDefault(JudgeBatchSize, 20)
	v.SetDefault(JudgePollIntervalMS, 1000)
	v.SetDefault(JudgeMaxPollAttempts, 30)
	v.SetDefault(JudgeSubmissionDelay, 200)
	v.SetDefault(JudgeRequestTimeout, 30)

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(GlobalPerMinute, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(UseOTLP, false)

	v.SetDefault(GracefulShutdownSecs, 30)

	err = v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		if _, ok := err.(*viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	valid := validator.Create()
	err = valid.Validate(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	configReady = true
	return &config, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Postgres.User),
		url.QueryEscape(c.Postgres.Password),
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Database,
	)
}
